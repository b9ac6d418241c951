package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogErrorFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("error", &buf)

	LogError(log, "service", "ProcessSale", "lock products", map[string]int{"lines": 2}, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["msg"])
	assert.Equal(t, "service", entry["module"])
	assert.Equal(t, "ProcessSale", entry["funcName"])
	assert.Equal(t, "lock products", entry["context"])
	assert.NotNil(t, entry["data"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	log := New("nonsense")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
