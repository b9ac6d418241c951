package telemetry

import (
	"context"
	"testing"

	"construction-pos/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "construction-pos", "", logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupWithEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "construction-pos", "http://127.0.0.1:4318", logger.Discard())
	require.NoError(t, err)
	// nothing was exported, so shutdown returns without reaching the collector
	assert.NoError(t, shutdown(context.Background()))
}
