package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"construction-pos/internal/events"
	"construction-pos/internal/logger"
	"construction-pos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticParser struct{}

func (staticParser) ParseToken(token string) (*service.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &service.Claims{Username: "cashier1", Role: "cashier"}, nil
}

func newServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, staticParser{}) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeWsRejectsBadToken(t *testing.T) {
	hub := NewHub(logger.Discard(), nil)
	srv := newServer(t, hub)

	for _, q := range []string{"", "?token=bad"} {
		resp, err := http.Get(srv.URL + "/ws" + q)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestHubRelaysBusEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.Discard(), nil)
	go hub.Run(ctx)
	bus := events.NewBus()
	defer hub.Relay(bus)()

	srv := newServer(t, hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus.Publish(events.Event{Type: events.StockChanged, Data: events.StockChange{
		ProductID:   7,
		ProductName: "Cement",
		StockBefore: decimal.NewFromInt(10),
		StockAfter:  decimal.NewFromInt(7),
	}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Event string `json:"event"`
		Data  struct {
			ProductID  uint   `json:"product_id"`
			StockAfter string `json:"stock_after"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "stock.changed", got.Event)
	assert.EqualValues(t, 7, got.Data.ProductID)
	assert.Equal(t, "7", got.Data.StockAfter)
}

func TestServeWsChecksOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.Discard(), []string{"http://localhost:5173"})
	go hub.Run(ctx)
	srv := newServer(t, hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	defer conn.Close()

	// Non-browser clients send no Origin.
	other, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer other.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)
}
