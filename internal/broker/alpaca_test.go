package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/ValueArena/consts"
)

func newTestAlpaca(t *testing.T, mux *http.ServeMux) *Alpaca {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewAlpaca(AlpacaConfig{
		BaseURL:      srv.URL,
		APIKey:       "key",
		SecretKey:    "secret",
		PollAttempts: 3,
		PollInterval: time.Millisecond,
	}, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestAlpaca_MissingCredentials(t *testing.T) {
	a := NewAlpaca(AlpacaConfig{BaseURL: "http://127.0.0.1:1"}, zerolog.Nop())

	_, err := a.ExecuteTrade(context.Background(), Order{Ticker: "KO", Side: consts.ActionBuy, Notional: 100})
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = a.AccountSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestAlpaca_NotionalOrderPollsUntilFilled(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"symbol":        "KO",
			"notional":      "2000",
			"side":          "buy",
			"type":          "market",
			"time_in_force": "day",
		}, body)
		writeJSON(w, http.StatusOK, `{"id":"ord-1","status":"accepted","filled_qty":"0","filled_avg_price":null}`)
	})
	mux.HandleFunc("/v2/orders/ord-1", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) < 2 {
			writeJSON(w, http.StatusOK, `{"id":"ord-1","status":"new","filled_qty":"0","filled_avg_price":null}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"ord-1","status":"filled","filled_qty":"40","filled_avg_price":"50.00"}`)
	})

	fill, err := newTestAlpaca(t, mux).ExecuteTrade(context.Background(), Order{Ticker: "KO", Side: consts.ActionBuy, Notional: 2000})
	require.NoError(t, err)
	assert.Equal(t, "filled", fill.Status)
	assert.Equal(t, "ord-1", fill.OrderID)
	assert.Equal(t, 40.0, fill.FilledQty)
	assert.Equal(t, 50.0, fill.FilledAvgPrice)
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
}

func TestAlpaca_QuantityOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "12.5", body["qty"])
		assert.Equal(t, "sell", body["side"])
		_, hasNotional := body["notional"]
		assert.False(t, hasNotional)
		writeJSON(w, http.StatusOK, `{"id":"ord-2","status":"filled","filled_qty":"12.5","filled_avg_price":"61.2"}`)
	})

	fill, err := newTestAlpaca(t, mux).ExecuteTrade(context.Background(), Order{Ticker: "KO", Side: consts.ActionSell, Quantity: 12.5, Notional: 99})
	require.NoError(t, err)
	assert.Equal(t, 61.2, fill.FilledAvgPrice)
}

func TestAlpaca_Rejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"code":40310000,"message":"insufficient buying power"}`)
	})

	_, err := newTestAlpaca(t, mux).ExecuteTrade(context.Background(), Order{Ticker: "KO", Side: consts.ActionBuy, Notional: 1e9})
	assert.ErrorContains(t, err, "insufficient buying power")
}

func TestAlpaca_InvalidOrder(t *testing.T) {
	a := newTestAlpaca(t, http.NewServeMux())
	_, err := a.ExecuteTrade(context.Background(), Order{Ticker: "KO", Side: consts.ActionBuy})
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = a.ExecuteTrade(context.Background(), Order{Ticker: "KO", Side: "HOLD", Notional: 5})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestAlpaca_AccountSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/account", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"cash":"8000.5","portfolio_value":"10400.25","equity":"10400.25"}`)
	})
	mux.HandleFunc("/v2/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"symbol":"XYZ","qty":"40","avg_entry_price":"50","market_value":"2400","unrealized_pl":"400","unrealized_plpc":"0.2"}]`)
	})

	snap, err := newTestAlpaca(t, mux).AccountSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8000.5, snap.Cash)
	assert.Equal(t, 10400.25, snap.TotalValue)
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, "XYZ", snap.Positions[0].Ticker)
	assert.Equal(t, 40.0, snap.Positions[0].Shares)
	assert.Equal(t, 20.0, snap.Positions[0].UnrealizedPnLPct)
}
