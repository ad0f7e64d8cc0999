package fake

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/traderdesk/internal/domain/schema"
)

func newTestBackend() *Backend {
	clock := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return NewBackend(Options{SessionIDs: []string{"S1"}, Clock: clock})
}

func TestCreateOrderValidatesLikeOrderEntry(t *testing.T) {
	b := newTestBackend()

	_, err := b.CreateOrder(schema.NewOrderRequest{Side: schema.SideBuy, Quantity: "ten", Symbol: "AAPL", OrdType: schema.OrdTypeMarket, SessionID: "S1"})
	require.EqualError(t, err, "Invalid Qty")

	for _, qty := range []string{"0", "-5", "2.5"} {
		_, err = b.CreateOrder(schema.NewOrderRequest{Side: schema.SideBuy, Quantity: qty, Symbol: "AAPL", OrdType: schema.OrdTypeMarket, SessionID: "S1"})
		require.EqualError(t, err, "Invalid Qty", qty)
	}

	_, err = b.CreateOrder(schema.NewOrderRequest{Side: schema.SideBuy, Quantity: "10", Symbol: "AAPL", OrdType: schema.OrdTypeLimit, SessionID: "S1"})
	require.EqualError(t, err, "Invalid Price")

	_, err = b.CreateOrder(schema.NewOrderRequest{Side: schema.SideBuy, Quantity: "10", Symbol: "AAPL", OrdType: schema.OrdTypeStop, SessionID: "S1"})
	require.EqualError(t, err, "Invalid StopPrice")

	_, err = b.CreateOrder(schema.NewOrderRequest{Side: schema.SideBuy, Quantity: "10", Symbol: "AAPL", OrdType: schema.OrdTypeMarket, SessionID: "S9"})
	require.ErrorIs(t, err, errInvalidSession)

	order, err := b.CreateOrder(schema.NewOrderRequest{Side: schema.SideBuy, Quantity: "10", Symbol: "AAPL", OrdType: schema.OrdTypeLimit, Price: "150.00", SessionID: "S1"})
	require.NoError(t, err)
	require.Equal(t, 1, order.ID)
	require.Equal(t, "10", order.Open)
	require.True(t, order.Live())
}

func TestFillAmendAndCancel(t *testing.T) {
	b := newTestBackend()
	order := b.PutOrder(schema.Order{ID: 7, Symbol: "MSFT", Quantity: "10", Open: "10", Closed: "0", AvgPx: "0.00", Side: schema.SideSell, SessionID: "S1"})

	exec, err := b.Fill(order.ID, "4", "101.5")
	require.NoError(t, err)
	require.Equal(t, "4", exec.Quantity)

	filled, _ := b.Order(7)
	require.Equal(t, "6", filled.Open)
	require.Equal(t, "4", filled.Closed)
	require.Equal(t, "101.50", filled.AvgPx)

	_, err = b.AmendOrder(7, schema.AmendRequest{Quantity: "3"})
	require.Error(t, err)

	_, err = b.AmendOrder(7, schema.AmendRequest{Quantity: "12.5"})
	require.EqualError(t, err, "Invalid Qty")

	amended, err := b.AmendOrder(7, schema.AmendRequest{Quantity: "25"})
	require.NoError(t, err)
	require.Equal(t, "25", amended.Quantity)
	require.Equal(t, "21", amended.Open)

	canceled, err := b.CancelOrder(7)
	require.NoError(t, err)
	require.False(t, canceled.Live())

	_, err = b.CancelOrder(7)
	require.ErrorIs(t, err, errOrderClosed)
	_, err = b.AmendOrder(7, schema.AmendRequest{Quantity: "30"})
	require.ErrorIs(t, err, errOrderClosed)
	_, err = b.CancelOrder(99)
	require.ErrorIs(t, err, errNotFound)
}

func TestSecurityDefinitionAndMarketData(t *testing.T) {
	b := newTestBackend()

	require.NoError(t, b.RequestSecurityDefinition(schema.SecurityDefinitionRequest{SessionID: "S1", SecurityType: schema.SecurityTypeOption, Symbol: "btc"}))
	instruments := b.Instruments()
	require.Len(t, instruments, 6)
	require.Equal(t, "BTC-01APR24-90-P", instruments[0].InstrumentName)
	require.Equal(t, 1, instruments[0].RequestID)

	require.NoError(t, b.RequestMarketData(schema.MarketDataRequest{SessionID: "S1", Symbol: "AAPL, MSFT", Bid: schema.MDEntryBid, Trade: schema.MDEntryTrade}))
	ticks := b.MarketData()
	require.Len(t, ticks, 4)
	require.Equal(t, "AAPL", ticks[0].InstrumentName)
	require.Equal(t, schema.MDEntryTrade, ticks[1].Side)

	require.ErrorIs(t, b.RequestMarketData(schema.MarketDataRequest{SessionID: "nope", Symbol: "AAPL"}), errInvalidSession)
}

func TestHandlerServesLegacyEmptyListsAndFailures(t *testing.T) {
	b := newTestBackend()
	srv := httptest.NewServer(NewHandler(b, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/instruments")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, "[no instruments]", buf.String())

	b.FailWith("orders", http.MethodGet, http.StatusServiceUnavailable, 1)
	resp, err = http.Get(srv.URL + "/orders")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/orders")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/executions", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/orders/abc")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.Len(t, b.Requests(), 4)
}

func TestFailWithCounts(t *testing.T) {
	b := newTestBackend()

	b.FailWith("orders", http.MethodGet, http.StatusServiceUnavailable, 0)
	require.Zero(t, b.takeFailure("orders", http.MethodGet))

	b.FailWith("orders", http.MethodGet, http.StatusServiceUnavailable, 2)
	b.FailWith("orders", http.MethodGet, http.StatusServiceUnavailable, 0)
	require.Zero(t, b.takeFailure("orders", http.MethodGet))

	b.FailWith("orders", http.MethodGet, http.StatusBadGateway, 2)
	require.Equal(t, http.StatusBadGateway, b.takeFailure("orders", http.MethodGet))
	require.Equal(t, http.StatusBadGateway, b.takeFailure("orders", http.MethodGet))
	require.Zero(t, b.takeFailure("orders", http.MethodGet))

	b.FailWith("orders", http.MethodDelete, http.StatusInternalServerError, -1)
	for range 3 {
		require.Equal(t, http.StatusInternalServerError, b.takeFailure("orders", http.MethodDelete))
	}
	b.ClearFailures()
	require.Zero(t, b.takeFailure("orders", http.MethodDelete))
}
