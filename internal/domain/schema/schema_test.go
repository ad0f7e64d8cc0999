package schema

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOrderLive(t *testing.T) {
	require.False(t, Order{Open: "0"}.Live())
	require.True(t, Order{Open: "1"}.Live())
	require.True(t, Order{Open: "100"}.Live())
	require.True(t, Order{}.Live())
}

func TestParseQuantity(t *testing.T) {
	for _, raw := range []string{"1", "10", " 25 ", "100.0"} {
		qty, err := ParseQuantity(raw)
		require.NoError(t, err, raw)
		require.True(t, qty.IsPositive(), raw)
	}
	for _, raw := range []string{"", "ten", "0", "-5", "2.5", "0.1"} {
		_, err := ParseQuantity(raw)
		require.ErrorIs(t, err, ErrInvalidQuantity, raw)
	}
}

func TestDisplayLabels(t *testing.T) {
	cases := map[Side]string{
		SideBuy:              "Buy",
		SideSell:             "Sell",
		SideSellShort:        "Sell Short",
		SideSellShortExempt:  "Sell Short Exempt",
		SideCross:            "Cross",
		SideCrossShort:       "Cross Short",
		SideCrossShortExempt: "Cross Short Exempt",
		Side("Z"):            "Z",
	}
	for side, want := range cases {
		require.Equal(t, want, side.String())
	}

	require.Equal(t, "Stop Limit", OrdTypeStopLimit.String())
	require.Equal(t, "7", OrdType("7").String())
	require.Equal(t, "IOC", TIFIOC.String())
	require.Equal(t, "Future", SecurityTypeFuture.String())
}

func TestNewOrderRequestOmitsEmptyOptionalFields(t *testing.T) {
	req := NewOrderRequest{
		Side:      SideBuy,
		Quantity:  "10",
		Symbol:    "AAPL",
		OrdType:   OrdTypeLimit,
		Price:     "150.00",
		SessionID: "S1",
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, map[string]any{
		"side":       "1",
		"quantity":   "10",
		"symbol":     "AAPL",
		"ord_type":   "2",
		"price":      "150.00",
		"session_id": "S1",
	}, decoded)
}

func TestInstrumentDecodesNumericStrike(t *testing.T) {
	var inst Instrument
	payload := `{"id":3,"request_id":1,"instrument_name":"BTC-27DEC24-50000-C","strike_price":50000.5,"strike_currency":"USD"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &inst))
	require.Equal(t, 3, inst.Key())
	require.True(t, decimal.RequireFromString("50000.5").Equal(inst.StrikePrice))
}
