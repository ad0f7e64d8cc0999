package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/app/desk"
	"github.com/coachpo/traderdesk/internal/app/forms"
	"github.com/coachpo/traderdesk/internal/app/router"
	"github.com/coachpo/traderdesk/internal/app/view"
	"github.com/coachpo/traderdesk/internal/domain/schema"
	"github.com/coachpo/traderdesk/internal/infra/config"
	"github.com/coachpo/traderdesk/internal/infra/gateway"
	"github.com/coachpo/traderdesk/internal/infra/gateway/fake"
)

type console struct {
	backend *fake.Backend
	desk    *desk.Desk
	handler http.Handler
}

func newConsole(t *testing.T) *console {
	t.Helper()
	backend := fake.NewBackend(fake.Options{SessionIDs: []string{"S1"}})
	upstream := httptest.NewServer(fake.NewHandler(backend, nil))
	t.Cleanup(upstream.Close)

	client, err := gateway.New(gateway.Options{BaseURL: upstream.URL})
	require.NoError(t, err)

	latest := &view.Latest{}
	d, err := desk.New(desk.Options{
		Gateway:      client,
		Forms:        forms.Context{SessionIDs: []string{"S1"}, Symbols: []string{"AAPL"}},
		Surface:      latest,
		PollInterval: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	require.NoError(t, d.Start("/"))

	return &console{
		backend: backend,
		desk:    d,
		handler: NewHandler(config.EnvDev, d, latest, nil),
	}
}

func (c *console) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decodeScreen(t *testing.T, rec *httptest.ResponseRecorder) screenPayload {
	t.Helper()
	var payload screenPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestGetScreenReturnsLatestFrame(t *testing.T) {
	c := newConsole(t)

	rec := c.do(t, http.MethodGet, "/screen", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	payload := decodeScreen(t, rec)
	require.NotZero(t, payload.Renders)
	require.Equal(t, router.ScreenOrders, payload.Frame.Screen)
	require.Len(t, payload.Frame.Forms, 1)
	require.Equal(t, "order_ticket", payload.Frame.Forms[0].Name)
}

func TestNavigateAndBack(t *testing.T) {
	c := newConsole(t)

	rec := c.do(t, http.MethodPost, "/navigate", navigatePayload{Path: "/marketdata"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, router.ScreenMarketData, decodeScreen(t, rec).Frame.Screen)

	rec = c.do(t, http.MethodPost, "/navigate", navigatePayload{Path: "/nowhere"})
	require.Equal(t, http.StatusOK, rec.Code)
	frame := decodeScreen(t, rec).Frame
	require.Equal(t, router.ScreenNotFound, frame.Screen)
	require.NotNil(t, frame.Status)
	require.Equal(t, view.StatusError, frame.Status.Level)

	rec = c.do(t, http.MethodPost, "/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, router.ScreenMarketData, decodeScreen(t, rec).Frame.Screen)

	rec = c.do(t, http.MethodPost, "/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, router.ScreenOrders, decodeScreen(t, rec).Frame.Screen)

	rec = c.do(t, http.MethodPost, "/back", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestNavigateRequiresPath(t *testing.T) {
	c := newConsole(t)

	rec := c.do(t, http.MethodPost, "/navigate", navigatePayload{Path: "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "path required", decodeError(t, rec)["error"])

	req := httptest.NewRequest(http.MethodPost, "/navigate", strings.NewReader("{"))
	raw := httptest.NewRecorder()
	c.handler.ServeHTTP(raw, req)
	require.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestSetFieldActionUpdatesForm(t *testing.T) {
	c := newConsole(t)

	rec := c.do(t, http.MethodPost, "/actions", actionPayload{Action: "change_ord_type", Value: "2"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	fields := decodeScreen(t, rec).Frame.Forms[0].Fields
	for _, f := range fields {
		switch f.Name {
		case string(forms.FieldOrdType):
			require.Equal(t, "2", f.Value)
		case string(forms.FieldPrice):
			require.True(t, f.Enabled)
		case string(forms.FieldStopPrice):
			require.False(t, f.Enabled)
		}
	}
}

func TestActionErrorsMapToStatus(t *testing.T) {
	c := newConsole(t)

	rec := c.do(t, http.MethodPost, "/actions", actionPayload{Action: "launch"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(t, http.MethodPost, "/actions", actionPayload{Action: "submit_ticket"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, "validation_rejected", body["code"])
	require.Equal(t, "Quantity is required", body["error"])

	rec = c.do(t, http.MethodPost, "/actions", actionPayload{Action: "row_details", ID: 99})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(t, http.MethodPost, "/actions", actionPayload{Action: "submit_marketdata"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeError(t, rec)["code"])

	require.Empty(t, c.backend.Requests())
}

func TestSubmitTicketReachesGateway(t *testing.T) {
	c := newConsole(t)

	for field, value := range map[forms.Field]string{
		forms.FieldSymbol:   "AAPL",
		forms.FieldQuantity: "100",
	} {
		rec := c.do(t, http.MethodPost, "/actions", actionPayload{Action: "set_field", Field: string(field), Value: value})
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	rec := c.do(t, http.MethodPost, "/actions", actionPayload{Action: "submit_ticket"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return len(c.backend.Orders()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	order := c.backend.Orders()[0]
	require.Equal(t, "AAPL", order.Symbol)
	require.Equal(t, "100", order.Quantity)
}

func TestRowDetailsOpensOrder(t *testing.T) {
	c := newConsole(t)
	c.backend.PutOrder(schema.Order{ID: 42, Symbol: "AAPL", Quantity: "10", Open: "10", Side: "1", OrdType: "2", Price: "150"})
	require.NoError(t, c.desk.Orders().Fetch(context.Background()))

	rec := c.do(t, http.MethodPost, "/actions", actionPayload{Action: "row_details", ID: 42})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := c.do(t, http.MethodGet, "/screen", nil)
		frame := decodeScreen(t, rec).Frame
		return frame.Screen == router.ScreenOrderDetail && frame.Detail != nil && frame.Detail.Loaded
	}, 2*time.Second, 10*time.Millisecond)

	rec = c.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health["status"])
	require.Equal(t, "dev", health["environment"])
	require.Equal(t, "/orders/42", health["path"])
	require.Equal(t, string(router.ScreenOrderDetail), health["screen"])
}

func TestMethodNotAllowed(t *testing.T) {
	c := newConsole(t)

	rec := c.do(t, http.MethodDelete, "/screen", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, http.MethodGet, rec.Header().Get("Allow"))

	rec = c.do(t, http.MethodOptions, "/actions", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusForCodes(t *testing.T) {
	cases := map[string]int{
		"not_found":           http.StatusNotFound,
		"validation_rejected": http.StatusUnprocessableEntity,
		"invalid_request":     http.StatusBadRequest,
		"network_unavailable": http.StatusBadGateway,
		"server_error":        http.StatusBadGateway,
		"unavailable":         http.StatusServiceUnavailable,
		"":                    http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, statusFor(errs.Code(code)), code)
	}
}
