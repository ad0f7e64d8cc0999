package fake

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/coachpo/traderdesk/internal/domain/schema"
	"github.com/coachpo/traderdesk/internal/observability"
)

const maxJSONBodyBytes int64 = 1 << 20

type handlerFunc func(http.ResponseWriter, *http.Request)

type server struct {
	backend *Backend
	logger  observability.Logger
}

// NewHandler exposes the backend as the gateway REST resource set. Amend is
// served on both PATCH and the legacy PUT.
func NewHandler(backend *Backend, logger observability.Logger) http.Handler {
	s := &server{backend: backend, logger: observability.OrDefault(logger)}
	mux := http.NewServeMux()

	mux.Handle("/orders", s.methodHandlers("orders", map[string]handlerFunc{
		http.MethodGet:  s.listOrders,
		http.MethodPost: s.createOrder,
	}))
	mux.Handle("/orders/", s.methodHandlers("orders", map[string]handlerFunc{
		http.MethodGet:    s.getOrder,
		http.MethodPatch:  s.amendOrder,
		http.MethodPut:    s.amendOrder,
		http.MethodDelete: s.cancelOrder,
	}))
	mux.Handle("/executions", s.methodHandlers("executions", map[string]handlerFunc{
		http.MethodGet: s.listExecutions,
	}))
	mux.Handle("/executions/", s.methodHandlers("executions", map[string]handlerFunc{
		http.MethodGet: s.getExecution,
	}))
	mux.Handle("/instruments", s.methodHandlers("instruments", map[string]handlerFunc{
		http.MethodGet: s.listInstruments,
	}))
	mux.Handle("/marketdata", s.methodHandlers("marketdata", map[string]handlerFunc{
		http.MethodGet: s.listMarketData,
	}))
	mux.Handle("/securitydefinitionrequest", s.methodHandlers("securitydefinitionrequest", map[string]handlerFunc{
		http.MethodPost: s.securityDefinitionRequest,
	}))
	mux.Handle("/marketdatarequest", s.methodHandlers("marketdatarequest", map[string]handlerFunc{
		http.MethodPost: s.marketDataRequest,
	}))
	return mux
}

// methodHandlers routes by method, records the call and applies injected failures.
func (s *server) methodHandlers(resource string, handlers map[string]handlerFunc) http.Handler {
	allowed := make([]string, 0, len(handlers))
	for method := range handlers {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := handlers[r.Method]
		if !ok {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		s.backend.record(Request{Method: r.Method, Path: r.URL.Path, Body: body})

		if status := s.backend.takeFailure(resource, r.Method); status != 0 {
			s.logger.Warn("fake gateway injected failure",
				observability.F("resource", resource),
				observability.F("method", r.Method),
				observability.F("status", status))
			http.Error(w, http.StatusText(status), status)
			return
		}
		handler(w, r)
	})
}

func (s *server) listOrders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Orders())
}

func (s *server) listExecutions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Executions())
}

func (s *server) listInstruments(w http.ResponseWriter, _ *http.Request) {
	items := s.backend.Instruments()
	if len(items) == 0 && s.legacyEmpty() {
		writeRaw(w, "[no instruments]")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *server) listMarketData(w http.ResponseWriter, _ *http.Request) {
	items := s.backend.MarketData()
	if len(items) == 0 && s.legacyEmpty() {
		writeRaw(w, "[no market data]")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *server) legacyEmpty() bool {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	return s.backend.legacyEmptyList
}

func (s *server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/orders/")
	if !ok {
		return
	}
	order, found := s.backend.Order(id)
	if !found {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *server) getExecution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/executions/")
	if !ok {
		return
	}
	exec, found := s.backend.Execution(id)
	if !found {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req schema.NewOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	order, err := s.backend.CreateOrder(req)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	s.logger.Info("fake gateway order accepted",
		observability.F("id", order.ID),
		observability.F("symbol", order.Symbol))
	writeJSON(w, http.StatusCreated, order)
}

func (s *server) amendOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/orders/")
	if !ok {
		return
	}
	var req schema.AmendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	order, err := s.backend.AmendOrder(id, req)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/orders/")
	if !ok {
		return
	}
	order, err := s.backend.CancelOrder(id)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *server) securityDefinitionRequest(w http.ResponseWriter, r *http.Request) {
	var req schema.SecurityDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.backend.RequestSecurityDefinition(req); err != nil {
		s.writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) marketDataRequest(w http.ResponseWriter, r *http.Request) {
	var req schema.MarketDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.backend.RequestMarketData(req); err != nil {
		s.writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) writeBackendError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, errNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errOrderClosed):
		status = http.StatusConflict
	}
	s.logger.Warn("fake gateway rejected request", observability.Err(err), observability.F("status", status))
	http.Error(w, err.Error(), status)
}

func pathID(w http.ResponseWriter, r *http.Request, prefix string) (int, bool) {
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 || strings.Contains(raw, "/") {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRaw(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
