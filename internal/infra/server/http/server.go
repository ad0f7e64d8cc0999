// Package httpserver exposes the operator console: the rendered screen plus
// navigation and action endpoints driving the desk.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/app/router"
	"github.com/coachpo/traderdesk/internal/app/view"
	"github.com/coachpo/traderdesk/internal/infra/config"
	"github.com/coachpo/traderdesk/internal/observability"
)

const (
	maxJSONBodyBytes int64 = 1 << 20 // 1 MiB

	screenPath   = "/screen"
	navigatePath = "/navigate"
	backPath     = "/back"
	actionsPath  = "/actions"
	healthPath   = "/healthz"
)

type handlerFunc func(http.ResponseWriter, *http.Request)

// Desk is the part of the application context the console drives.
type Desk interface {
	Navigate(path string) error
	Back() bool
	Current() (router.Route, bool)
	Dispatch(ctx context.Context, ev view.Event) error
}

// Frames supplies the most recently rendered frame.
type Frames interface {
	Frame() (view.Frame, uint64)
}

type httpServer struct {
	environment config.Environment
	desk        Desk
	frames      Frames
	logger      observability.Logger
}

type screenPayload struct {
	Renders uint64     `json:"renders"`
	Frame   view.Frame `json:"frame"`
}

type navigatePayload struct {
	Path string `json:"path"`
}

type actionPayload struct {
	Action string `json:"action"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	ID     int    `json:"id"`
}

// NewHandler creates the console HTTP handler.
func NewHandler(environment config.Environment, desk Desk, frames Frames, logger observability.Logger) http.Handler {
	server := &httpServer{
		environment: environment,
		desk:        desk,
		frames:      frames,
		logger:      observability.OrDefault(logger),
	}
	mux := http.NewServeMux()

	mux.Handle(screenPath, server.methodHandlers(map[string]handlerFunc{
		http.MethodGet: server.getScreen,
	}))
	mux.Handle(navigatePath, server.methodHandlers(map[string]handlerFunc{
		http.MethodPost: server.navigate,
	}))
	mux.Handle(backPath, server.methodHandlers(map[string]handlerFunc{
		http.MethodPost: server.back,
	}))
	mux.Handle(actionsPath, server.methodHandlers(map[string]handlerFunc{
		http.MethodPost: server.dispatch,
	}))
	mux.Handle(healthPath, server.methodHandlers(map[string]handlerFunc{
		http.MethodGet: server.health,
	}))

	return withCORS(mux)
}

func (s *httpServer) methodHandlers(handlers map[string]handlerFunc) http.Handler {
	allowed := allowedMethods(handlers)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler(w, r)
			return
		}
		methodNotAllowed(w, allowed...)
	})
}

func allowedMethods(handlers map[string]handlerFunc) []string {
	if len(handlers) == 0 {
		return nil
	}
	allowed := make([]string, 0, len(handlers))
	for method := range handlers {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	return allowed
}

func (s *httpServer) getScreen(w http.ResponseWriter, _ *http.Request) {
	s.writeScreen(w, http.StatusOK)
}

func (s *httpServer) writeScreen(w http.ResponseWriter, status int) {
	frame, renders := s.frames.Frame()
	writeJSON(w, status, screenPayload{Renders: renders, Frame: frame})
}

func (s *httpServer) navigate(w http.ResponseWriter, r *http.Request) {
	limitRequestBody(w, r)
	var payload navigatePayload
	if err := decodePayload(r, &payload); err != nil {
		writeDecodeError(w, err)
		return
	}
	path := strings.TrimSpace(payload.Path)
	if path == "" {
		writeError(w, http.StatusBadRequest, "path required")
		return
	}
	if err := s.desk.Navigate(path); err != nil {
		s.writeDeskError(w, err)
		return
	}
	s.writeScreen(w, http.StatusOK)
}

func (s *httpServer) back(w http.ResponseWriter, _ *http.Request) {
	if !s.desk.Back() {
		writeError(w, http.StatusConflict, "no previous screen")
		return
	}
	s.writeScreen(w, http.StatusOK)
}

// dispatch answers 202 once the action is accepted; queued writes report
// their outcome through the screen status.
func (s *httpServer) dispatch(w http.ResponseWriter, r *http.Request) {
	limitRequestBody(w, r)
	var payload actionPayload
	if err := decodePayload(r, &payload); err != nil {
		writeDecodeError(w, err)
		return
	}
	action, ok := view.ParseAction(strings.TrimSpace(payload.Action))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", payload.Action))
		return
	}
	ev := view.Event{
		Action: action,
		Field:  strings.TrimSpace(payload.Field),
		Value:  payload.Value,
		ID:     payload.ID,
	}
	if err := s.desk.Dispatch(r.Context(), ev); err != nil {
		s.writeDeskError(w, err)
		return
	}
	s.writeScreen(w, http.StatusAccepted)
}

func (s *httpServer) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":      "ok",
		"environment": string(s.environment),
	}
	if route, ok := s.desk.Current(); ok {
		body["path"] = route.Path
		body["screen"] = string(route.Screen)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *httpServer) writeDeskError(w http.ResponseWriter, err error) {
	code := errs.KindOf(err)
	message := err.Error()
	var e *errs.E
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("console request failed", observability.F("code", string(code)), observability.Err(err))
	}
	writeJSON(w, status, map[string]string{"status": "error", "error": message, "code": string(code)})
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeValidationRejected:
		return http.StatusUnprocessableEntity
	case errs.CodeInvalid:
		return http.StatusBadRequest
	case errs.CodeNetworkUnavailable, errs.CodeServerError:
		return http.StatusBadGateway
	case errs.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodePayload(r *http.Request, dst any) error {
	defer func() {
		_ = r.Body.Close()
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func limitRequestBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if isRequestTooLarge(err) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func isRequestTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": message})
}

func withCORS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
