// Package gateway implements the REST client for the trading gateway resource set.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/infra/telemetry"
	"github.com/coachpo/traderdesk/internal/observability"
)

// Resource names as they appear in gateway paths.
const (
	ResourceOrders        = "orders"
	ResourceExecutions    = "executions"
	ResourceInstruments   = "instruments"
	ResourceMarketData    = "marketdata"
	ResourceSecDefRequest = "securitydefinitionrequest"
	ResourceMarketDataReq = "marketdatarequest"
)

const (
	headerRequestID         = "X-Request-ID"
	maxErrorBodyBytes       = 4 << 10
	maxResponseBodyBytes    = 16 << 20
	defaultRequestTimeout   = 5 * time.Second
	defaultWriteBurst       = 1
	contentTypeJSON         = "application/json"
	throttledWriteMessage   = "write throttled, retry shortly"
	transportFailureMessage = "gateway unreachable"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	WriteRate  float64
	WriteBurst int
	HTTPClient *http.Client
	Logger     observability.Logger
}

// Client talks to the gateway REST surface. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	writes  *rate.Limiter
	logger  observability.Logger

	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// New constructs a gateway client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	limit := rate.Inf
	if opts.WriteRate > 0 {
		limit = rate.Limit(opts.WriteRate)
	}
	burst := opts.WriteBurst
	if burst <= 0 {
		burst = defaultWriteBurst
	}

	client := &Client{
		baseURL: base,
		http:    httpClient,
		timeout: timeout,
		writes:  rate.NewLimiter(limit, burst),
		logger:  observability.OrDefault(opts.Logger),
	}

	meter := otel.Meter("gateway")
	client.requestCounter, _ = meter.Int64Counter("gateway.requests",
		metric.WithDescription("Gateway REST requests by resource, method and result"),
		metric.WithUnit("{request}"))
	client.requestDuration, _ = meter.Float64Histogram("gateway.request.duration",
		metric.WithDescription("Gateway REST round trip duration"),
		metric.WithUnit("ms"))
	return client, nil
}

// BaseURL returns the normalised gateway root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one round trip and returns the raw response body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, resource, path string, body any) (raw []byte, err error) {
	requestID := uuid.NewString()
	started := time.Now()
	defer func() {
		c.record(ctx, resource, method, started, err)
	}()

	if isWrite(method) && !c.writes.Allow() {
		return nil, errs.New(resource, errs.CodeValidationRejected,
			errs.WithMessage(throttledWriteMessage),
			errs.WithRequestID(requestID),
			errs.WithField("method", method))
	}

	var payload io.Reader
	if body != nil {
		encoded, encErr := json.Marshal(body)
		if encErr != nil {
			return nil, errs.New(resource, errs.CodeInvalid,
				errs.WithMessage("encode request body"),
				errs.WithCause(encErr))
		}
		payload = bytes.NewReader(encoded)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, errs.New(resource, errs.CodeInvalid,
			errs.WithMessage("create request"),
			errs.WithCause(err))
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(headerRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	c.logger.Debug("gateway request",
		observability.F("method", method),
		observability.F("path", path),
		observability.F("request_id", requestID))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.New(resource, errs.CodeNetworkUnavailable,
			errs.WithMessage(transportFailureMessage),
			errs.WithRequestID(requestID),
			errs.WithField("method", method),
			errs.WithCause(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, statusError(resource, method, requestID, resp.StatusCode, text)
	}

	raw, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		code := errs.CodeNetworkUnavailable
		if !isTransportError(err) {
			code = errs.CodeServerError
		}
		return nil, errs.New(resource, code,
			errs.WithMessage("read response body"),
			errs.WithRequestID(requestID),
			errs.WithHTTP(resp.StatusCode),
			errs.WithCause(err))
	}
	return raw, nil
}

func (c *Client) record(ctx context.Context, resource, method string, started time.Time, err error) {
	result := telemetry.ResultOK
	if err != nil {
		result = string(errs.KindOf(err))
	}
	attrs := metric.WithAttributes(telemetry.RequestAttributes(resource, method, result)...)
	// The caller context may already be done; metrics must still land.
	ctx = context.WithoutCancel(ctx)
	c.requestCounter.Add(ctx, 1, attrs)
	c.requestDuration.Record(ctx, float64(time.Since(started).Microseconds())/1000, attrs)
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func isTransportError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// statusError maps a non-2xx answer onto the error taxonomy.
func statusError(resource, method, requestID string, status int, body []byte) error {
	var code errs.Code
	switch {
	case status == http.StatusNotFound:
		code = errs.CodeNotFound
	case status == http.StatusBadRequest,
		status == http.StatusConflict,
		status == http.StatusUnprocessableEntity:
		code = errs.CodeValidationRejected
	default:
		code = errs.CodeServerError
	}
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(status)
	}
	return errs.New(resource, code,
		errs.WithHTTP(status),
		errs.WithMessage(message),
		errs.WithRequestID(requestID),
		errs.WithField("method", method))
}

// decodeList decodes a list body. Missing, null and the legacy bracketed
// placeholder text ("[no instruments]") decode as an empty list.
func decodeList[T any](resource string, raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if !json.Valid(trimmed) {
		if trimmed[0] == '[' && trimmed[len(trimmed)-1] == ']' {
			return []T{}, nil
		}
		return nil, errs.New(resource, errs.CodeServerError,
			errs.WithMessage("list body is not json"))
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, errs.New(resource, errs.CodeServerError,
			errs.WithMessage("decode list"),
			errs.WithCause(err))
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// decodeOne decodes a single record. An empty body leaves out untouched.
func decodeOne(resource string, raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return errs.New(resource, errs.CodeServerError,
			errs.WithMessage("decode record"),
			errs.WithCause(err))
	}
	return nil
}
