// Package fake provides an in-memory trading gateway serving the REST resource
// set for tests and local development.
package fake

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coachpo/traderdesk/internal/domain/schema"
)

var (
	errInvalidSession = errors.New("Invalid SessionID")
	errOrderClosed    = errors.New("order is closed")
	errNotFound       = errors.New("not found")
)

// Options configures the backend.
type Options struct {
	SessionIDs []string
	Clock      func() time.Time
}

// Backend holds gateway state. All methods are safe for concurrent use.
type Backend struct {
	mu sync.RWMutex

	sessions    map[string]struct{}
	orders      map[int]schema.Order
	executions  map[int]schema.Execution
	instruments []schema.Instrument
	marketData  []schema.MarketData

	nextOrderID     int
	nextExecID      int
	nextInstrument  int
	nextSecDefReq   int
	nextMarketData  int
	nextClOrdID     int
	failures        map[failureKey]failure
	requests        []Request
	clock           func() time.Time
	legacyEmptyList bool
}

type failureKey struct {
	resource string
	method   string
}

type failure struct {
	status    int
	remaining int
}

// Request records one call received by the handler.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// NewBackend constructs an empty backend accepting the given sessions.
func NewBackend(opts Options) *Backend {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	b := &Backend{
		sessions:        make(map[string]struct{}, len(opts.SessionIDs)),
		orders:          make(map[int]schema.Order),
		executions:      make(map[int]schema.Execution),
		failures:        make(map[failureKey]failure),
		clock:           clock,
		legacyEmptyList: true,
	}
	for _, id := range opts.SessionIDs {
		b.sessions[id] = struct{}{}
	}
	return b
}

// SetLegacyEmptyLists toggles the bracketed placeholder answer for empty
// instrument and market data lists.
func (b *Backend) SetLegacyEmptyLists(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.legacyEmptyList = enabled
}

// FailWith makes the next count calls of method on resource answer status.
// A negative count fails until ClearFailures; zero removes any pending failure.
func (b *Backend) FailWith(resource, method string, status, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := failureKey{resource: resource, method: method}
	if count == 0 {
		delete(b.failures, key)
		return
	}
	b.failures[key] = failure{status: status, remaining: count}
}

// ClearFailures removes all injected failures.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[failureKey]failure)
}

func (b *Backend) takeFailure(resource, method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := failureKey{resource: resource, method: method}
	f, ok := b.failures[key]
	if !ok {
		return 0
	}
	switch {
	case f.remaining < 0:
	case f.remaining <= 1:
		delete(b.failures, key)
	default:
		f.remaining--
		b.failures[key] = f
	}
	return f.status
}

// Requests returns the calls received so far.
func (b *Backend) Requests() []Request {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Request(nil), b.requests...)
}

func (b *Backend) record(req Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
}

// PutOrder stores an order as-is, assigning an id when it has none.
func (b *Backend) PutOrder(order schema.Order) schema.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	if order.ID == 0 {
		b.nextOrderID++
		order.ID = b.nextOrderID
	} else if order.ID > b.nextOrderID {
		b.nextOrderID = order.ID
	}
	b.orders[order.ID] = order
	return order
}

// RemoveOrder drops an order without a cancel, as a backend purge would.
func (b *Backend) RemoveOrder(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.orders, id)
}

// Order returns the stored order.
func (b *Backend) Order(id int) (schema.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	order, ok := b.orders[id]
	return order, ok
}

// Orders returns all orders sorted by id.
func (b *Backend) Orders() []schema.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]schema.Order, 0, len(b.orders))
	for _, order := range b.orders {
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Executions returns all executions sorted by id.
func (b *Backend) Executions() []schema.Execution {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]schema.Execution, 0, len(b.executions))
	for _, exec := range b.executions {
		out = append(out, exec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Execution returns the stored execution.
func (b *Backend) Execution(id int) (schema.Execution, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	exec, ok := b.executions[id]
	return exec, ok
}

// Instruments returns the instruments produced so far.
func (b *Backend) Instruments() []schema.Instrument {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]schema.Instrument(nil), b.instruments...)
}

// MarketData returns the market data entries produced so far.
func (b *Backend) MarketData() []schema.MarketData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]schema.MarketData(nil), b.marketData...)
}

func (b *Backend) validSession(id string) bool {
	_, ok := b.sessions[id]
	return ok
}

// CreateOrder validates and stores a new order, returning the stored record.
func (b *Backend) CreateOrder(req schema.NewOrderRequest) (schema.Order, error) {
	if err := validateOrder(req); err != nil {
		return schema.Order{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.validSession(req.SessionID) {
		return schema.Order{}, errInvalidSession
	}
	b.nextOrderID++
	b.nextClOrdID++
	order := schema.Order{
		ID:                b.nextOrderID,
		ClOrdID:           strconv.Itoa(b.nextClOrdID),
		Symbol:            req.Symbol,
		Quantity:          req.Quantity,
		PartyID:           req.PartyID,
		SessionID:         req.SessionID,
		Side:              req.Side,
		OrdType:           req.OrdType,
		Price:             req.Price,
		StopPrice:         req.StopPrice,
		TIF:               req.TIF,
		Closed:            "0",
		Open:              req.Quantity,
		AvgPx:             "0.00",
		SecurityType:      req.SecurityType,
		SecurityDesc:      req.SecurityDesc,
		MaturityMonthYear: req.MaturityMonthYear,
		MaturityDay:       req.MaturityDay,
		PutOrCall:         req.PutOrCall,
		StrikePrice:       req.StrikePrice,
		Status:            "New",
	}
	b.orders[order.ID] = order
	return order, nil
}

// validateOrder parses the numeric fields the way order entry does: quantity
// always, prices only when the order type uses them.
func validateOrder(req schema.NewOrderRequest) error {
	if _, err := schema.ParseQuantity(req.Quantity); err != nil {
		return errors.New("Invalid Qty")
	}
	if req.StrikePrice != "" {
		if _, err := decimal.NewFromString(req.StrikePrice); err != nil {
			return errors.New("Invalid StrikePrice")
		}
	}
	switch req.OrdType {
	case schema.OrdTypeLimit, schema.OrdTypeStopLimit:
		if _, err := decimal.NewFromString(req.Price); err != nil {
			return errors.New("Invalid Price")
		}
	}
	switch req.OrdType {
	case schema.OrdTypeStop, schema.OrdTypeStopLimit:
		if _, err := decimal.NewFromString(req.StopPrice); err != nil {
			return errors.New("Invalid StopPrice")
		}
	}
	if strings.TrimSpace(req.Symbol) == "" {
		return errors.New("Invalid Symbol")
	}
	return nil
}

// AmendOrder replaces the quantity of a live order.
func (b *Backend) AmendOrder(id int, req schema.AmendRequest) (schema.Order, error) {
	qty, err := schema.ParseQuantity(req.Quantity)
	if err != nil {
		return schema.Order{}, errors.New("Invalid Qty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	order, ok := b.orders[id]
	if !ok {
		return schema.Order{}, errNotFound
	}
	if !order.Live() {
		return schema.Order{}, errOrderClosed
	}
	closed, err := decimal.NewFromString(order.Closed)
	if err != nil {
		closed = decimal.Zero
	}
	if qty.LessThanOrEqual(closed) {
		return schema.Order{}, fmt.Errorf("quantity must exceed filled %s", closed.String())
	}
	order.Quantity = req.Quantity
	order.Open = qty.Sub(closed).String()
	b.nextClOrdID++
	order.ClOrdID = strconv.Itoa(b.nextClOrdID)
	order.Status = "Replaced"
	b.orders[id] = order
	return order, nil
}

// CancelOrder closes a live order. The record stays listed with open "0".
func (b *Backend) CancelOrder(id int) (schema.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	order, ok := b.orders[id]
	if !ok {
		return schema.Order{}, errNotFound
	}
	if !order.Live() {
		return schema.Order{}, errOrderClosed
	}
	order.Open = schema.ClosedMarker
	b.nextClOrdID++
	order.ClOrdID = strconv.Itoa(b.nextClOrdID)
	order.Status = "Canceled"
	b.orders[id] = order
	return order, nil
}

// Fill executes qty of a live order at price and records the execution.
func (b *Backend) Fill(id int, qty, price string) (schema.Execution, error) {
	fillQty, err := decimal.NewFromString(qty)
	if err != nil || !fillQty.IsPositive() {
		return schema.Execution{}, errors.New("Invalid Qty")
	}
	fillPx, err := decimal.NewFromString(price)
	if err != nil {
		return schema.Execution{}, errors.New("Invalid Price")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	order, ok := b.orders[id]
	if !ok {
		return schema.Execution{}, errNotFound
	}
	if !order.Live() {
		return schema.Execution{}, errOrderClosed
	}
	open, _ := decimal.NewFromString(order.Open)
	closed, _ := decimal.NewFromString(order.Closed)
	if fillQty.GreaterThan(open) {
		fillQty = open
	}
	avg, _ := decimal.NewFromString(order.AvgPx)
	totalClosed := closed.Add(fillQty)
	if totalClosed.IsPositive() {
		avg = avg.Mul(closed).Add(fillPx.Mul(fillQty)).Div(totalClosed)
	}
	order.Closed = totalClosed.String()
	order.Open = open.Sub(fillQty).String()
	order.AvgPx = avg.StringFixed(2)
	if order.Open == "0" {
		order.Status = "Filled"
	} else {
		order.Status = "Partially Filled"
	}
	b.orders[id] = order

	b.nextExecID++
	exec := schema.Execution{
		ID:        b.nextExecID,
		Symbol:    order.Symbol,
		Quantity:  fillQty.String(),
		Side:      order.Side,
		Price:     fillPx.String(),
		SessionID: order.SessionID,
	}
	b.executions[exec.ID] = exec
	return exec, nil
}

// RequestSecurityDefinition answers a definition request with a small option
// chain on the requested symbol.
func (b *Backend) RequestSecurityDefinition(req schema.SecurityDefinitionRequest) error {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return errors.New("Invalid Symbol")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.validSession(req.SessionID) {
		return errInvalidSession
	}
	b.nextSecDefReq++
	issued := b.clock().UTC()
	expiry := issued.AddDate(0, 1, 0)
	for _, strike := range []int64{90, 100, 110} {
		for _, side := range []schema.PutOrCall{schema.Put, schema.Call} {
			b.nextInstrument++
			suffix := "P"
			if side == schema.Call {
				suffix = "C"
			}
			name := fmt.Sprintf("%s-%s-%d-%s", symbol, strings.ToUpper(expiry.Format("02Jan06")), strike, suffix)
			b.instruments = append(b.instruments, schema.Instrument{
				ID:             b.nextInstrument,
				RequestID:      b.nextSecDefReq,
				InstrumentName: name,
				SecurityDesc:   name,
				SecurityType:   string(schema.SecurityTypeOption),
				PutOrCall:      string(side),
				StrikeCurrency: "USD",
				StrikePrice:    decimal.NewFromInt(strike),
				Underlying:     symbol,
				IssueDate:      issued.Format("20060102"),
				SecurityStatus: "1",
			})
		}
	}
	return nil
}

// RequestMarketData answers a market data request with one entry per symbol
// and selected entry type.
func (b *Backend) RequestMarketData(req schema.MarketDataRequest) error {
	var symbols []string
	for _, s := range strings.Split(req.Symbol, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}
	if len(symbols) == 0 {
		return errors.New("Invalid Symbol")
	}
	var entries []string
	for _, entry := range []string{req.Bid, req.Ask, req.Trade} {
		if entry != "" {
			entries = append(entries, entry)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.validSession(req.SessionID) {
		return errInvalidSession
	}
	now := b.clock().UTC().Format(time.RFC3339)
	for _, symbol := range symbols {
		for i, entry := range entries {
			b.nextMarketData++
			b.marketData = append(b.marketData, schema.MarketData{
				ID:             b.nextMarketData,
				InstrumentName: symbol,
				Side:           entry,
				Contract:       symbol,
				Price:          decimal.NewFromInt(100).Add(decimal.New(int64(i*5), -2)),
				Amount:         decimal.NewFromInt(10),
				Date:           now,
				Status:         "0",
				MDActionUpdate: "0",
			})
		}
	}
	return nil
}
