// Package detail loads single gateway records on demand and runs the
// amend and cancel actions of the order detail screen.
package detail

import (
	"context"
	"strings"
	"sync"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/domain/schema"
	"github.com/coachpo/traderdesk/internal/observability"
)

// OrdersPath is where a successful amend or cancel returns to.
const OrdersPath = "/orders"

const (
	resourceOrders     = "orders"
	resourceExecutions = "executions"
)

// OrderSource reads and amends single orders.
type OrderSource interface {
	GetOrder(ctx context.Context, id int) (schema.Order, error)
	AmendOrder(ctx context.Context, id int, req schema.AmendRequest) (schema.Order, error)
}

// Destroyer deletes an order on the gateway, typically the orders collection.
type Destroyer interface {
	Destroy(ctx context.Context, id int) error
}

// ExecutionSource reads single executions.
type ExecutionSource interface {
	GetExecution(ctx context.Context, id int) (schema.Execution, error)
}

// Navigator moves the application to another path.
type Navigator interface {
	Navigate(path string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(path string) error { return f(path) }

// OrderController holds one order snapshot. The snapshot only changes when
// the gateway confirms a load or an amend.
type OrderController struct {
	source    OrderSource
	destroyer Destroyer
	nav       Navigator
	logger    observability.Logger

	mu     sync.RWMutex
	order  schema.Order
	loaded bool
}

// NewOrderController wires an order detail controller.
func NewOrderController(source OrderSource, destroyer Destroyer, nav Navigator, logger observability.Logger) *OrderController {
	return &OrderController{
		source:    source,
		destroyer: destroyer,
		nav:       nav,
		logger:    observability.OrDefault(logger),
	}
}

// Load fetches the order. A failure leaves the controller as it was.
func (c *OrderController) Load(ctx context.Context, id int) error {
	order, err := c.source.GetOrder(ctx, id)
	if err != nil {
		c.logger.Error("order load failed",
			observability.F("id", id),
			observability.F("kind", string(errs.KindOf(err))),
			observability.Err(err))
		return err
	}
	c.mu.Lock()
	c.order = order
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Order returns the loaded snapshot.
func (c *OrderController) Order() (schema.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order, c.loaded
}

// Actionable reports whether amend and cancel are offered.
func (c *OrderController) Actionable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded && c.order.Live()
}

func (c *OrderController) live() (schema.Order, error) {
	c.mu.RLock()
	order, loaded := c.order, c.loaded
	c.mu.RUnlock()
	if !loaded {
		return schema.Order{}, errs.New(resourceOrders, errs.CodeInvalid,
			errs.WithMessage("no order loaded"))
	}
	if !order.Live() {
		return schema.Order{}, errs.New(resourceOrders, errs.CodeValidationRejected,
			errs.WithMessage("order is closed"),
			errs.WithField("id", schema.FormatID(order.ID)))
	}
	return order, nil
}

// Cancel deletes a live order and returns to the orders list. A closed order
// is refused without contacting the gateway.
func (c *OrderController) Cancel(ctx context.Context) error {
	order, err := c.live()
	if err != nil {
		return err
	}
	if err := c.destroyer.Destroy(ctx, order.ID); err != nil {
		c.logger.Error("order cancel failed",
			observability.F("id", order.ID),
			observability.F("kind", string(errs.KindOf(err))),
			observability.Err(err))
		return err
	}
	c.logger.Info("order canceled", observability.F("id", order.ID))
	return c.navigate()
}

// Amend replaces the quantity of a live order and returns to the orders
// list. Only the quantity is sent.
func (c *OrderController) Amend(ctx context.Context, quantity string) error {
	order, err := c.live()
	if err != nil {
		return err
	}
	quantity = strings.TrimSpace(quantity)
	if _, err := schema.ParseQuantity(quantity); err != nil {
		return errs.New(resourceOrders, errs.CodeValidationRejected,
			errs.WithMessage("Invalid Qty"),
			errs.WithField("id", schema.FormatID(order.ID)),
			errs.WithCause(err))
	}

	updated, err := c.source.AmendOrder(ctx, order.ID, schema.AmendRequest{Quantity: quantity})
	if err != nil {
		c.logger.Error("order amend failed",
			observability.F("id", order.ID),
			observability.F("kind", string(errs.KindOf(err))),
			observability.Err(err))
		return err
	}
	if updated.ID == 0 {
		updated = order
		updated.Quantity = quantity
	}
	c.mu.Lock()
	c.order = updated
	c.mu.Unlock()
	c.logger.Info("order amended",
		observability.F("id", order.ID),
		observability.F("quantity", quantity))
	return c.navigate()
}

func (c *OrderController) navigate() error {
	if c.nav == nil {
		return nil
	}
	return c.nav.Navigate(OrdersPath)
}

// ExecutionController holds one execution snapshot.
type ExecutionController struct {
	source ExecutionSource
	logger observability.Logger

	mu        sync.RWMutex
	execution schema.Execution
	loaded    bool
}

// NewExecutionController wires an execution detail controller.
func NewExecutionController(source ExecutionSource, logger observability.Logger) *ExecutionController {
	return &ExecutionController{source: source, logger: observability.OrDefault(logger)}
}

// Load fetches the execution. A failure leaves the controller as it was.
func (c *ExecutionController) Load(ctx context.Context, id int) error {
	execution, err := c.source.GetExecution(ctx, id)
	if err != nil {
		c.logger.Error("execution load failed",
			observability.F("id", id),
			observability.F("resource", resourceExecutions),
			observability.Err(err))
		return err
	}
	c.mu.Lock()
	c.execution = execution
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Execution returns the loaded snapshot.
func (c *ExecutionController) Execution() (schema.Execution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.execution, c.loaded
}
