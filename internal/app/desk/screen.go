package desk

import (
	"context"
	"errors"
	"fmt"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/app/detail"
	"github.com/coachpo/traderdesk/internal/app/forms"
	"github.com/coachpo/traderdesk/internal/app/router"
	"github.com/coachpo/traderdesk/internal/app/view"
	"github.com/coachpo/traderdesk/internal/domain/schema"
	"github.com/coachpo/traderdesk/internal/observability"
)

// screen is one activation of a route. Everything it holds is discarded when
// another route is activated, drafts included.
type screen struct {
	gen   uint64
	route router.Route

	ticket *forms.OrderTicket
	secdef *forms.SecurityDefinitionForm
	md     *forms.MarketDataForm

	order     *detail.OrderController
	execution *detail.ExecutionController

	unsubscribe []func()

	// status is guarded by Desk.mu.
	status *view.Status
}

func (s *screen) form() forms.Form {
	switch {
	case s.ticket != nil:
		return s.ticket
	case s.secdef != nil:
		return s.secdef
	case s.md != nil:
		return s.md
	default:
		return nil
	}
}

func (s *screen) teardown() {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
}

// activate is the router callback. It builds the screen fresh, swaps it in,
// and tears the previous one down.
func (d *Desk) activate(route router.Route) {
	gen := d.generation.Add(1)
	s := d.buildScreen(gen, route)

	d.mu.Lock()
	previous := d.screen
	d.screen = s
	d.mu.Unlock()

	if previous != nil {
		previous.teardown()
	}
	d.mount(s)
	d.rerender(gen)

	if s.order != nil || s.execution != nil {
		d.load(s)
	}
}

func (d *Desk) buildScreen(gen uint64, route router.Route) *screen {
	s := &screen{gen: gen, route: route}
	switch route.Screen {
	case router.ScreenOrders, router.ScreenExecutions:
		s.ticket = forms.NewOrderTicket(d.fc, d.gw)
	case router.ScreenSecDefs:
		s.secdef = forms.NewSecurityDefinitionForm(d.fc, d.gw)
	case router.ScreenMarketData:
		s.md = forms.NewMarketDataForm(d.fc, d.gw)
	case router.ScreenOrderDetail:
		s.order = detail.NewOrderController(d.gw, d.orders, d.guardedNavigator(gen), d.logger)
	case router.ScreenExecutionDetail:
		s.execution = detail.NewExecutionController(d.gw, d.logger)
	}
	return s
}

// mount subscribes the screen's table to its collection.
func (d *Desk) mount(s *screen) {
	redraw := func() { d.rerender(s.gen) }
	var unsubscribe func()
	switch s.route.Screen {
	case router.ScreenOrders:
		unsubscribe = d.orders.Subscribe(func([]schema.Order) { redraw() })
	case router.ScreenExecutions:
		unsubscribe = d.executions.Subscribe(func([]schema.Execution) { redraw() })
	case router.ScreenSecDefs:
		unsubscribe = d.instruments.Subscribe(func([]schema.Instrument) { redraw() })
	case router.ScreenMarketData:
		unsubscribe = d.marketData.Subscribe(func([]schema.MarketData) { redraw() })
	}
	if unsubscribe != nil {
		s.unsubscribe = append(s.unsubscribe, unsubscribe)
	}
}

// guardedNavigator only navigates while the screen that created it is mounted.
// The generation is compared under the router's navigation lock.
func (d *Desk) guardedNavigator(gen uint64) detail.Navigator {
	return detail.NavigatorFunc(func(path string) error {
		moved, err := d.router.NavigateIf(func() bool {
			return d.generation.Load() == gen
		}, path)
		if err == nil && !moved {
			d.recordStale(gen, "navigate")
		}
		return err
	})
}

// load fetches the record of a detail screen off the caller's goroutine.
func (d *Desk) load(s *screen) {
	err := d.submit(context.Background(), func(ctx context.Context) error {
		var err error
		switch {
		case s.order != nil:
			err = s.order.Load(ctx, s.route.ID)
		case s.execution != nil:
			err = s.execution.Load(ctx, s.route.ID)
		}
		d.complete(s.gen, "load", err, "")
		return err
	})
	if err != nil {
		d.complete(s.gen, "load", err, "")
	}
}

// complete applies the outcome of an async operation to the screen that
// started it, or drops it when that screen is gone.
func (d *Desk) complete(gen uint64, op string, err error, success string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.screen
	if s == nil || s.gen != gen {
		d.recordStale(gen, op)
		return
	}
	switch {
	case err != nil:
		s.status = failureStatus(op, err)
	case success != "":
		s.status = &view.Status{Level: view.StatusInfo, Message: success}
	}
	d.render(s)
}

// rerender redraws the mounted screen if it is still generation gen.
func (d *Desk) rerender(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.screen != nil && d.screen.gen == gen {
		d.render(d.screen)
	}
}

// render must be called with d.mu held.
func (d *Desk) render(s *screen) {
	frame := view.Frame{
		Generation: s.gen,
		Path:       s.route.Path,
		Screen:     s.route.Screen,
		Nav:        view.NavFor(s.route),
		Status:     s.status,
	}
	switch s.route.Screen {
	case router.ScreenOrders:
		frame.Forms = []view.FormView{view.ProjectForm(s.ticket, view.ActionSubmitTicket)}
		frame.Tables = []view.Table{view.OrdersTable(d.orders.Items())}
	case router.ScreenExecutions:
		frame.Forms = []view.FormView{view.ProjectForm(s.ticket, view.ActionSubmitTicket)}
		frame.Tables = []view.Table{view.ExecutionsTable(d.executions.Items())}
	case router.ScreenSecDefs:
		frame.Forms = []view.FormView{view.ProjectForm(s.secdef, view.ActionSubmitSecDef)}
		frame.Tables = []view.Table{view.InstrumentsTable(d.instruments.Items())}
	case router.ScreenMarketData:
		frame.Forms = []view.FormView{view.ProjectForm(s.md, view.ActionSubmitMarketData)}
		frame.Tables = []view.Table{view.MarketDataTable(d.marketData.Items())}
	case router.ScreenOrderDetail:
		frame.Detail = view.OrderDetail(s.order.Order())
	case router.ScreenExecutionDetail:
		frame.Detail = view.ExecutionDetail(s.execution.Execution())
	case router.ScreenNotFound:
		if frame.Status == nil {
			frame.Status = &view.Status{
				Level:   view.StatusError,
				Message: "nothing at " + s.route.Path,
				Kind:    string(errs.CodeNotFound),
			}
		}
	}
	d.surface.Render(frame)
}

func failureStatus(op string, err error) *view.Status {
	message := err.Error()
	var e *errs.E
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	return &view.Status{
		Level:   view.StatusError,
		Message: fmt.Sprintf("%s failed: %s", op, message),
		Kind:    string(errs.KindOf(err)),
	}
}

func (d *Desk) logFailure(op string, err error, fields ...observability.Field) {
	fields = append(fields,
		observability.F("operation", op),
		observability.F("kind", string(errs.KindOf(err))),
		observability.Err(err))
	if errs.Is(err, errs.CodeValidationRejected) || errs.Is(err, errs.CodeInvalid) {
		d.logger.Warn("action rejected", fields...)
		return
	}
	d.logger.Error("action failed", fields...)
}
