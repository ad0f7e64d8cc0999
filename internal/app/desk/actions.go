package desk

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/app/forms"
	"github.com/coachpo/traderdesk/internal/app/router"
	"github.com/coachpo/traderdesk/internal/app/view"
	"github.com/coachpo/traderdesk/internal/domain/schema"
	"github.com/coachpo/traderdesk/internal/infra/telemetry"
	"github.com/coachpo/traderdesk/internal/observability"
)

type handler func(ctx context.Context, s *screen, ev view.Event) error

func (d *Desk) actionTable() map[view.Action]handler {
	return map[view.Action]handler{
		view.ActionSubmitTicket:       d.submitTicket,
		view.ActionChangeOrdType:      d.changeField(forms.FieldOrdType),
		view.ActionChangeSecurityType: d.changeField(forms.FieldSecurityType),
		view.ActionSetField:           d.setField,
		view.ActionSubmitSecDef:       d.submitSecDef,
		view.ActionSubmitMarketData:   d.submitMarketData,
		view.ActionRowDetails:         d.rowDetails,
		view.ActionRowCancel:          d.rowCancel,
		view.ActionDetailCancel:       d.detailCancel,
		view.ActionDetailAmend:        d.detailAmend,
		view.ActionBack:               d.back,
	}
}

// Dispatch runs an action against the mounted screen. Writes are queued and
// Dispatch returns once they are accepted; their outcome shows up in the
// screen status.
func (d *Desk) Dispatch(ctx context.Context, ev view.Event) error {
	h, ok := d.handlers[ev.Action]
	if !ok {
		return errs.New(resource, errs.CodeInvalid,
			errs.WithMessage("unknown action"),
			errs.WithField("action", string(ev.Action)))
	}
	d.mu.Lock()
	s := d.screen
	d.mu.Unlock()
	if s == nil {
		return errs.New(resource, errs.CodeUnavailable, errs.WithMessage("no screen mounted"))
	}

	err := h(ctx, s, ev)
	result := telemetry.ResultOK
	if err != nil {
		result = string(errs.KindOf(err))
		d.logFailure(string(ev.Action), err, observability.F("screen", string(s.route.Screen)))
		d.complete(s.gen, string(ev.Action), err, "")
	}
	d.actionCounter.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		telemetry.ActionAttributes(string(s.route.Screen), string(ev.Action), result)...))
	return err
}

func unavailable(s *screen, action view.Action) error {
	return errs.New(resource, errs.CodeInvalid,
		errs.WithMessage("action not available on this screen"),
		errs.WithField("action", string(action)),
		errs.WithField("screen", string(s.route.Screen)))
}

// write queues a gateway write for screen s and reports its outcome to s.
func (d *Desk) write(ctx context.Context, s *screen, op string, success string, fn func(ctx context.Context) error) error {
	return d.submit(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			d.logFailure(op, err, observability.F("screen", string(s.route.Screen)))
		}
		d.complete(s.gen, op, err, success)
		return err
	})
}

// writeAndLeave queues a detail write whose controller navigates away on
// success. Only failures are reported to s; a success has already replaced
// the screen, or was dropped by the guarded navigator.
func (d *Desk) writeAndLeave(ctx context.Context, s *screen, op string, fn func(ctx context.Context) error) error {
	return d.submit(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			d.logFailure(op, err, observability.F("screen", string(s.route.Screen)))
			d.complete(s.gen, op, err, "")
		}
		return err
	})
}

func (d *Desk) submitTicket(ctx context.Context, s *screen, ev view.Event) error {
	if s.ticket == nil {
		return unavailable(s, ev.Action)
	}
	req, err := s.ticket.Freeze()
	if err != nil {
		return err
	}
	return d.write(ctx, s, "create order", "order submitted", func(ctx context.Context) error {
		_, err := s.ticket.Send(ctx, req)
		return err
	})
}

func (d *Desk) submitSecDef(ctx context.Context, s *screen, ev view.Event) error {
	if s.secdef == nil {
		return unavailable(s, ev.Action)
	}
	req, err := s.secdef.Freeze()
	if err != nil {
		return err
	}
	return d.write(ctx, s, "security definition request", "security definition requested", func(ctx context.Context) error {
		return s.secdef.Send(ctx, req)
	})
}

func (d *Desk) submitMarketData(ctx context.Context, s *screen, ev view.Event) error {
	if s.md == nil {
		return unavailable(s, ev.Action)
	}
	req, err := s.md.Freeze()
	if err != nil {
		return err
	}
	return d.write(ctx, s, "market data request", "market data requested", func(ctx context.Context) error {
		return s.md.Send(ctx, req)
	})
}

func (d *Desk) changeField(field forms.Field) handler {
	return func(ctx context.Context, s *screen, ev view.Event) error {
		if s.ticket == nil {
			return unavailable(s, ev.Action)
		}
		return d.set(s, s.ticket, field, ev.Value)
	}
}

func (d *Desk) setField(_ context.Context, s *screen, ev view.Event) error {
	form := s.form()
	if form == nil {
		return unavailable(s, ev.Action)
	}
	return d.set(s, form, forms.Field(ev.Field), ev.Value)
}

func (d *Desk) set(s *screen, form forms.Form, field forms.Field, value string) error {
	if err := form.Set(field, value); err != nil {
		return err
	}
	d.rerender(s.gen)
	return nil
}

func (d *Desk) rowDetails(_ context.Context, s *screen, ev view.Event) error {
	switch s.route.Screen {
	case router.ScreenOrders:
		if _, ok := d.orders.Get(ev.ID); !ok {
			return missingRow("orders", ev.ID)
		}
		return d.router.Navigate("/orders/" + schema.FormatID(ev.ID))
	case router.ScreenExecutions:
		if _, ok := d.executions.Get(ev.ID); !ok {
			return missingRow("executions", ev.ID)
		}
		return d.router.Navigate("/executions/" + schema.FormatID(ev.ID))
	default:
		return unavailable(s, ev.Action)
	}
}

// rowCancel deletes a live order from the list. The row disappears only
// once the gateway confirms.
func (d *Desk) rowCancel(ctx context.Context, s *screen, ev view.Event) error {
	if s.route.Screen != router.ScreenOrders {
		return unavailable(s, ev.Action)
	}
	order, ok := d.orders.Get(ev.ID)
	if !ok {
		return missingRow("orders", ev.ID)
	}
	if !order.Live() {
		return errs.New("orders", errs.CodeValidationRejected,
			errs.WithMessage("order is closed"),
			errs.WithField("id", schema.FormatID(order.ID)))
	}
	return d.write(ctx, s, "cancel order", "order canceled", func(ctx context.Context) error {
		return d.orders.Destroy(ctx, order.ID)
	})
}

func (d *Desk) detailCancel(ctx context.Context, s *screen, ev view.Event) error {
	if s.order == nil {
		return unavailable(s, ev.Action)
	}
	if err := closedOrder(s); err != nil {
		return err
	}
	return d.writeAndLeave(ctx, s, "cancel order", s.order.Cancel)
}

func (d *Desk) detailAmend(ctx context.Context, s *screen, ev view.Event) error {
	if s.order == nil {
		return unavailable(s, ev.Action)
	}
	if err := closedOrder(s); err != nil {
		return err
	}
	quantity := ev.Value
	return d.writeAndLeave(ctx, s, "amend order", func(ctx context.Context) error {
		return s.order.Amend(ctx, quantity)
	})
}

// closedOrder refuses detail actions the view renders disabled.
func closedOrder(s *screen) error {
	order, loaded := s.order.Order()
	if !loaded {
		return errs.New("orders", errs.CodeInvalid, errs.WithMessage("order not loaded"))
	}
	if !order.Live() {
		return errs.New("orders", errs.CodeValidationRejected,
			errs.WithMessage("order is closed"),
			errs.WithField("id", schema.FormatID(order.ID)))
	}
	return nil
}

func (d *Desk) back(context.Context, *screen, view.Event) error {
	d.router.Back()
	return nil
}

func missingRow(collection string, id int) error {
	return errs.New(collection, errs.CodeNotFound,
		errs.WithMessage("no such row"),
		errs.WithField("id", schema.FormatID(id)))
}
