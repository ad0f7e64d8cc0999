package forms

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/domain/schema"
)

const resourceOrders = "orders"

// OrderCreator submits a frozen order ticket.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req schema.NewOrderRequest) (schema.Order, error)
}

// OrderTicket is the order entry state machine. Order type and security type
// each drive their own set of dependent fields.
type OrderTicket struct {
	*draft
	fc      Context
	creator OrderCreator
}

// NewOrderTicket returns a ticket with every selector on its first option.
func NewOrderTicket(fc Context, creator OrderCreator) *OrderTicket {
	specs := []FieldSpec{
		{Name: FieldSide, Label: "Side", Kind: KindSelect, Options: schema.SideOptions},
		{Name: FieldQuantity, Label: "Quantity", Kind: KindNumber},
		{Name: FieldSecurityType, Label: "SecurityType", Kind: KindSelect, Options: schema.SecurityTypeOptions},
		{Name: FieldSymbol, Label: "Symbol", Kind: KindText, Suggestions: fc.Symbols},
		{Name: FieldOrdType, Label: "Type", Kind: KindSelect, Options: schema.OrdTypeOptions},
		{Name: FieldPrice, Label: "Limit", Kind: KindNumber},
		{Name: FieldStopPrice, Label: "Stop", Kind: KindNumber},
		{Name: FieldSecurityDesc, Label: "SecurityDesc", Kind: KindText},
		{Name: FieldMaturityMonthYear, Label: "MaturityMonthYear", Kind: KindText},
		{Name: FieldMaturityDay, Label: "MaturityDay", Kind: KindNumber},
		{Name: FieldPutOrCall, Label: "PutOrCall", Kind: KindSelect, Options: schema.PutOrCallOptions},
		{Name: FieldStrikePrice, Label: "StrikePrice", Kind: KindNumber},
		{Name: FieldPartyID, Label: "PartyID", Kind: KindText},
		{Name: FieldTIF, Label: "TIF", Kind: KindSelect, Options: schema.TIFOptions},
		{Name: FieldSessionID, Label: "Session", Kind: KindSelect, Options: fc.sessionOptions()},
		{Name: FieldOrderID, Label: "OrderID", Kind: KindText},
	}
	t := &OrderTicket{
		draft:   newDraft(resourceOrders, specs),
		fc:      fc,
		creator: creator,
	}
	t.values[FieldSide] = string(schema.SideBuy)
	t.values[FieldOrdType] = string(schema.OrdTypeMarket)
	t.values[FieldTIF] = string(schema.TIFDay)
	t.values[FieldSecurityType] = string(schema.SecurityTypeCommonStock)
	t.values[FieldPutOrCall] = string(schema.Put)
	t.values[FieldSessionID] = fc.DefaultSession()
	t.states[FieldQuantity] = FieldState{Enabled: true, Required: true}
	t.applyOrdType(schema.OrdTypeMarket)
	t.applySecurityType(schema.SecurityTypeCommonStock)
	return t
}

// Name identifies the form.
func (t *OrderTicket) Name() string { return "order_ticket" }

// Set stores value in field. Changing the order type or the security type
// recomputes the fields that axis controls; the other axis is untouched.
func (t *OrderTicket) Set(field Field, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.assign(field, value); err != nil {
		return err
	}
	switch field {
	case FieldOrdType:
		t.applyOrdType(schema.OrdType(value))
	case FieldSecurityType:
		t.applySecurityType(schema.SecurityType(value))
	}
	return nil
}

// applyOrdType must be called with mu held. Anything that is not a priced
// order type falls back to the market row.
func (t *OrderTicket) applyOrdType(ordType schema.OrdType) {
	enabled := FieldState{Enabled: true, Required: true}
	disabled := FieldState{}
	switch ordType {
	case schema.OrdTypeLimit:
		t.setState(FieldPrice, enabled)
		t.setState(FieldStopPrice, disabled)
	case schema.OrdTypeStop:
		t.setState(FieldPrice, disabled)
		t.setState(FieldStopPrice, enabled)
	case schema.OrdTypeStopLimit:
		t.setState(FieldPrice, enabled)
		t.setState(FieldStopPrice, enabled)
	default:
		t.setState(FieldPrice, disabled)
		t.setState(FieldStopPrice, disabled)
	}
}

// applySecurityType must be called with mu held. An unrecognised security
// type leaves the dependent fields as they were.
func (t *OrderTicket) applySecurityType(securityType schema.SecurityType) {
	switch securityType {
	case schema.SecurityTypeCommonStock:
		t.setState(FieldMaturityMonthYear, FieldState{})
		t.setState(FieldMaturityDay, FieldState{})
		t.setState(FieldPutOrCall, FieldState{})
		t.setState(FieldStrikePrice, FieldState{})
	case schema.SecurityTypeFuture:
		t.setState(FieldMaturityMonthYear, FieldState{Enabled: true, Required: true})
		t.setState(FieldMaturityDay, FieldState{Enabled: true})
		t.setState(FieldPutOrCall, FieldState{})
		t.setState(FieldStrikePrice, FieldState{})
	case schema.SecurityTypeOption:
		t.setState(FieldMaturityMonthYear, FieldState{Enabled: true, Required: true})
		t.setState(FieldMaturityDay, FieldState{Enabled: true})
		t.setState(FieldPutOrCall, FieldState{Enabled: true, Required: true})
		t.setState(FieldStrikePrice, FieldState{Enabled: true, Required: true})
	}
}

// Freeze validates the draft and returns the payload a submit would send.
// Disabled fields are left out even when they still hold a value.
func (t *OrderTicket) Freeze() (schema.NewOrderRequest, error) {
	values, states := t.snapshot()
	if err := t.checkRequired(values, states); err != nil {
		return schema.NewOrderRequest{}, err
	}
	sent := func(f Field) string { return t.sent(f, values, states) }

	if _, err := schema.ParseQuantity(sent(FieldQuantity)); err != nil {
		return schema.NewOrderRequest{}, errs.New(resourceOrders, errs.CodeValidationRejected,
			errs.WithMessage("Invalid Qty"),
			errs.WithField("field", string(FieldQuantity)),
			errs.WithCause(err))
	}
	for _, check := range []struct {
		field   Field
		message string
	}{
		{FieldPrice, "Invalid Price"},
		{FieldStopPrice, "Invalid StopPrice"},
		{FieldStrikePrice, "Invalid StrikePrice"},
	} {
		v := sent(check.field)
		if v == "" {
			continue
		}
		if _, err := decimal.NewFromString(v); err != nil {
			return schema.NewOrderRequest{}, errs.New(resourceOrders, errs.CodeValidationRejected,
				errs.WithMessage(check.message),
				errs.WithField("field", string(check.field)),
				errs.WithCause(err))
		}
	}

	var maturityDay int
	if v := sent(FieldMaturityDay); v != "" {
		day, err := strconv.Atoi(v)
		if err != nil || day < 1 || day > 31 {
			return schema.NewOrderRequest{}, errs.New(resourceOrders, errs.CodeValidationRejected,
				errs.WithMessage("Invalid MaturityDay"),
				errs.WithField("field", string(FieldMaturityDay)))
		}
		maturityDay = day
	}

	if err := t.rejectSession(values, t.fc); err != nil {
		return schema.NewOrderRequest{}, err
	}

	return schema.NewOrderRequest{
		Side:              schema.Side(sent(FieldSide)),
		Quantity:          sent(FieldQuantity),
		Symbol:            sent(FieldSymbol),
		OrdType:           schema.OrdType(sent(FieldOrdType)),
		Price:             sent(FieldPrice),
		StopPrice:         sent(FieldStopPrice),
		PartyID:           sent(FieldPartyID),
		TIF:               schema.TimeInForce(sent(FieldTIF)),
		SessionID:         sent(FieldSessionID),
		SecurityType:      schema.SecurityType(sent(FieldSecurityType)),
		SecurityDesc:      sent(FieldSecurityDesc),
		MaturityMonthYear: sent(FieldMaturityMonthYear),
		MaturityDay:       maturityDay,
		PutOrCall:         schema.PutOrCall(sent(FieldPutOrCall)),
		StrikePrice:       sent(FieldStrikePrice),
		OrderID:           sent(FieldOrderID),
	}, nil
}

// Submit freezes the draft and creates the order. The draft is kept either
// way; the new order shows up on the next poll.
func (t *OrderTicket) Submit(ctx context.Context) error {
	req, err := t.Freeze()
	if err != nil {
		return err
	}
	_, err = t.Send(ctx, req)
	return err
}

// Send creates a previously frozen order.
func (t *OrderTicket) Send(ctx context.Context, req schema.NewOrderRequest) (schema.Order, error) {
	if t.creator == nil {
		return schema.Order{}, errs.New(resourceOrders, errs.CodeUnavailable,
			errs.WithMessage("order entry not connected"))
	}
	return t.creator.CreateOrder(ctx, req)
}
