// Package forms holds the draft state of the order ticket and the request
// forms, enforcing field applicability before a payload is frozen.
package forms

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/domain/schema"
)

// Context is the startup data every form draws its selectors from.
type Context struct {
	SessionIDs []string
	Symbols    []string
}

// DefaultSession returns the first configured session, or "".
func (c Context) DefaultSession() string {
	if len(c.SessionIDs) == 0 {
		return ""
	}
	return c.SessionIDs[0]
}

// HasSession reports whether id is one of the configured sessions.
func (c Context) HasSession(id string) bool {
	for _, s := range c.SessionIDs {
		if s == id {
			return true
		}
	}
	return false
}

func (c Context) sessionOptions() []schema.Option {
	out := make([]schema.Option, 0, len(c.SessionIDs))
	for _, id := range c.SessionIDs {
		out = append(out, schema.Option{Value: id, Label: id})
	}
	return out
}

// Field names a form input. Names match the gateway payload keys.
type Field string

const (
	FieldSide                    Field = "side"
	FieldQuantity                Field = "quantity"
	FieldSymbol                  Field = "symbol"
	FieldOrdType                 Field = "ord_type"
	FieldPrice                   Field = "price"
	FieldStopPrice               Field = "stop_price"
	FieldPartyID                 Field = "party_id"
	FieldTIF                     Field = "tif"
	FieldSessionID               Field = "session_id"
	FieldSecurityType            Field = "security_type"
	FieldSecurityDesc            Field = "security_desc"
	FieldMaturityMonthYear       Field = "maturity_month_year"
	FieldMaturityDay             Field = "maturity_day"
	FieldPutOrCall               Field = "put_or_call"
	FieldStrikePrice             Field = "strike_price"
	FieldOrderID                 Field = "order_id"
	FieldSecurityRequestType     Field = "security_request_type"
	FieldSubscriptionRequestType Field = "subscription_request_type"
	FieldMDEntryBid              Field = "md_entry_type_1"
	FieldMDEntryAsk              Field = "md_entry_type_2"
	FieldMDEntryTrade            Field = "md_entry_type_3"
)

// Kind is the input widget a field renders as.
type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindSelect Kind = "select"
	KindToggle Kind = "toggle"
)

// Toggle values.
const (
	On  = "true"
	Off = "false"
)

// FieldSpec declares one input of a form.
type FieldSpec struct {
	Name        Field
	Label       string
	Kind        Kind
	Options     []schema.Option
	Suggestions []string
	// ReadOnly fields hold a fixed value that is always sent.
	ReadOnly bool
}

// FieldState is the applicability of a field in the current draft.
type FieldState struct {
	Enabled  bool
	Required bool
}

// Form is the surface shared by every form state machine.
type Form interface {
	Name() string
	Fields() []FieldSpec
	Value(field Field) string
	State(field Field) FieldState
	Set(field Field, value string) error
	Submit(ctx context.Context) error
}

// draft is the field store behind every form. Values survive a field being
// disabled; only the freeze step decides what is sent.
type draft struct {
	resource string

	mu     sync.RWMutex
	specs  []FieldSpec
	index  map[Field]int
	values map[Field]string
	states map[Field]FieldState
}

func newDraft(resource string, specs []FieldSpec) *draft {
	d := &draft{
		resource: resource,
		specs:    specs,
		index:    make(map[Field]int, len(specs)),
		values:   make(map[Field]string, len(specs)),
		states:   make(map[Field]FieldState, len(specs)),
	}
	for i, spec := range specs {
		d.index[spec.Name] = i
		d.states[spec.Name] = FieldState{Enabled: !spec.ReadOnly}
		if spec.Kind == KindToggle {
			d.values[spec.Name] = Off
		}
	}
	return d
}

// Fields returns the declared inputs in display order.
func (d *draft) Fields() []FieldSpec {
	out := make([]FieldSpec, len(d.specs))
	copy(out, d.specs)
	return out
}

// Value returns the draft value of field.
func (d *draft) Value(field Field) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.values[field]
}

// State returns the applicability of field.
func (d *draft) State(field Field) FieldState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.states[field]
}

func (d *draft) spec(field Field) (FieldSpec, bool) {
	idx, ok := d.index[field]
	if !ok {
		return FieldSpec{}, false
	}
	return d.specs[idx], true
}

// assign stores value after checking the field accepts input. Callers hold mu.
func (d *draft) assign(field Field, value string) error {
	spec, ok := d.spec(field)
	if !ok {
		return errs.New(d.resource, errs.CodeInvalid,
			errs.WithMessage("unknown field"),
			errs.WithField("field", string(field)))
	}
	if !d.states[field].Enabled {
		return errs.New(d.resource, errs.CodeValidationRejected,
			errs.WithMessage(spec.Label+" is disabled"),
			errs.WithField("field", string(field)))
	}
	switch spec.Kind {
	case KindSelect:
		if !schema.Contains(spec.Options, value) {
			return errs.New(d.resource, errs.CodeValidationRejected,
				errs.WithMessage("Invalid "+spec.Label),
				errs.WithField("field", string(field)))
		}
	case KindToggle:
		on, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return errs.New(d.resource, errs.CodeValidationRejected,
				errs.WithMessage("Invalid "+spec.Label),
				errs.WithField("field", string(field)))
		}
		value = Off
		if on {
			value = On
		}
	}
	d.values[field] = value
	return nil
}

func (d *draft) setState(field Field, state FieldState) {
	d.states[field] = state
}

// snapshot copies values and states for a freeze.
func (d *draft) snapshot() (map[Field]string, map[Field]FieldState) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	values := make(map[Field]string, len(d.values))
	for k, v := range d.values {
		values[k] = strings.TrimSpace(v)
	}
	states := make(map[Field]FieldState, len(d.states))
	for k, v := range d.states {
		states[k] = v
	}
	return values, states
}

// checkRequired rejects the first enabled required field left blank.
func (d *draft) checkRequired(values map[Field]string, states map[Field]FieldState) error {
	for _, spec := range d.specs {
		st := states[spec.Name]
		if st.Enabled && st.Required && values[spec.Name] == "" {
			return errs.New(d.resource, errs.CodeValidationRejected,
				errs.WithMessage(spec.Label+" is required"),
				errs.WithField("field", string(spec.Name)))
		}
	}
	return nil
}

// sent returns the value of field when it is transmitted, "" otherwise.
func (d *draft) sent(field Field, values map[Field]string, states map[Field]FieldState) string {
	spec, ok := d.spec(field)
	if !ok {
		return ""
	}
	if states[field].Enabled || spec.ReadOnly {
		return values[field]
	}
	return ""
}

func (d *draft) rejectSession(values map[Field]string, fc Context) error {
	if !fc.HasSession(values[FieldSessionID]) {
		return errs.New(d.resource, errs.CodeValidationRejected,
			errs.WithMessage("Invalid SessionID"),
			errs.WithField("field", string(FieldSessionID)))
	}
	return nil
}
