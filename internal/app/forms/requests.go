package forms

import (
	"context"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/domain/schema"
)

const (
	resourceSecDefRequest     = "securitydefinitionrequest"
	resourceMarketDataRequest = "marketdatarequest"
)

// SecurityDefinitionRequester submits security definition requests.
type SecurityDefinitionRequester interface {
	RequestSecurityDefinition(ctx context.Context, req schema.SecurityDefinitionRequest) error
}

// MarketDataRequester submits market data requests.
type MarketDataRequester interface {
	RequestMarketData(ctx context.Context, req schema.MarketDataRequest) error
}

var subscriptionSpec = FieldSpec{
	Name:    FieldSubscriptionRequestType,
	Label:   "Subscription Request Type",
	Kind:    KindSelect,
	Options: schema.SubscriptionRequestTypeOptions,
}

// SecurityDefinitionForm asks the gateway for option definitions. The
// security type is fixed to options.
type SecurityDefinitionForm struct {
	*draft
	fc        Context
	requester SecurityDefinitionRequester
}

// NewSecurityDefinitionForm returns a form with every selector on its first option.
func NewSecurityDefinitionForm(fc Context, requester SecurityDefinitionRequester) *SecurityDefinitionForm {
	specs := []FieldSpec{
		{Name: FieldSecurityRequestType, Label: "Security Request Type", Kind: KindSelect, Options: schema.SecurityRequestTypeOptions},
		{Name: FieldSecurityType, Label: "SecurityType", Kind: KindSelect, ReadOnly: true,
			Options: []schema.Option{{Value: string(schema.SecurityTypeOption), Label: "Option"}}},
		{Name: FieldSymbol, Label: "Symbol", Kind: KindText, Suggestions: fc.Symbols},
		subscriptionSpec,
		{Name: FieldSessionID, Label: "Session", Kind: KindSelect, Options: fc.sessionOptions()},
	}
	f := &SecurityDefinitionForm{
		draft:     newDraft(resourceSecDefRequest, specs),
		fc:        fc,
		requester: requester,
	}
	f.values[FieldSecurityRequestType] = string(schema.SecurityRequestIdentity)
	f.values[FieldSecurityType] = string(schema.SecurityTypeOption)
	f.values[FieldSubscriptionRequestType] = string(schema.SubscriptionSnapshot)
	f.values[FieldSessionID] = fc.DefaultSession()
	return f
}

// Name identifies the form.
func (f *SecurityDefinitionForm) Name() string { return "security_definition_request" }

// Set stores value in field.
func (f *SecurityDefinitionForm) Set(field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assign(field, value)
}

// Freeze validates the draft and returns the payload a submit would send.
func (f *SecurityDefinitionForm) Freeze() (schema.SecurityDefinitionRequest, error) {
	values, states := f.snapshot()
	if err := f.checkRequired(values, states); err != nil {
		return schema.SecurityDefinitionRequest{}, err
	}
	if err := f.rejectSession(values, f.fc); err != nil {
		return schema.SecurityDefinitionRequest{}, err
	}
	sent := func(field Field) string { return f.sent(field, values, states) }
	return schema.SecurityDefinitionRequest{
		SessionID:               sent(FieldSessionID),
		SecurityRequestType:     schema.SecurityRequestType(sent(FieldSecurityRequestType)),
		SubscriptionRequestType: schema.SubscriptionRequestType(sent(FieldSubscriptionRequestType)),
		SecurityType:            schema.SecurityType(sent(FieldSecurityType)),
		Symbol:                  sent(FieldSymbol),
	}, nil
}

// Submit freezes and sends the request.
func (f *SecurityDefinitionForm) Submit(ctx context.Context) error {
	req, err := f.Freeze()
	if err != nil {
		return err
	}
	return f.Send(ctx, req)
}

// Send submits a previously frozen request.
func (f *SecurityDefinitionForm) Send(ctx context.Context, req schema.SecurityDefinitionRequest) error {
	if f.requester == nil {
		return errs.New(resourceSecDefRequest, errs.CodeUnavailable,
			errs.WithMessage("security definitions not connected"))
	}
	return f.requester.RequestSecurityDefinition(ctx, req)
}

// MarketDataForm subscribes to bid, ask and trade entries for a symbol list.
type MarketDataForm struct {
	*draft
	fc        Context
	requester MarketDataRequester
}

// NewMarketDataForm returns a form with no entry type selected.
func NewMarketDataForm(fc Context, requester MarketDataRequester) *MarketDataForm {
	specs := []FieldSpec{
		{Name: FieldSymbol, Label: "Symbol", Kind: KindText, Suggestions: fc.Symbols},
		{Name: FieldMDEntryBid, Label: schema.MDEntryBid, Kind: KindToggle},
		{Name: FieldMDEntryAsk, Label: schema.MDEntryAsk, Kind: KindToggle},
		{Name: FieldMDEntryTrade, Label: schema.MDEntryTrade, Kind: KindToggle},
		subscriptionSpec,
		{Name: FieldSessionID, Label: "Session", Kind: KindSelect, Options: fc.sessionOptions()},
	}
	f := &MarketDataForm{
		draft:     newDraft(resourceMarketDataRequest, specs),
		fc:        fc,
		requester: requester,
	}
	f.values[FieldSubscriptionRequestType] = string(schema.SubscriptionSnapshot)
	f.values[FieldSessionID] = fc.DefaultSession()
	return f
}

// Name identifies the form.
func (f *MarketDataForm) Name() string { return "market_data_request" }

// Set stores value in field. Entry type toggles accept any boolean spelling.
func (f *MarketDataForm) Set(field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assign(field, value)
}

// Freeze validates the draft and returns the payload a submit would send.
// Each selected entry type carries its label, unselected ones are empty.
func (f *MarketDataForm) Freeze() (schema.MarketDataRequest, error) {
	values, states := f.snapshot()
	if err := f.checkRequired(values, states); err != nil {
		return schema.MarketDataRequest{}, err
	}
	entry := func(field Field, label string) string {
		if values[field] == On {
			return label
		}
		return ""
	}
	req := schema.MarketDataRequest{
		SessionID:               f.sent(FieldSessionID, values, states),
		SubscriptionRequestType: schema.SubscriptionRequestType(f.sent(FieldSubscriptionRequestType, values, states)),
		Symbol:                  f.sent(FieldSymbol, values, states),
		Bid:                     entry(FieldMDEntryBid, schema.MDEntryBid),
		Ask:                     entry(FieldMDEntryAsk, schema.MDEntryAsk),
		Trade:                   entry(FieldMDEntryTrade, schema.MDEntryTrade),
	}
	if req.Bid == "" && req.Ask == "" && req.Trade == "" {
		return schema.MarketDataRequest{}, errs.Rejected(resourceMarketDataRequest, "select at least one entry type")
	}
	if err := f.rejectSession(values, f.fc); err != nil {
		return schema.MarketDataRequest{}, err
	}
	return req, nil
}

// Submit freezes and sends the request.
func (f *MarketDataForm) Submit(ctx context.Context) error {
	req, err := f.Freeze()
	if err != nil {
		return err
	}
	return f.Send(ctx, req)
}

// Send submits a previously frozen request.
func (f *MarketDataForm) Send(ctx context.Context, req schema.MarketDataRequest) error {
	if f.requester == nil {
		return errs.New(resourceMarketDataRequest, errs.CodeUnavailable,
			errs.WithMessage("market data not connected"))
	}
	return f.requester.RequestMarketData(ctx, req)
}
