// Package schema defines the records and request payloads exchanged with the trading gateway.
package schema

// Side is the FIX side code of an order or execution.
type Side string

// OrdType is the FIX order type code.
type OrdType string

// TimeInForce is the FIX time-in-force code.
type TimeInForce string

// SecurityType is the FIX security type code.
type SecurityType string

// PutOrCall is the FIX put/call indicator.
type PutOrCall string

// SecurityRequestType is the FIX security request type code.
type SecurityRequestType string

// SubscriptionRequestType is the FIX subscription request type code.
type SubscriptionRequestType string

const (
	SideBuy              Side = "1"
	SideSell             Side = "2"
	SideSellShort        Side = "5"
	SideSellShortExempt  Side = "6"
	SideCross            Side = "8"
	SideCrossShort       Side = "9"
	SideCrossShortExempt Side = "A"
)

const (
	OrdTypeMarket    OrdType = "1"
	OrdTypeLimit     OrdType = "2"
	OrdTypeStop      OrdType = "3"
	OrdTypeStopLimit OrdType = "4"
)

const (
	TIFDay TimeInForce = "0"
	TIFGTC TimeInForce = "1"
	TIFOPG TimeInForce = "2"
	TIFIOC TimeInForce = "3"
	TIFGTX TimeInForce = "5"
)

const (
	SecurityTypeCommonStock SecurityType = "CS"
	SecurityTypeFuture      SecurityType = "FUT"
	SecurityTypeOption      SecurityType = "OPT"
)

const (
	Put  PutOrCall = "0"
	Call PutOrCall = "1"
)

const (
	SecurityRequestIdentity      SecurityRequestType = "0"
	SecurityRequestSpecification SecurityRequestType = "1"
	SecurityRequestListTypes     SecurityRequestType = "2"
	SecurityRequestListSecurity  SecurityRequestType = "3"
)

const (
	SubscriptionSnapshot       SubscriptionRequestType = "0"
	SubscriptionSnapshotUpdate SubscriptionRequestType = "1"
	SubscriptionDisableUpdate  SubscriptionRequestType = "2"
)

// Option is a selectable code with its display label, in selector order.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	// SideOptions lists sides in selector order.
	SideOptions = []Option{
		{Value: string(SideBuy), Label: "Buy"},
		{Value: string(SideSell), Label: "Sell"},
		{Value: string(SideSellShort), Label: "Sell Short"},
		{Value: string(SideSellShortExempt), Label: "Sell Short Exempt"},
		{Value: string(SideCross), Label: "Cross"},
		{Value: string(SideCrossShort), Label: "Cross Short"},
		{Value: string(SideCrossShortExempt), Label: "Cross Short Exempt"},
	}
	// OrdTypeOptions lists order types in selector order.
	OrdTypeOptions = []Option{
		{Value: string(OrdTypeMarket), Label: "Market"},
		{Value: string(OrdTypeLimit), Label: "Limit"},
		{Value: string(OrdTypeStop), Label: "Stop"},
		{Value: string(OrdTypeStopLimit), Label: "Stop Limit"},
	}
	// TIFOptions lists time-in-force values in selector order.
	TIFOptions = []Option{
		{Value: string(TIFDay), Label: "Day"},
		{Value: string(TIFIOC), Label: "IOC"},
		{Value: string(TIFOPG), Label: "OPG"},
		{Value: string(TIFGTC), Label: "GTC"},
		{Value: string(TIFGTX), Label: "GTX"},
	}
	// SecurityTypeOptions lists security types in selector order.
	SecurityTypeOptions = []Option{
		{Value: string(SecurityTypeCommonStock), Label: "Common Stock"},
		{Value: string(SecurityTypeFuture), Label: "Future"},
		{Value: string(SecurityTypeOption), Label: "Option"},
	}
	// PutOrCallOptions lists put/call values in selector order.
	PutOrCallOptions = []Option{
		{Value: string(Put), Label: "Put"},
		{Value: string(Call), Label: "Call"},
	}
	// SecurityRequestTypeOptions lists security request types in selector order.
	SecurityRequestTypeOptions = []Option{
		{Value: string(SecurityRequestIdentity), Label: "Security Identity and Specifications"},
		{Value: string(SecurityRequestSpecification), Label: "Security Identity for the Specifications Provided"},
		{Value: string(SecurityRequestListTypes), Label: "List Security Types"},
		{Value: string(SecurityRequestListSecurity), Label: "List Securities"},
	}
	// SubscriptionRequestTypeOptions lists subscription request types in selector order.
	SubscriptionRequestTypeOptions = []Option{
		{Value: string(SubscriptionSnapshot), Label: "Snapshot"},
		{Value: string(SubscriptionSnapshotUpdate), Label: "Snapshot Plus Update"},
		{Value: string(SubscriptionDisableUpdate), Label: "Disable Update"},
	}
)

// Label returns the display label for value, or value itself when unknown.
func Label(options []Option, value string) string {
	for _, opt := range options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// Contains reports whether value is one of the option codes.
func Contains(options []Option, value string) bool {
	for _, opt := range options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// String returns the display name of the side.
func (s Side) String() string { return Label(SideOptions, string(s)) }

// String returns the display name of the order type.
func (t OrdType) String() string { return Label(OrdTypeOptions, string(t)) }

// String returns the display name of the time in force.
func (t TimeInForce) String() string { return Label(TIFOptions, string(t)) }

// String returns the display name of the security type.
func (t SecurityType) String() string { return Label(SecurityTypeOptions, string(t)) }
