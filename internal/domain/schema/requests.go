package schema

// NewOrderRequest is the frozen order ticket sent to POST /orders.
type NewOrderRequest struct {
	Side              Side         `json:"side"`
	Quantity          string       `json:"quantity"`
	Symbol            string       `json:"symbol"`
	OrdType           OrdType      `json:"ord_type"`
	Price             string       `json:"price,omitempty"`
	StopPrice         string       `json:"stop_price,omitempty"`
	PartyID           string       `json:"party_id,omitempty"`
	TIF               TimeInForce  `json:"tif,omitempty"`
	SessionID         string       `json:"session_id"`
	SecurityType      SecurityType `json:"security_type,omitempty"`
	SecurityDesc      string       `json:"security_desc,omitempty"`
	MaturityMonthYear string       `json:"maturity_month_year,omitempty"`
	MaturityDay       int          `json:"maturity_day,omitempty"`
	PutOrCall         PutOrCall    `json:"put_or_call,omitempty"`
	StrikePrice       string       `json:"strike_price,omitempty"`
	OrderID           string       `json:"order_id,omitempty"`
}

// AmendRequest is the quantity-only update sent to PATCH /orders/:id.
type AmendRequest struct {
	Quantity string `json:"quantity"`
}

// SecurityDefinitionRequest is sent to POST /securitydefinitionrequest.
type SecurityDefinitionRequest struct {
	SessionID               string                  `json:"session_id"`
	SecurityRequestType     SecurityRequestType     `json:"security_request_type"`
	SubscriptionRequestType SubscriptionRequestType `json:"subscription_request_type"`
	SecurityType            SecurityType            `json:"security_type"`
	Symbol                  string                  `json:"symbol"`
}

// Market data entry type labels carried in MarketDataRequest.
const (
	MDEntryBid   = "Bid"
	MDEntryAsk   = "Ask"
	MDEntryTrade = "Trade"
)

// MarketDataRequest is sent to POST /marketdatarequest. Each entry type slot
// carries its label when selected and is empty otherwise.
type MarketDataRequest struct {
	SessionID               string                  `json:"session_id"`
	SubscriptionRequestType SubscriptionRequestType `json:"subscription_request_type"`
	Symbol                  string                  `json:"symbol"`
	Bid                     string                  `json:"md_entry_type_1"`
	Ask                     string                  `json:"md_entry_type_2"`
	Trade                   string                  `json:"md_entry_type_3"`
}
