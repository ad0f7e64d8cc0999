package schema

import "github.com/shopspring/decimal"

// Instrument is a security definition produced by a security definition request.
type Instrument struct {
	ID             int             `json:"id"`
	RequestID      int             `json:"request_id"`
	InstrumentName string          `json:"instrument_name"`
	SecurityDesc   string          `json:"security_desc"`
	SecurityType   string          `json:"security_type"`
	PutOrCall      string          `json:"put_or_call,omitempty"`
	StrikeCurrency string          `json:"strike_currency"`
	StrikePrice    decimal.Decimal `json:"strike_price"`
	Underlying     string          `json:"underlying,omitempty"`
	IssueDate      string          `json:"issue_date,omitempty"`
	SecurityStatus string          `json:"security_status,omitempty"`
}

// Key returns the instrument identity.
func (i Instrument) Key() int { return i.ID }

// MarketData is a single market data entry produced by a market data request.
type MarketData struct {
	ID               int             `json:"id"`
	InstrumentName   string          `json:"instrumentName"`
	Side             string          `json:"side"`
	Contract         string          `json:"contract"`
	Price            decimal.Decimal `json:"price"`
	Amount           decimal.Decimal `json:"amount"`
	Date             string          `json:"date"`
	OrderID          string          `json:"orderId,omitempty"`
	SecondaryOrderID string          `json:"secondaryOrderId,omitempty"`
	Status           string          `json:"status,omitempty"`
	MDActionUpdate   string          `json:"mdActionUpdate,omitempty"`
}

// Key returns the market data entry identity.
func (m MarketData) Key() int { return m.ID }
