package schema

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Keyed is implemented by every record mirrored from a gateway list resource.
type Keyed interface {
	Key() int
}

// ClosedMarker is the `open` value of an order that can no longer be amended or canceled.
const ClosedMarker = "0"

// Order is a snapshot of an order held by the gateway.
type Order struct {
	ID                int          `json:"id"`
	ClOrdID           string       `json:"clord_id"`
	OrderID           string       `json:"order_id"`
	Symbol            string       `json:"symbol"`
	Quantity          string       `json:"quantity"`
	PartyID           string       `json:"party_id"`
	SessionID         string       `json:"session_id"`
	Side              Side         `json:"side"`
	OrdType           OrdType      `json:"ord_type"`
	Price             string       `json:"price"`
	StopPrice         string       `json:"stop_price"`
	TIF               TimeInForce  `json:"tif,omitempty"`
	Closed            string       `json:"closed"`
	Open              string       `json:"open"`
	AvgPx             string       `json:"avg_px"`
	SecurityType      SecurityType `json:"security_type"`
	SecurityDesc      string       `json:"security_desc"`
	MaturityMonthYear string       `json:"maturity_month_year"`
	MaturityDay       int          `json:"maturity_day"`
	PutOrCall         PutOrCall    `json:"put_or_call"`
	StrikePrice       string       `json:"strike_price"`
	Status            string       `json:"status,omitempty"`
}

// Key returns the order identity.
func (o Order) Key() int { return o.ID }

// Live reports whether the order is still eligible for amend and cancel.
func (o Order) Live() bool { return o.Open != ClosedMarker }

// Execution is an immutable fill reported by the gateway.
type Execution struct {
	ID        int    `json:"id"`
	Symbol    string `json:"symbol"`
	Quantity  string `json:"quantity"`
	Side      Side   `json:"side"`
	Price     string `json:"price"`
	SessionID string `json:"session_id"`
}

// Key returns the execution identity.
func (e Execution) Key() int { return e.ID }

// FormatID renders a record identity for URLs and logs.
func FormatID(id int) string { return strconv.Itoa(id) }

// ErrInvalidQuantity reports a quantity that is not a positive whole number.
var ErrInvalidQuantity = errors.New("quantity must be a positive whole number")

// ParseQuantity applies the order quantity rule shared by order entry and
// amend: a positive whole number of units.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, errors.Join(ErrInvalidQuantity, err)
	}
	if !qty.IsPositive() || !qty.IsInteger() {
		return decimal.Decimal{}, ErrInvalidQuantity
	}
	return qty, nil
}
