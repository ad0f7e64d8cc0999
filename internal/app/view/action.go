package view

// Action is a user interaction a screen offers.
type Action string

const (
	ActionSubmitTicket       Action = "submit_ticket"
	ActionChangeOrdType      Action = "change_ord_type"
	ActionChangeSecurityType Action = "change_security_type"
	ActionSetField           Action = "set_field"
	ActionSubmitSecDef       Action = "submit_secdef"
	ActionSubmitMarketData   Action = "submit_marketdata"
	ActionRowDetails         Action = "row_details"
	ActionRowCancel          Action = "row_cancel"
	ActionDetailCancel       Action = "detail_cancel"
	ActionDetailAmend        Action = "detail_amend"
	ActionBack               Action = "back"
)

var knownActions = map[Action]struct{}{
	ActionSubmitTicket:       {},
	ActionChangeOrdType:      {},
	ActionChangeSecurityType: {},
	ActionSetField:           {},
	ActionSubmitSecDef:       {},
	ActionSubmitMarketData:   {},
	ActionRowDetails:         {},
	ActionRowCancel:          {},
	ActionDetailCancel:       {},
	ActionDetailAmend:        {},
	ActionBack:               {},
}

// ParseAction converts a wire name into an Action.
func ParseAction(name string) (Action, bool) {
	a := Action(name)
	_, ok := knownActions[a]
	return a, ok
}

// Event is one dispatched action with its arguments. Field and Value are used
// by field edits and amend; ID by row actions.
type Event struct {
	Action Action `json:"action"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
	ID     int    `json:"id,omitempty"`
}
