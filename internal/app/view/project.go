package view

import (
	"strconv"

	"github.com/coachpo/traderdesk/internal/app/forms"
	"github.com/coachpo/traderdesk/internal/domain/schema"
)

// Table names.
const (
	TableOrders      = "orders"
	TableExecutions  = "executions"
	TableInstruments = "instruments"
	TableMarketData  = "marketdata"
)

// ProjectForm renders the fields of form in declaration order.
func ProjectForm(form forms.Form, submit Action) FormView {
	specs := form.Fields()
	fields := make([]FieldView, 0, len(specs))
	for _, spec := range specs {
		state := form.State(spec.Name)
		fields = append(fields, FieldView{
			Name:        string(spec.Name),
			Label:       spec.Label,
			Kind:        string(spec.Kind),
			Value:       form.Value(spec.Name),
			Enabled:     state.Enabled,
			Required:    state.Required,
			Options:     spec.Options,
			Suggestions: spec.Suggestions,
		})
	}
	return FormView{Name: form.Name(), Fields: fields, Submit: submit}
}

// OrdersTable renders orders with cancel offered only on live ones.
func OrdersTable(orders []schema.Order) Table {
	rows := make([]Row, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, Row{
			ID: o.ID,
			Cells: []string{
				o.Symbol, o.Quantity, o.PartyID, o.Open, o.Closed,
				o.Side.String(), o.OrdType.String(),
				o.Price, o.StopPrice, o.AvgPx, o.SessionID,
			},
			Actions: []ActionView{
				{Action: ActionRowCancel, Label: "Cancel", Enabled: o.Live()},
				{Action: ActionRowDetails, Label: "Details", Enabled: true},
			},
		})
	}
	return Table{
		Name:    TableOrders,
		Columns: []string{"Symbol", "Quantity", "PartyID", "Open", "Executed", "Side", "Type", "Limit", "Stop", "AvgPx", "Session"},
		Rows:    rows,
	}
}

// ExecutionsTable renders executions.
func ExecutionsTable(executions []schema.Execution) Table {
	rows := make([]Row, 0, len(executions))
	for _, e := range executions {
		rows = append(rows, Row{
			ID:      e.ID,
			Cells:   []string{e.Symbol, e.Quantity, e.Side.String(), e.Price, e.SessionID},
			Actions: []ActionView{{Action: ActionRowDetails, Label: "Details", Enabled: true}},
		})
	}
	return Table{
		Name:    TableExecutions,
		Columns: []string{"Symbol", "Quantity", "Side", "Price", "Session"},
		Rows:    rows,
	}
}

// InstrumentsTable renders security definitions.
func InstrumentsTable(instruments []schema.Instrument) Table {
	rows := make([]Row, 0, len(instruments))
	for _, i := range instruments {
		rows = append(rows, Row{
			ID: i.ID,
			Cells: []string{
				strconv.Itoa(i.RequestID), i.InstrumentName, i.SecurityDesc, i.SecurityType,
				i.StrikeCurrency, i.StrikePrice.String(),
			},
		})
	}
	return Table{
		Name:    TableInstruments,
		Columns: []string{"RequestID", "Instrument Name", "Sec Desc", "Sec Type", "Strike Currency", "Strike Price"},
		Rows:    rows,
	}
}

// MarketDataTable renders market data entries.
func MarketDataTable(entries []schema.MarketData) Table {
	rows := make([]Row, 0, len(entries))
	for _, m := range entries {
		rows = append(rows, Row{
			ID:    m.ID,
			Cells: []string{m.InstrumentName, m.Side, m.Contract, m.Price.String(), m.Amount.String(), m.Date},
		})
	}
	return Table{
		Name:    TableMarketData,
		Columns: []string{"Instrument Name", "Side", "Contracts", "Price", "Amount", "Date"},
		Rows:    rows,
	}
}

// OrderDetail renders an order. A live order shows quantity as the amend
// input; a closed one shows its prices instead and both actions disabled.
func OrderDetail(order schema.Order, loaded bool) *Detail {
	live := loaded && order.Live()
	d := &Detail{
		Title:  "Order",
		Loaded: loaded,
		Actions: []ActionView{
			{Action: ActionDetailCancel, Label: "Cancel", Enabled: live},
			{Action: ActionDetailAmend, Label: "Amend", Enabled: live},
			{Action: ActionBack, Label: "Back", Enabled: true},
		},
	}
	if !loaded {
		return d
	}
	d.Fields = []DetailField{
		{Label: "ID", Value: schema.FormatID(order.ID)},
		{Label: "ClOrID", Value: order.ClOrdID},
		{Label: "OrderID", Value: order.OrderID},
		{Label: "Symbol", Value: order.Symbol},
		{Label: "PartyID", Value: order.PartyID},
		{Label: "Session", Value: order.SessionID},
		{Label: "Side", Value: order.Side.String()},
		{Label: "OrdType", Value: order.OrdType.String()},
		{Label: "Closed", Value: order.Closed},
		{Label: "Open", Value: order.Open},
		{Label: "Avg Px", Value: order.AvgPx},
		{Label: "Security Type", Value: string(order.SecurityType)},
		{Label: "Security Desc", Value: order.SecurityDesc},
		{Label: "Maturity Month Year", Value: order.MaturityMonthYear},
		{Label: "Maturity Day", Value: maturityDay(order.MaturityDay)},
		{Label: "Put or Call", Value: string(order.PutOrCall)},
		{Label: "Strike Price", Value: order.StrikePrice},
	}
	if live {
		d.Fields = append(d.Fields, DetailField{Label: "Quantity", Value: order.Quantity, Editable: true})
	} else {
		d.Fields = append(d.Fields,
			DetailField{Label: "Quantity", Value: order.Quantity},
			DetailField{Label: "Price", Value: order.Price},
			DetailField{Label: "Stop Price", Value: order.StopPrice},
		)
	}
	return d
}

// ExecutionDetail renders an execution.
func ExecutionDetail(execution schema.Execution, loaded bool) *Detail {
	d := &Detail{
		Title:   "Execution",
		Loaded:  loaded,
		Actions: []ActionView{{Action: ActionBack, Label: "Back", Enabled: true}},
	}
	if !loaded {
		return d
	}
	d.Fields = []DetailField{
		{Label: "ID", Value: schema.FormatID(execution.ID)},
		{Label: "Symbol", Value: execution.Symbol},
		{Label: "Quantity", Value: execution.Quantity},
		{Label: "Session", Value: execution.SessionID},
		{Label: "Side", Value: execution.Side.String()},
		{Label: "Price", Value: execution.Price},
	}
	return d
}

func maturityDay(day int) string {
	if day == 0 {
		return ""
	}
	return strconv.Itoa(day)
}
