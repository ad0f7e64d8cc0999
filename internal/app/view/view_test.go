package view

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/traderdesk/internal/app/forms"
	"github.com/coachpo/traderdesk/internal/app/router"
	"github.com/coachpo/traderdesk/internal/domain/schema"
)

func TestNavForLightsOneIndicator(t *testing.T) {
	nav := NavFor(router.Resolve("/secdefs"))
	require.Len(t, nav, 4)
	active := 0
	for _, n := range nav {
		if n.Active {
			active++
			require.Equal(t, router.ScreenSecDefs, n.Screen)
		}
	}
	require.Equal(t, 1, active)

	for _, path := range []string{"/orders/3", "/missing"} {
		for _, n := range NavFor(router.Resolve(path)) {
			require.False(t, n.Active, path)
		}
	}
}

func TestProjectFormReflectsState(t *testing.T) {
	ticket := forms.NewOrderTicket(forms.Context{SessionIDs: []string{"S1"}}, nil)
	require.NoError(t, ticket.Set(forms.FieldOrdType, "2"))

	fv := ProjectForm(ticket, ActionSubmitTicket)
	require.Equal(t, "order_ticket", fv.Name)
	require.Equal(t, ActionSubmitTicket, fv.Submit)

	byName := map[string]FieldView{}
	for _, f := range fv.Fields {
		byName[f.Name] = f
	}
	require.True(t, byName["price"].Enabled)
	require.True(t, byName["price"].Required)
	require.False(t, byName["stop_price"].Enabled)
	require.Equal(t, "2", byName["ord_type"].Value)
	require.Len(t, byName["session_id"].Options, 1)
}

func TestOrdersTableDisablesCancelOnClosed(t *testing.T) {
	table := OrdersTable([]schema.Order{
		{ID: 1, Side: schema.SideSellShort, OrdType: schema.OrdTypeStopLimit, Open: "5"},
		{ID: 2, Side: "Z", OrdType: "Q", Open: schema.ClosedMarker},
	})
	require.Len(t, table.Rows, 2)
	require.Equal(t, len(table.Columns), len(table.Rows[0].Cells))
	require.Equal(t, "Sell Short", table.Rows[0].Cells[5])
	require.Equal(t, "Stop Limit", table.Rows[0].Cells[6])
	require.True(t, table.Rows[0].Actions[0].Enabled)

	require.Equal(t, "Z", table.Rows[1].Cells[5])
	require.Equal(t, "Q", table.Rows[1].Cells[6])
	require.False(t, table.Rows[1].Actions[0].Enabled)
	require.True(t, table.Rows[1].Actions[1].Enabled)
}

func TestOtherTables(t *testing.T) {
	exec := ExecutionsTable([]schema.Execution{{ID: 3, Side: schema.SideBuy}})
	require.Equal(t, "Buy", exec.Rows[0].Cells[2])

	inst := InstrumentsTable([]schema.Instrument{{ID: 1, RequestID: 4, StrikePrice: decimal.RequireFromString("90.5")}})
	require.Equal(t, []string{"4", "", "", "", "", "90.5"}, inst.Rows[0].Cells)

	md := MarketDataTable([]schema.MarketData{{ID: 2, Price: decimal.NewFromInt(10), Amount: decimal.NewFromInt(3)}})
	require.Equal(t, "10", md.Rows[0].Cells[3])
	require.Equal(t, len(md.Columns), len(md.Rows[0].Cells))
}

func TestOrderDetailActions(t *testing.T) {
	live := OrderDetail(schema.Order{ID: 7, Open: "1", Quantity: "10"}, true)
	require.True(t, live.Actions[0].Enabled)
	require.True(t, live.Actions[1].Enabled)
	last := live.Fields[len(live.Fields)-1]
	require.Equal(t, DetailField{Label: "Quantity", Value: "10", Editable: true}, last)

	closed := OrderDetail(schema.Order{ID: 8, Open: "0", Price: "1.5"}, true)
	require.False(t, closed.Actions[0].Enabled)
	require.False(t, closed.Actions[1].Enabled)
	require.Equal(t, "Stop Price", closed.Fields[len(closed.Fields)-1].Label)

	pending := OrderDetail(schema.Order{}, false)
	require.Empty(t, pending.Fields)
	require.False(t, pending.Actions[0].Enabled)
}

func TestLatestKeepsLastFrame(t *testing.T) {
	var latest Latest
	var surface Surface = &latest
	surface.Render(Frame{Generation: 1})
	surface.Render(Frame{Generation: 2})
	frame, renders := latest.Frame()
	require.EqualValues(t, 2, frame.Generation)
	require.EqualValues(t, 2, renders)
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("detail_amend")
	require.True(t, ok)
	require.Equal(t, ActionDetailAmend, a)
	_, ok = ParseAction("click .cancel")
	require.False(t, ok)
}
