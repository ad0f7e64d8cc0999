package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		path   string
		screen Screen
		id     int
		nav    Screen
	}{
		{"", ScreenOrders, 0, ScreenOrders},
		{"/", ScreenOrders, 0, ScreenOrders},
		{"/orders", ScreenOrders, 0, ScreenOrders},
		{"orders/", ScreenOrders, 0, ScreenOrders},
		{"/executions", ScreenExecutions, 0, ScreenExecutions},
		{"/secdefs", ScreenSecDefs, 0, ScreenSecDefs},
		{"/instruments", ScreenSecDefs, 0, ScreenSecDefs},
		{"/marketdata?x=1", ScreenMarketData, 0, ScreenMarketData},
		{"/orders/42", ScreenOrderDetail, 42, ""},
		{"/executions/7#top", ScreenExecutionDetail, 7, ""},
		{"/orders/abc", ScreenNotFound, 0, ""},
		{"/orders/-1", ScreenNotFound, 0, ""},
		{"/orders/0", ScreenNotFound, 0, ""},
		{"/orders/1/2", ScreenNotFound, 0, ""},
		{"/secdefs/3", ScreenNotFound, 0, ""},
		{"/nope", ScreenNotFound, 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			route := Resolve(tc.path)
			require.Equal(t, tc.screen, route.Screen)
			require.Equal(t, tc.id, route.ID)
			require.Equal(t, tc.nav, route.Nav())
		})
	}
}

func TestNavigateActivatesEveryTimeIncludingRepeats(t *testing.T) {
	var activated []Route
	r := New(func(route Route) { activated = append(activated, route) }, nil)

	require.NoError(t, r.Navigate("/orders"))
	require.NoError(t, r.Navigate("/orders"))
	require.NoError(t, r.Navigate("/orders/42"))

	require.Len(t, activated, 3)
	require.Equal(t, activated[0], activated[1])
	require.Equal(t, ScreenOrderDetail, activated[2].Screen)
	require.Equal(t, 3, r.Depth())

	current, ok := r.Current()
	require.True(t, ok)
	require.Equal(t, "/orders/42", current.Path)
}

func TestBackPopsHistory(t *testing.T) {
	var activated []Screen
	r := New(func(route Route) { activated = append(activated, route.Screen) }, nil)

	_, ok := r.Back()
	require.False(t, ok)

	require.NoError(t, r.Navigate("/executions"))
	require.NoError(t, r.Navigate("/executions/3"))

	route, ok := r.Back()
	require.True(t, ok)
	require.Equal(t, ScreenExecutions, route.Screen)
	require.Equal(t, []Screen{ScreenExecutions, ScreenExecutionDetail, ScreenExecutions}, activated)

	_, ok = r.Back()
	require.False(t, ok)
	require.Equal(t, 1, r.Depth())
}

func TestFollowOnlyInternalLinks(t *testing.T) {
	var activated []string
	r := New(func(route Route) { activated = append(activated, route.Path) }, nil)

	require.False(t, r.Follow(Link{Href: "https://example.com/orders"}))
	require.True(t, r.Follow(Link{Href: "/marketdata", Internal: true}))
	require.Equal(t, []string{"/marketdata"}, activated)
}

func TestFollowRoutesPathOfAbsoluteHref(t *testing.T) {
	var activated []Route
	r := New(func(route Route) { activated = append(activated, route) }, nil)

	require.True(t, r.Follow(Link{Href: "http://desk.local:8890/orders/5?tab=fills", Internal: true}))
	require.True(t, r.Follow(Link{Href: "https://desk.local/executions", Internal: true}))
	require.Len(t, activated, 2)
	require.Equal(t, ScreenOrderDetail, activated[0].Screen)
	require.Equal(t, 5, activated[0].ID)
	require.Equal(t, ScreenExecutions, activated[1].Screen)

	require.False(t, r.Follow(Link{Href: "http://[::1", Internal: true}))
	require.Len(t, activated, 2)
}

func TestNavigateIfChecksUnderNavigationLock(t *testing.T) {
	var activated []Screen
	r := New(func(route Route) { activated = append(activated, route.Screen) }, nil)
	require.NoError(t, r.Navigate("/orders/7"))

	ok, err := r.NavigateIf(func() bool { return false }, "/orders")
	require.NoError(t, err)
	require.False(t, ok)
	current, _ := r.Current()
	require.Equal(t, ScreenOrderDetail, current.Screen)

	ok, err = r.NavigateIf(func() bool {
		// Reads are safe while the navigation lock is held.
		_, has := r.Current()
		return has
	}, "/orders")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []Screen{ScreenOrderDetail, ScreenOrders}, activated)
}

func TestActivatorMayReadRouter(t *testing.T) {
	var seen []string
	var r *Router
	r = New(func(Route) {
		current, _ := r.Current()
		seen = append(seen, current.Path)
	}, nil)
	require.NoError(t, r.Navigate("/secdefs"))
	require.Equal(t, []string{"/secdefs"}, seen)
}

func TestNilActivator(t *testing.T) {
	r := New(nil, nil)
	require.NoError(t, r.Navigate("/unknown"))
	current, _ := r.Current()
	require.Equal(t, ScreenNotFound, current.Screen)
	require.Equal(t, Screen(""), current.Nav())
}
