// Package router maps application paths to screens and keeps the navigation
// history.
package router

import (
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/coachpo/traderdesk/internal/observability"
)

// Screen identifies one top-level view.
type Screen string

const (
	ScreenOrders          Screen = "orders"
	ScreenExecutions      Screen = "executions"
	ScreenSecDefs         Screen = "secdefs"
	ScreenMarketData      Screen = "marketdata"
	ScreenOrderDetail     Screen = "order_detail"
	ScreenExecutionDetail Screen = "execution_detail"
	ScreenNotFound        Screen = "not_found"
)

// NavItems are the navigation indicators in display order.
var NavItems = []Screen{ScreenOrders, ScreenExecutions, ScreenSecDefs, ScreenMarketData}

// Route is a resolved path.
type Route struct {
	Path   string `json:"path"`
	Screen Screen `json:"screen"`
	ID     int    `json:"id,omitempty"`
}

// Nav returns the navigation indicator the route lights, or "" when none.
func (r Route) Nav() Screen {
	switch r.Screen {
	case ScreenOrders, ScreenExecutions, ScreenSecDefs, ScreenMarketData:
		return r.Screen
	default:
		return ""
	}
}

// Resolve maps a path to its route. Unknown paths resolve to ScreenNotFound.
func Resolve(path string) Route {
	clean := normalize(path)
	route := Route{Path: "/" + clean}
	parts := strings.Split(clean, "/")
	switch len(parts) {
	case 1:
		switch parts[0] {
		case "", "orders":
			route.Screen = ScreenOrders
		case "executions":
			route.Screen = ScreenExecutions
		case "secdefs", "instruments":
			route.Screen = ScreenSecDefs
		case "marketdata":
			route.Screen = ScreenMarketData
		default:
			route.Screen = ScreenNotFound
		}
	case 2:
		id, ok := parseID(parts[1])
		switch {
		case ok && parts[0] == "orders":
			route.Screen, route.ID = ScreenOrderDetail, id
		case ok && parts[0] == "executions":
			route.Screen, route.ID = ScreenExecutionDetail, id
		default:
			route.Screen = ScreenNotFound
		}
	default:
		route.Screen = ScreenNotFound
	}
	return route
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.Trim(path, "/")
}

func parseID(raw string) (int, bool) {
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Link is an anchor the user followed. Only internal links are routed.
type Link struct {
	Href     string
	Internal bool
}

// Activator mounts the screen of a route. It is called for every navigation,
// repeats included.
type Activator func(route Route)

// Router owns the history stack and drives activation.
type Router struct {
	activate Activator
	logger   observability.Logger

	// navMu is taken before mu and keeps activations in navigation order.
	navMu sync.Mutex

	mu      sync.RWMutex
	history []Route
}

// New constructs a router with an empty history.
func New(activate Activator, logger observability.Logger) *Router {
	if activate == nil {
		activate = func(Route) {}
	}
	return &Router{activate: activate, logger: observability.OrDefault(logger)}
}

// Navigate pushes path onto the history and activates its screen.
func (r *Router) Navigate(path string) error {
	r.navMu.Lock()
	defer r.navMu.Unlock()
	return r.push(path)
}

// NavigateIf navigates only while valid reports true. valid runs under the
// navigation lock, so no other navigation can land between the check and the
// activation. It reports whether the navigation happened.
func (r *Router) NavigateIf(valid func() bool, path string) (bool, error) {
	r.navMu.Lock()
	defer r.navMu.Unlock()
	if valid != nil && !valid() {
		return false, nil
	}
	return true, r.push(path)
}

// push must be called with navMu held.
func (r *Router) push(path string) error {
	route := Resolve(path)
	r.mu.Lock()
	r.history = append(r.history, route)
	r.mu.Unlock()

	r.logger.Debug("route activated",
		observability.F("path", route.Path),
		observability.F("screen", string(route.Screen)))
	r.activate(route)
	return nil
}

// Back pops the current entry and re-activates the previous one. It reports
// false when there is nowhere to go back to.
func (r *Router) Back() (Route, bool) {
	r.navMu.Lock()
	defer r.navMu.Unlock()

	r.mu.Lock()
	if len(r.history) < 2 {
		r.mu.Unlock()
		return Route{}, false
	}
	r.history = r.history[:len(r.history)-1]
	route := r.history[len(r.history)-1]
	r.mu.Unlock()

	r.activate(route)
	return route, true
}

// Follow routes the path of an internal link and ignores everything else.
// Absolute hrefs are routed by their path alone.
func (r *Router) Follow(link Link) bool {
	if !link.Internal {
		return false
	}
	target, err := url.Parse(strings.TrimSpace(link.Href))
	if err != nil {
		return false
	}
	return r.Navigate(target.Path) == nil
}

// Current returns the active route.
func (r *Router) Current() (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.history) == 0 {
		return Route{}, false
	}
	return r.history[len(r.history)-1], true
}

// Depth returns the number of history entries.
func (r *Router) Depth() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.history)
}
