// Package view projects the mounted screen into a render-ready frame.
package view

import (
	"sync"

	"github.com/coachpo/traderdesk/internal/app/router"
	"github.com/coachpo/traderdesk/internal/domain/schema"
)

// Frame is everything needed to draw the current screen.
type Frame struct {
	Generation uint64         `json:"generation"`
	Path       string         `json:"path"`
	Screen     router.Screen  `json:"screen"`
	Nav        []NavIndicator `json:"nav"`
	Forms      []FormView     `json:"forms,omitempty"`
	Tables     []Table        `json:"tables,omitempty"`
	Detail     *Detail        `json:"detail,omitempty"`
	Status     *Status        `json:"status,omitempty"`
}

// NavIndicator is one navigation entry.
type NavIndicator struct {
	Screen router.Screen `json:"screen"`
	Active bool          `json:"active"`
}

// FormView is a form with the current state of its fields.
type FormView struct {
	Name   string      `json:"name"`
	Fields []FieldView `json:"fields"`
	Submit Action      `json:"submit"`
}

// FieldView is one input as rendered.
type FieldView struct {
	Name        string          `json:"name"`
	Label       string          `json:"label"`
	Kind        string          `json:"kind"`
	Value       string          `json:"value"`
	Enabled     bool            `json:"enabled"`
	Required    bool            `json:"required"`
	Options     []schema.Option `json:"options,omitempty"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

// Table is a rendered collection.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Row is one record of a table.
type Row struct {
	ID      int          `json:"id"`
	Cells   []string     `json:"cells"`
	Actions []ActionView `json:"actions,omitempty"`
}

// ActionView is an action button and whether it can be pressed.
type ActionView struct {
	Action  Action `json:"action"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// Detail is a single record screen.
type Detail struct {
	Title   string        `json:"title"`
	Loaded  bool          `json:"loaded"`
	Fields  []DetailField `json:"fields,omitempty"`
	Actions []ActionView  `json:"actions"`
}

// DetailField is one labelled value. Editable fields accept amend input.
type DetailField struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Editable bool   `json:"editable,omitempty"`
}

// Status levels.
const (
	StatusInfo  = "info"
	StatusError = "error"
)

// Status reports the outcome of the last action on the screen.
type Status struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Surface receives every rendered frame.
type Surface interface {
	Render(frame Frame)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(frame Frame)

// Render calls f.
func (f SurfaceFunc) Render(frame Frame) { f(frame) }

// Latest is a surface that keeps the most recent frame.
type Latest struct {
	mu      sync.RWMutex
	frame   Frame
	renders uint64
}

// Render stores frame.
func (l *Latest) Render(frame Frame) {
	l.mu.Lock()
	l.frame = frame
	l.renders++
	l.mu.Unlock()
}

// Frame returns the last frame and how many frames were rendered.
func (l *Latest) Frame() (Frame, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frame, l.renders
}

// NavFor lights exactly the indicator of screen, or none.
func NavFor(route router.Route) []NavIndicator {
	active := route.Nav()
	out := make([]NavIndicator, 0, len(router.NavItems))
	for _, item := range router.NavItems {
		out = append(out, NavIndicator{Screen: item, Active: active != "" && item == active})
	}
	return out
}
