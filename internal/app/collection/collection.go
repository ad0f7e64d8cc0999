// Package collection mirrors gateway list resources in memory.
package collection

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/domain/schema"
	"github.com/coachpo/traderdesk/internal/observability"
)

// ListFunc fetches the full current contents of a list resource.
type ListFunc[T any] func(ctx context.Context) ([]T, error)

// DestroyFunc deletes one record on the gateway.
type DestroyFunc func(ctx context.Context, id int) error

// Listener receives the sorted contents after every reset.
type Listener[T any] func(items []T)

// Options configures a Collection.
type Options[T any] struct {
	Name    string
	List    ListFunc[T]
	Destroy DestroyFunc
	Logger  observability.Logger
}

// Collection is a sorted, full-replace mirror of one list resource.
type Collection[T schema.Keyed] struct {
	name    string
	list    ListFunc[T]
	destroy DestroyFunc
	logger  observability.Logger

	issued atomic.Uint64

	// notifyMu is taken before mu and keeps listener calls in apply order.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	applied   uint64
	items     []T
	listeners map[uint64]Listener[T]
	nextSub   uint64
}

// New constructs an empty collection.
func New[T schema.Keyed](opts Options[T]) *Collection[T] {
	return &Collection[T]{
		name:      opts.Name,
		list:      opts.List,
		destroy:   opts.Destroy,
		logger:    observability.OrDefault(opts.Logger),
		listeners: make(map[uint64]Listener[T]),
	}
}

// Name returns the resource name the collection mirrors.
func (c *Collection[T]) Name() string { return c.name }

// Fetch replaces the contents with the current list resource. A completion
// issued before the last applied one is dropped without notifying.
func (c *Collection[T]) Fetch(ctx context.Context) error {
	if c.list == nil {
		return errs.New(c.name, errs.CodeInvalid, errs.WithMessage("collection has no list source"))
	}
	seq := c.issued.Add(1)
	items, err := c.list(ctx)
	if err != nil {
		return err
	}
	if !c.apply(seq, items) {
		c.logger.Debug("discarded stale fetch",
			observability.F("collection", c.name),
			observability.F("seq", seq))
	}
	return nil
}

// Reset seeds the collection with items, with the same semantics as a fetch.
func (c *Collection[T]) Reset(items []T) {
	c.apply(c.issued.Add(1), items)
}

func (c *Collection[T]) apply(seq uint64, items []T) bool {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if seq < c.applied {
		c.mu.Unlock()
		return false
	}
	c.applied = seq
	c.items = sorted
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	c.notify(listeners, sorted)
	return true
}

// Destroy deletes the record on the gateway and, on success only, removes it
// locally and notifies listeners.
func (c *Collection[T]) Destroy(ctx context.Context, id int) error {
	if c.destroy == nil {
		return errs.New(c.name, errs.CodeInvalid,
			errs.WithMessage("collection does not support destroy"),
			errs.WithField("id", schema.FormatID(id)))
	}
	if err := c.destroy(ctx, id); err != nil {
		return err
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	kept := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if item.Key() != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	c.notify(listeners, kept)
	return nil
}

// Items returns a copy of the contents sorted by key.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of records held.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the record with the given key.
func (c *Collection[T]) Get(id int) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := sort.Search(len(c.items), func(i int) bool { return c.items[i].Key() >= id })
	if idx < len(c.items) && c.items[idx].Key() == id {
		return c.items[idx], true
	}
	var zero T
	return zero, false
}

// Subscribe registers fn for reset notifications and returns its cancel func.
// Listeners must not call Fetch, Reset or Destroy on the same collection.
func (c *Collection[T]) Subscribe(fn Listener[T]) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// snapshotListeners must be called with c.mu held.
func (c *Collection[T]) snapshotListeners() []Listener[T] {
	if len(c.listeners) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Listener[T], 0, len(ids))
	for _, id := range ids {
		out = append(out, c.listeners[id])
	}
	return out
}

func (c *Collection[T]) notify(listeners []Listener[T], items []T) {
	for _, fn := range listeners {
		view := make([]T, len(items))
		copy(view, items)
		fn(view)
	}
}
