// Package registry maps string keys to the caller-supplied functions the
// decision engine invokes: context fetchers, considerations and action
// handlers.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrKeyNotFound is returned when no function is registered under a key.
	ErrKeyNotFound = errors.New("registry key not found")
	// ErrTypeMismatch is returned when a registered value does not satisfy
	// the contract of its kind.
	ErrTypeMismatch = errors.New("registry type mismatch")
)

// Kind selects one of the registry's key spaces.
type Kind uint8

const (
	KindFetcher Kind = iota
	KindConsideration
	KindHandler
)

func (k Kind) String() string {
	switch k {
	case KindFetcher:
		return "context_fetcher"
	case KindConsideration:
		return "consideration"
	case KindHandler:
		return "action_handler"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Registry holds the registered functions. Writes are serialized and publish
// a new immutable Snapshot; readers never block.
type Registry struct {
	mu     sync.Mutex
	snap   atomic.Pointer[Snapshot]
	logger *slog.Logger
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{logger: slog.Default()}
	r.snap.Store(&Snapshot{
		fetchers:       map[string]ContextFetcher{},
		considerations: map[string]Consideration{},
		handlers:       map[string]ActionHandler{},
	})
	return r
}

// SetLogger replaces the logger used for duplicate-registration warnings.
func (r *Registry) SetLogger(l *slog.Logger) {
	r.mu.Lock()
	r.logger = l
	r.mu.Unlock()
}

// Register stores fn under (kind, key). fn may implement the kind's
// interface or be a plain function with the matching signature.
// Re-registering a key logs a warning and the last registration wins.
func (r *Registry) Register(kind Kind, key string, fn any) error {
	if key == "" {
		return fmt.Errorf("register %s: empty key", kind)
	}
	if fn == nil {
		return fmt.Errorf("register %s %q: %w: nil value", kind, key, ErrTypeMismatch)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.snap.Load()
	next := *old
	next.version++

	var exists bool
	switch kind {
	case KindFetcher:
		f, ok := asFetcher(fn)
		if !ok {
			return mismatch(kind, key, fn)
		}
		_, exists = old.fetchers[key]
		next.fetchers = cloneWith(old.fetchers, key, f)
	case KindConsideration:
		c, ok := asConsideration(fn)
		if !ok {
			return mismatch(kind, key, fn)
		}
		_, exists = old.considerations[key]
		next.considerations = cloneWith(old.considerations, key, c)
	case KindHandler:
		h, ok := asHandler(fn)
		if !ok {
			return mismatch(kind, key, fn)
		}
		_, exists = old.handlers[key]
		next.handlers = cloneWith(old.handlers, key, h)
	default:
		return fmt.Errorf("register %q: unknown %s", key, kind)
	}

	if exists {
		r.logger.Warn("duplicate registration, last registration wins", "kind", kind.String(), "key", key)
	}
	r.snap.Store(&next)
	return nil
}

// RegisterFetcher registers a context fetcher.
func (r *Registry) RegisterFetcher(key string, f ContextFetcher) error {
	return r.Register(KindFetcher, key, f)
}

// RegisterConsideration registers a consideration.
func (r *Registry) RegisterConsideration(key string, c Consideration) error {
	return r.Register(KindConsideration, key, c)
}

// RegisterHandler registers an action handler.
func (r *Registry) RegisterHandler(key string, h ActionHandler) error {
	return r.Register(KindHandler, key, h)
}

// Lookup returns the function stored under (kind, key).
func (r *Registry) Lookup(kind Kind, key string) (any, error) {
	return r.Snapshot().Lookup(kind, key)
}

// Snapshot returns the current immutable view of the registry.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

func mismatch(kind Kind, key string, fn any) error {
	return fmt.Errorf("register %s %q: %w: got %T", kind, key, ErrTypeMismatch, fn)
}

func cloneWith[V any](m map[string]V, key string, v V) map[string]V {
	out := make(map[string]V, len(m)+1)
	for k, existing := range m {
		out[k] = existing
	}
	out[key] = v
	return out
}

func asFetcher(fn any) (ContextFetcher, bool) {
	switch f := fn.(type) {
	case ContextFetcher:
		return f, true
	case func(WorldView, EntityID, EntityID) []ContextID:
		return FetcherFunc(f), true
	}
	return nil, false
}

func asConsideration(fn any) (Consideration, bool) {
	switch c := fn.(type) {
	case Consideration:
		return c, true
	case func(WorldView, EntityID, EntityID, ContextID) (float64, bool):
		return ConsiderationFunc(c), true
	}
	return nil, false
}

func asHandler(fn any) (ActionHandler, bool) {
	switch h := fn.(type) {
	case ActionHandler:
		return h, true
	case func(WorldView, Dispatch, *Commands) error:
		return HandlerFunc(h), true
	}
	return nil, false
}

// Snapshot is an immutable view of the registry, shared by every
// controller pass in a tick.
type Snapshot struct {
	fetchers       map[string]ContextFetcher
	considerations map[string]Consideration
	handlers       map[string]ActionHandler
	version        uint64
}

// Version increases with every registration.
func (s *Snapshot) Version() uint64 { return s.version }

// Fetcher returns the context fetcher registered under key.
func (s *Snapshot) Fetcher(key string) (ContextFetcher, error) {
	f, ok := s.fetchers[key]
	if !ok {
		return nil, notFound(KindFetcher, key)
	}
	return f, nil
}

// Consideration returns the consideration registered under key.
func (s *Snapshot) Consideration(key string) (Consideration, error) {
	c, ok := s.considerations[key]
	if !ok {
		return nil, notFound(KindConsideration, key)
	}
	return c, nil
}

// Handler returns the action handler registered under key.
func (s *Snapshot) Handler(key string) (ActionHandler, error) {
	h, ok := s.handlers[key]
	if !ok {
		return nil, notFound(KindHandler, key)
	}
	return h, nil
}

// Lookup returns the function stored under (kind, key).
func (s *Snapshot) Lookup(kind Kind, key string) (any, error) {
	switch kind {
	case KindFetcher:
		return s.Fetcher(key)
	case KindConsideration:
		return s.Consideration(key)
	case KindHandler:
		return s.Handler(key)
	}
	return nil, fmt.Errorf("lookup %q: unknown %s", key, kind)
}

// Has reports whether key is registered for kind.
func (s *Snapshot) Has(kind Kind, key string) bool {
	_, err := s.Lookup(kind, key)
	return err == nil
}

// Keys returns the registered keys of kind in sorted order.
func (s *Snapshot) Keys(kind Kind) []string {
	var keys []string
	switch kind {
	case KindFetcher:
		keys = mapKeys(s.fetchers)
	case KindConsideration:
		keys = mapKeys(s.considerations)
	case KindHandler:
		keys = mapKeys(s.handlers)
	}
	sort.Strings(keys)
	return keys
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func notFound(kind Kind, key string) error {
	return fmt.Errorf("%s %q: %w", kind, key, ErrKeyNotFound)
}
