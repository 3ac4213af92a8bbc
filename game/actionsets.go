package game

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/config"
	"github.com/pthm-cable/cortex/curves"
	"github.com/pthm-cable/cortex/registry"
)

//go:embed actionsets/*.yaml
var embeddedSets embed.FS

// Action-set names the village spawns entities with.
const (
	setVillager  = "villager"
	setFoodStall = "food_stall"
	setBed       = "bed"
)

// NewLoader builds an action-set loader from the curve settings.
func NewLoader(cfg config.CurvesConfig, logger *slog.Logger) *actions.Loader {
	return &actions.Loader{
		Curves:    curves.NewLibrary(),
		OnMissing: actions.MissingCurve(cfg.OnMissing),
		Fallback:  cfg.Fallback,
		Logger:    logger,
	}
}

// LoadActionSets loads dir, or the embedded village sets when dir is empty.
func LoadActionSets(ctx context.Context, loader *actions.Loader, dir string) (*actions.Store, error) {
	if dir == "" {
		return loader.LoadFS(ctx, embeddedSets, "actionsets")
	}
	store, err := loader.LoadDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("loading action sets from %s: %w", dir, err)
	}
	return store, nil
}

// Reloader watches an action-set directory and reloads it after changes
// settle. The new store is handed over with Take between ticks; a failed
// reload keeps the previous store.
type Reloader struct {
	mu       sync.Mutex
	loader   *actions.Loader
	dir      string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
	dirtyAt  time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	pending  atomic.Pointer[actions.Store]
	reloads  atomic.Int64
	failures atomic.Int64
}

// NewReloader creates a reloader for dir. Call Start to begin watching.
func NewReloader(loader *actions.Loader, dir string, logger *slog.Logger) (*Reloader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		loader:   loader,
		dir:      dir,
		watcher:  w,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	if err := r.watcher.Add(r.dir); err != nil {
		return fmt.Errorf("watching %s: %w", r.dir, err)
	}
	r.running = true
	go r.run(ctx)
	r.logger.Info("watching action sets", "dir", r.dir)
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (r *Reloader) Stop() {
	r.mu.Lock()
	running := r.running
	r.running = false
	r.mu.Unlock()

	if running {
		close(r.stopCh)
		<-r.doneCh
	}
	if err := r.watcher.Close(); err != nil {
		r.logger.Error("closing action set watcher", "error", err)
	}
}

// Reload loads the directory now and queues the result for Take.
func (r *Reloader) Reload(ctx context.Context) error {
	store, err := r.loader.LoadDir(ctx, r.dir)
	if err != nil {
		r.failures.Add(1)
		return err
	}
	r.pending.Store(store)
	r.reloads.Add(1)
	return nil
}

// Take returns the most recently reloaded store, once.
func (r *Reloader) Take() (*actions.Store, bool) {
	s := r.pending.Swap(nil)
	return s, s != nil
}

// Reloads returns the number of successful and failed reloads.
func (r *Reloader) Reloads() (ok, failed int64) {
	return r.reloads.Load(), r.failures.Load()
}

func (r *Reloader) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !actions.IsActionSetFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			r.logger.Debug("action set changed", "file", event.Name, "op", event.Op.String())
			r.dirtyAt = time.Now()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("action set watcher", "error", err)

		case <-ticker.C:
			if r.dirtyAt.IsZero() || time.Since(r.dirtyAt) < r.debounce {
				continue
			}
			r.dirtyAt = time.Time{}
			if err := r.Reload(ctx); err != nil {
				r.logger.Error("reloading action sets, keeping previous", "dir", r.dir, "error", err)
				continue
			}
			r.logger.Info("action sets reloaded", "dir", r.dir)
		}
	}
}

// ValidationReport summarises a validated action-set directory.
type ValidationReport struct {
	Sets      int
	Templates int
}

// ValidateActionSets loads dir (or the embedded sets when empty) and checks
// that every key its templates name is registered by the village.
func ValidateActionSets(ctx context.Context, cfg *config.Config, dir string) (ValidationReport, error) {
	store, err := LoadActionSets(ctx, NewLoader(cfg.Curves, slog.Default()), dir)
	if err != nil {
		return ValidationReport{}, err
	}

	reg := registry.New()
	if err := registerBehaviors(reg, cfg.Sim); err != nil {
		return ValidationReport{}, err
	}
	snap := reg.Snapshot()

	var errs []error
	check := func(set, tmpl string, kind registry.Kind, key string) {
		if !snap.Has(kind, key) {
			errs = append(errs, fmt.Errorf("set %q template %q: %s %q: %w", set, tmpl, kind, key, registry.ErrKeyNotFound))
		}
	}
	for _, name := range store.SortedNames() {
		set, _ := store.Get(name)
		for _, t := range set.Templates() {
			check(name, t.Name, registry.KindFetcher, t.Fetcher)
			check(name, t.Name, registry.KindHandler, t.Key)
			for _, c := range t.Considerations {
				check(name, t.Name, registry.KindConsideration, c.Key)
			}
		}
	}
	if len(errs) > 0 {
		return ValidationReport{}, errors.Join(errs...)
	}
	return ValidationReport{Sets: store.Len(), Templates: store.TemplateCount()}, nil
}
