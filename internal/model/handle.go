package model

import (
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Source yields the loaded model. Every call returns the same result.
type Source interface {
	Get() (Booster, error)
	Path() string
}

// Handle loads a model at most once and shares the outcome with every
// caller, failures included. A failed load is not retried.
type Handle struct {
	path   string
	load   Loader
	logger *slog.Logger

	once    sync.Once
	booster Booster
	err     error
	done    atomic.Bool
}

// NewHandle returns a handle that loads path with load on first use.
func NewHandle(path string, load Loader, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{path: path, load: load, logger: logger}
}

// Get loads the model on the first call and returns the cached result on
// every later one.
func (h *Handle) Get() (Booster, error) {
	h.once.Do(func() {
		b, err := h.load(h.path)
		if err != nil {
			h.err = err
			h.logger.Error("model load failed", "path", h.path, "error", err)
		} else {
			h.booster = b
			h.logger.Info("model loaded", "path", h.path, "features", b.NumFeatures())
		}
		h.done.Store(true)
	})
	return h.booster, h.err
}

// Path returns the artifact path the handle loads.
func (h *Handle) Path() string { return h.path }

// Status reports whether a load has been attempted and whether it succeeded.
func (h *Handle) Status() (attempted, ok bool) {
	if !h.done.Load() {
		return false, false
	}
	return true, h.err == nil
}

// Cache holds one Handle per model path.
type Cache struct {
	load   Loader
	logger *slog.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewCache returns an empty cache whose handles load with load.
func NewCache(load Loader, logger *slog.Logger) *Cache {
	return &Cache{load: load, logger: logger, handles: make(map[string]*Handle)}
}

// Handle returns the handle for path, creating it on first request. Paths
// are compared after filepath.Clean.
func (c *Cache) Handle(path string) *Handle {
	key := filepath.Clean(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[key]; ok {
		return h
	}
	h := NewHandle(key, c.load, c.logger)
	c.handles[key] = h
	return h
}

var (
	sharedOnce sync.Once
	shared     *Cache
)

// Shared returns the process-wide cache backed by Load.
func Shared() *Cache {
	sharedOnce.Do(func() { shared = NewCache(Load, nil) })
	return shared
}
