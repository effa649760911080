package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-automation/internal/event"
)

// Logger defines the logging interface used by the ModelRegistry and Engine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type cachedModel struct {
	model    *RuleModel
	checksum string
}

// ModelRegistry provides rule model management with caching and thread
// safety. It wraps a Repository of YAML sources and keeps the parsed
// models in memory.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by SaveModel and DeleteModel, which also notify model change listeners
// after the cache lock has been released.
type ModelRegistry struct {
	repo    Repository
	cache   map[string]*cachedModel // Parsed models by name
	cacheMu sync.RWMutex            // Protects cache
	logger  Logger

	listeners event.Listeners[ModelChangeListener]
}

// NewModelRegistry creates a new model registry over repo.
func NewModelRegistry(repo Repository) *ModelRegistry {
	return &ModelRegistry{
		repo:   repo,
		cache:  make(map[string]*cachedModel),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *ModelRegistry) SetLogger(logger Logger) {
	r.logger = logger
}

// AddModelChangeListener registers l.
func (r *ModelRegistry) AddModelChangeListener(l ModelChangeListener) error {
	_, err := r.listeners.Add(l)
	return err
}

// RemoveModelChangeListener unregisters l.
func (r *ModelRegistry) RemoveModelChangeListener(l ModelChangeListener) {
	r.listeners.Remove(l)
}

// RefreshCache reloads all models from the repository. Models that no
// longer parse are logged and skipped so one broken file does not take
// the others down.
func (r *ModelRegistry) RefreshCache(ctx context.Context) error {
	stored, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading models: %w", err)
	}

	cache := make(map[string]*cachedModel, len(stored))
	for _, s := range stored {
		m, parseErr := ParseModel(s.Name, []byte(s.Content))
		if parseErr != nil {
			r.logger.Error("skipping invalid rule model", "model", s.Name, "error", parseErr)
			continue
		}
		cache[s.Name] = &cachedModel{model: m, checksum: s.Checksum}
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.cacheMu.Unlock()

	r.logger.Info("rule model cache refreshed", "count", len(cache))
	return nil
}

// GetAllModelNamesOfType returns the sorted names of cached models whose
// extension is kind.
func (r *ModelRegistry) GetAllModelNamesOfType(kind string) []string {
	suffix := "." + kind

	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var names []string
	for name := range r.cache {
		if strings.HasSuffix(name, suffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GetModel returns a deep copy of the named model, or nil when unknown.
func (r *ModelRegistry) GetModel(name string) *RuleModel {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if c, ok := r.cache[name]; ok {
		return c.model.DeepCopy()
	}
	return nil
}

// GetModelCount returns the number of cached models.
func (r *ModelRegistry) GetModelCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// SaveModel parses, persists and caches a model source. Listeners are told
// ModelAdded or ModelModified; saving unchanged content is a no-op.
func (r *ModelRegistry) SaveModel(ctx context.Context, name string, content []byte) error {
	m, err := ParseModel(name, content)
	if err != nil {
		return err
	}
	sum := Checksum(content)

	r.cacheMu.RLock()
	existing, ok := r.cache[name]
	r.cacheMu.RUnlock()
	if ok && existing.checksum == sum {
		r.logger.Debug("rule model unchanged", "model", name)
		return nil
	}

	created, err := r.repo.Save(ctx, &StoredModel{Name: name, Content: string(content), Checksum: sum})
	if err != nil {
		return err
	}

	r.cacheMu.Lock()
	_, cached := r.cache[name]
	r.cache[name] = &cachedModel{model: m, checksum: sum}
	r.cacheMu.Unlock()

	kind := ModelModified
	if created || !cached {
		kind = ModelAdded
	}
	r.logger.Info("rule model saved", "model", name, "rules", len(m.Rules), "change", kind)
	r.notify(name, kind)
	return nil
}

// DeleteModel removes a model from persistence and cache.
func (r *ModelRegistry) DeleteModel(ctx context.Context, name string) error {
	if err := r.repo.Delete(ctx, name); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, name)
	r.cacheMu.Unlock()

	r.logger.Info("rule model deleted", "model", name)
	r.notify(name, ModelRemoved)
	return nil
}

// LoadDir saves every *.rules file in dir. Files that fail to parse are
// collected into the returned error; the rest are still loaded.
func (r *ModelRegistry) LoadDir(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+modelExtension))
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(paths)

	var (
		loaded int
		errs   []error
	)
	for _, path := range paths {
		data, readErr := os.ReadFile(path) //nolint:gosec // Path comes from operator configuration
		if readErr != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", path, readErr))
			continue
		}
		if saveErr := r.SaveModel(ctx, filepath.Base(path), data); saveErr != nil {
			errs = append(errs, saveErr)
			continue
		}
		loaded++
	}
	return loaded, errors.Join(errs...)
}

func (r *ModelRegistry) notify(name string, kind ModelEventType) {
	for _, l := range r.listeners.Snapshot() {
		l.ModelChanged(name, kind)
	}
}
