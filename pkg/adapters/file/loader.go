// Package file loads template definitions from a directory and caches
// waveforms on the local filesystem.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/pulse/internal/compiler"
	"github.com/aretw0/pulse/internal/dto"
	"github.com/aretw0/pulse/internal/logging"
	"github.com/aretw0/pulse/pkg/adapters/memory"
	"github.com/aretw0/pulse/pkg/domain"
)

// DefaultPattern matches every definition file below the directory.
const DefaultPattern = "**/*.{yaml,yml,json}"

// Loader implements ports.TemplateLoader and ports.Watchable over a directory
// of definition files. Templates may reference templates of other files.
type Loader struct {
	dir      string
	pattern  string
	debounce time.Duration
	logger   *slog.Logger

	templates *memory.Loader

	mu    sync.RWMutex
	files []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithPattern sets the doublestar pattern selecting definition files.
func WithPattern(pattern string) Option {
	return func(l *Loader) { l.pattern = pattern }
}

// WithLogger sets the logger used for reload failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithDebounce sets how long Watch waits for a burst of file events to settle.
func WithDebounce(d time.Duration) Option {
	return func(l *Loader) { l.debounce = d }
}

// New loads every definition file of dir.
func New(dir string, opts ...Option) (*Loader, error) {
	l := &Loader{
		dir:       dir,
		pattern:   DefaultPattern,
		debounce:  100 * time.Millisecond,
		logger:    logging.NewNop(),
		templates: memory.NewLoader(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if !doublestar.ValidatePattern(l.pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", l.pattern)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string { return l.dir }

// Files returns the definition files of the last successful load, relative to Dir.
func (l *Loader) Files() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.files...)
}

// Reload re-reads every definition file. On failure the previous template set stays active.
func (l *Loader) Reload() error {
	fsys := os.DirFS(l.dir)
	files, err := doublestar.Glob(fsys, l.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("failed to list definition files in %s: %w", l.dir, err)
	}
	sort.Strings(files)

	parser := compiler.NewParser()
	var defs []dto.TemplateDefinition
	origin := make(map[string]string)
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		fileDefs, err := parser.Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, def := range fileDefs {
			if prev, dup := origin[def.ID]; dup {
				return fmt.Errorf("%w: %s defined in %s and %s", compiler.ErrDuplicateID, def.ID, prev, name)
			}
			origin[def.ID] = name
		}
		defs = append(defs, fileDefs...)
	}

	templates, err := compiler.Compile(defs)
	if err != nil {
		return err
	}
	if err := l.templates.Replace(templates...); err != nil {
		return err
	}

	l.mu.Lock()
	l.files = files
	l.mu.Unlock()
	return nil
}

// GetTemplate retrieves a template by ID.
func (l *Loader) GetTemplate(id string) (domain.Template, error) {
	return l.templates.GetTemplate(id)
}

// ListTemplates returns all available template IDs.
func (l *Loader) ListTemplates() ([]string, error) {
	return l.templates.ListTemplates()
}

// Watch implements ports.Watchable. The returned channel is signaled after
// every successful reload and closed when ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}
	// fsnotify is not recursive: watch every directory below dir.
	err = filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Has(fsnotify.Create) {
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						_ = watcher.Add(evt.Name)
					}
				}
				if !l.relevant(evt.Name) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(l.debounce)
				} else {
					timer.Reset(l.debounce)
				}
				fire = timer.C
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("file watcher error", "dir", l.dir, "err", err)
			case <-fire:
				fire = nil
				if err := l.Reload(); err != nil {
					l.logger.Error("reload failed, keeping previous templates", "dir", l.dir, "err", err)
					continue
				}
				l.logger.Info("templates reloaded", "dir", l.dir, "files", len(l.Files()))
				select {
				case ch <- struct{}{}:
				default: // a signal is already pending
				}
			}
		}
	}()
	return ch, nil
}

func (l *Loader) relevant(path string) bool {
	rel, err := filepath.Rel(l.dir, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(l.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}
