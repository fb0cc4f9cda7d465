package pulse_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/pulse"
	"github.com/aretw0/pulse/pkg/adapters/file"
	"github.com/aretw0/pulse/pkg/adapters/memory"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
)

const library = `
templates:
  flat:
    kind: constant
    duration: 10
    channels:
      A: 1.0
      B: 0.2
  divide:
    kind: constant
    duration: 1
    channels:
      A: 1 / 0
`

func writeLibrary(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "library.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFacade_Integration(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, library)

	eng, err := pulse.New(dir)
	if err != nil {
		t.Fatalf("Failed to initialize engine with dir %s: %v", dir, err)
	}
	if eng.Name != filepath.Base(dir) {
		t.Errorf("Expected name %q, got %q", filepath.Base(dir), eng.Name)
	}

	ids, err := eng.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "divide" || ids[1] != "flat" {
		t.Errorf("Expected [divide flat], got %v", ids)
	}

	w, err := eng.Render(context.Background(), "flat", expr.NewInt(100), nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if w.Len() != 1001 {
		t.Errorf("Expected 1001 samples, got %d", w.Len())
	}
	for i, v := range w.Values["A"] {
		if v != 1.0 {
			t.Fatalf("A[%d] = %v, want 1.0", i, v)
		}
	}

	_, err = eng.Render(context.Background(), "ghost", expr.NewInt(1), nil)
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Errorf("Expected ErrTemplateNotFound, got %v", err)
	}
}

func TestFacade_Validate(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, library)

	eng, err := pulse.New(dir)
	if err != nil {
		t.Fatal(err)
	}

	report, err := eng.Validate()
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if report.Err() == nil {
		t.Fatal("Expected validation error for divide")
	}
	if report.Checked != 2 {
		t.Errorf("Expected 2 templates checked, got %d", report.Checked)
	}
	if len(report.Issues) == 0 || report.Issues[0].Template != "divide" {
		t.Errorf("Expected an issue for divide, got %v", report.Issues)
	}
}

func TestFacade_RequiresDirOrLoader(t *testing.T) {
	if _, err := pulse.New(""); err == nil {
		t.Error("Expected error without dir or loader")
	}
}

func TestFacade_WatchUnsupported(t *testing.T) {
	eng, err := pulse.New("", pulse.WithLoader(memory.NewLoader()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Watch(context.Background()); err == nil {
		t.Error("Expected error when the loader cannot watch")
	}
}

func TestFacade_WatchInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, library)

	loader, err := file.New(dir, file.WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	cache := memory.NewCache()
	eng, err := pulse.New(dir, pulse.WithLoader(loader), pulse.WithCache(cache))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := eng.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if _, err := eng.Render(ctx, "flat", expr.NewInt(1), nil); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 1 {
		t.Fatalf("Expected 1 cached waveform, got %d", cache.Len())
	}

	writeLibrary(t, dir, `
templates:
  flat:
    kind: constant
    duration: 10
    channels:
      A: 2
`)

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for reload")
	}
	if cache.Len() != 0 {
		t.Errorf("Expected cache to be cleared on reload, got %d entries", cache.Len())
	}

	w, err := eng.Render(ctx, "flat", expr.NewInt(1), nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.Values["A"][0] != 2 {
		t.Errorf("Expected reloaded value 2, got %v", w.Values["A"][0])
	}
}

// watchableLoader counts the watches started on a memory loader and lets the
// test trigger changes.
type watchableLoader struct {
	*memory.Loader
	mu      sync.Mutex
	watches int
	ctxs    []context.Context
	changes chan struct{}
}

func (l *watchableLoader) Watch(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watches++
	l.ctxs = append(l.ctxs, ctx)
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.changes:
				out <- struct{}{}
			}
		}
	}()
	return out, nil
}

func TestFacade_WatchSharedBySubscribers(t *testing.T) {
	tpl, err := domain.NewConstant(10, domain.Ch("A", 1))
	if err != nil {
		t.Fatal(err)
	}
	base, err := memory.NewFromTemplates(domain.Named(tpl, "flat"))
	if err != nil {
		t.Fatal(err)
	}
	loader := &watchableLoader{Loader: base, changes: make(chan struct{})}
	cache := memory.NewCache()
	eng, err := pulse.New("", pulse.WithLoader(loader), pulse.WithCache(cache))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var subs []<-chan struct{}
	for i := 0; i < 3; i++ {
		ch, err := eng.Watch(ctx)
		if err != nil {
			t.Fatalf("Watch failed: %v", err)
		}
		subs = append(subs, ch)
	}
	if loader.watches != 1 {
		t.Fatalf("Expected one loader watch for 3 subscribers, got %d", loader.watches)
	}

	if _, err := eng.Render(ctx, "flat", expr.NewInt(1), nil); err != nil {
		t.Fatal(err)
	}
	loader.changes <- struct{}{}
	for i, ch := range subs {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("Subscriber %d was not notified", i)
		}
	}
	if cache.Len() != 0 {
		t.Errorf("Expected cache to be cleared on change, got %d entries", cache.Len())
	}

	// The loader watch stops with the last subscriber.
	cancel()
	for i, ch := range subs {
		select {
		case _, ok := <-ch:
			if ok {
				t.Errorf("Subscriber %d: expected closed channel", i)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("Subscriber %d was not closed", i)
		}
	}
	loader.mu.Lock()
	first := loader.ctxs[0]
	loader.mu.Unlock()
	select {
	case <-first.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Loader watch was not stopped")
	}

	// A new subscriber starts a new watch.
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	if _, err := eng.Watch(ctx2); err != nil {
		t.Fatal(err)
	}
	loader.mu.Lock()
	defer loader.mu.Unlock()
	if loader.watches != 2 {
		t.Errorf("Expected a second loader watch, got %d", loader.watches)
	}
}
