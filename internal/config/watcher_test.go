package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[Runtime]) *Watcher[Runtime] {
	t.Helper()
	opts = append([]WatcherOption[Runtime]{WithDebounce[Runtime](30 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, LoadRuntime, quietLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	// fsnotify needs a moment before events are delivered reliably.
	time.Sleep(50 * time.Millisecond)
	return w
}

func TestWatcherReloadsRuntime(t *testing.T) {
	path := writeFile(t, "[leds]\nsaturation_boost = false\n")

	w := startWatcher(t, path)
	received := make(chan Runtime, 1)
	w.OnReload(func(rt Runtime) { received <- rt })

	if err := os.WriteFile(path, []byte("[leds]\nsaturation_boost = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case rt := <-received:
		if !rt.SaturationBoost {
			t.Error("reloaded config should have boost enabled")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherFollowsRenameSave(t *testing.T) {
	path := writeFile(t, "[logging]\nlevel = \"info\"\n")

	w := startWatcher(t, path)
	received := make(chan Runtime, 4)
	w.OnReload(func(rt Runtime) { received <- rt })

	tmp := filepath.Join(filepath.Dir(path), "config.toml.swp")
	if err := os.WriteFile(tmp, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case rt := <-received:
		if rt.Logging.Level != "debug" {
			t.Errorf("level = %q, want debug", rt.Logging.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestWatcherDebounce(t *testing.T) {
	path := writeFile(t, "")

	w := startWatcher(t, path, WithDebounce[Runtime](150*time.Millisecond))
	var calls atomic.Int32
	w.OnReload(func(Runtime) { calls.Add(1) })

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("[leds]\nsaturation_boost = true\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(400 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := writeFile(t, "")

	w := startWatcher(t, path)
	var kept, removed atomic.Int32
	w.OnReload(func(Runtime) { kept.Add(1) })
	unsubscribe := w.OnReload(func(Runtime) { removed.Add(1) })
	unsubscribe()

	if err := os.WriteFile(path, []byte("[leds]\nsaturation_boost = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if kept.Load() == 0 {
		t.Error("remaining handler was not called")
	}
	if removed.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := writeFile(t, "")

	errs := make(chan error, 4)
	w := startWatcher(t, path, WithErrorHandler[Runtime](func(err error) { errs <- err }))
	var calls atomic.Int32
	w.OnReload(func(Runtime) { calls.Add(1) })

	if err := os.WriteFile(path, []byte("[leds\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("expected load error")
	}
	if calls.Load() != 0 {
		t.Error("handlers must not run when loading fails")
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	path := writeFile(t, "")

	w := startWatcher(t, path)
	var calls atomic.Int32
	w.OnReload(func(Runtime) { calls.Add(1) })

	sibling := filepath.Join(filepath.Dir(path), "other.toml")
	if err := os.WriteFile(sibling, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if calls.Load() != 0 {
		t.Error("changes to other files must not trigger reloads")
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	path := writeFile(t, "")
	w := NewConfigWatcher(path, LoadRuntime, quietLogger())
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop = %v", err)
	}
}
