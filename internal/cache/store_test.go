package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/sweep_analyzer_go/internal/analysis"
	"github.com/user/sweep_analyzer_go/internal/parser"
)

func sampleSummary(offset float64) analysis.Summary {
	dims := []analysis.Dimension{{Name: "time", Values: []parser.Value{parser.Float(0), parser.Float(1)}}}
	mean := analysis.NewDataset(dims, []string{"value"})
	std := analysis.NewDataset(dims, []string{"value"})
	mean.Variables[0].Values[0], mean.Variables[0].Present[0] = 15+offset, true
	mean.Variables[0].Values[1], mean.Variables[0].Present[1] = 17+offset, true
	std.Variables[0].Values[0], std.Variables[0].Present[0] = 5, true
	return analysis.Summary{Mean: mean, Std: std}
}

func encoded(t *testing.T, ds *analysis.Dataset) []byte {
	t.Helper()
	data, err := encodeDataset(ds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestStores(t *testing.T) {
	for _, backend := range []string{BackendBolt, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			path := Path(backend, filepath.Join(t.TempDir(), "data_summary"))
			store, err := Open(backend, path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}

			if _, err := store.LastProcessed(); !errors.Is(err, ErrNotFound) {
				t.Errorf("fresh store LastProcessed error = %v, want ErrNotFound", err)
			}
			if _, err := store.Load([]string{"a"}); !errors.Is(err, ErrNotFound) {
				t.Errorf("fresh store Load error = %v, want ErrNotFound", err)
			}

			summaries := map[string]analysis.Summary{
				"a": sampleSummary(0),
				"b": analysis.EmptySummary(),
			}
			if err := store.Save(1234, summaries); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			// Reopen to check persistence.
			store, err = Open(backend, path)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer store.Close()

			stamp, err := store.LastProcessed()
			if err != nil || stamp != 1234 {
				t.Errorf("LastProcessed = %d, %v want 1234", stamp, err)
			}
			loaded, err := store.Load([]string{"a", "b"})
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !bytes.Equal(encoded(t, loaded["a"].Mean), encoded(t, summaries["a"].Mean)) {
				t.Error("mean dataset changed across a save/load cycle")
			}
			if !loaded["b"].Mean.IsEmpty() {
				t.Error("empty summary came back non-empty")
			}

			// A second save replaces rather than accumulates.
			if err := store.Save(99, map[string]analysis.Summary{"c": sampleSummary(1)}); err != nil {
				t.Fatalf("second Save: %v", err)
			}
			if _, err := store.Load([]string{"a"}); !errors.Is(err, ErrNotFound) {
				t.Errorf("stale experiment still loadable: %v", err)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("redis", "x"); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestNewestModTime(t *testing.T) {
	dir := t.TempDir()
	if stamp, exists, err := NewestModTime(dir); err != nil || !exists || stamp != 0 {
		t.Errorf("empty dir = %d,%v,%v", stamp, exists, err)
	}

	older := filepath.Join(dir, "a.csv")
	newer := filepath.Join(dir, "b.csv")
	for _, p := range []string{older, newer} {
		if err := os.WriteFile(p, []byte("0 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(newer)
	if err != nil {
		t.Fatal(err)
	}

	stamp, exists, err := NewestModTime(dir)
	if err != nil || !exists {
		t.Fatalf("NewestModTime: %v %v", exists, err)
	}
	if stamp != info.ModTime().UnixNano() {
		t.Errorf("stamp = %d, want %d", stamp, info.ModTime().UnixNano())
	}

	if _, exists, err := NewestModTime(filepath.Join(dir, "missing")); exists || err != nil {
		t.Errorf("missing dir = %v, %v", exists, err)
	}
}
