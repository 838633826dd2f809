package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/user/sweep_analyzer_go/internal/analysis"
)

// ErrNotFound is returned when an artifact has never been written.
var ErrNotFound = errors.New("cache artifact not found")

// Store persists the three cache artifacts: the newest input modification
// time and the mean and standard deviation summaries per experiment.
type Store interface {
	// LastProcessed returns the stamp written by the last Save.
	LastProcessed() (int64, error)

	// Load returns the summaries of the named experiments. Any experiment
	// absent from the store yields ErrNotFound.
	Load(experiments []string) (map[string]analysis.Summary, error)

	// Save replaces every stored artifact.
	Save(stamp int64, summaries map[string]analysis.Summary) error

	Close() error
}

const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// Path returns the file a backend keeps its artifacts in.
func Path(backend, base string) string {
	if backend == BackendSQLite {
		return base + ".sqlite"
	}
	return base + ".db"
}

// Open opens the store for the given backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendBolt, "":
		return NewBoltStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

func encodeDataset(ds *analysis.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ds); err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeDataset(data []byte) (*analysis.Dataset, error) {
	ds := &analysis.Dataset{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return ds, nil
}
