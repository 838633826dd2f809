package cache

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/user/sweep_analyzer_go/internal/analysis"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

const (
	kindMean = "mean"
	kindStd  = "std"
)

// SQLiteStore keeps the cache artifacts in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value INTEGER
);`,
		`CREATE TABLE IF NOT EXISTS summaries (
  kind       TEXT NOT NULL,
  experiment TEXT NOT NULL,
  payload    BLOB NOT NULL,
  PRIMARY KEY (kind, experiment)
);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LastProcessed() (int64, error) {
	var stamp int64
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, string(keyTimeProcessed)).Scan(&stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return stamp, err
}

func (s *SQLiteStore) loadDataset(kind, experiment string) (*analysis.Dataset, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM summaries WHERE kind = ? AND experiment = ?`, kind, experiment).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("experiment %s %s: %w", experiment, kind, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeDataset(payload)
}

func (s *SQLiteStore) Load(experiments []string) (map[string]analysis.Summary, error) {
	out := make(map[string]analysis.Summary, len(experiments))
	for _, name := range experiments {
		mean, err := s.loadDataset(kindMean, name)
		if err != nil {
			return nil, err
		}
		std, err := s.loadDataset(kindStd, name)
		if err != nil {
			return nil, err
		}
		out[name] = analysis.Summary{Mean: mean, Std: std}
	}
	return out, nil
}

func (s *SQLiteStore) Save(stamp int64, summaries map[string]analysis.Summary) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM summaries`); err != nil {
		return err
	}
	for name, summary := range summaries {
		for _, item := range []struct {
			kind string
			ds   *analysis.Dataset
		}{{kindMean, summary.Mean}, {kindStd, summary.Std}} {
			payload, encErr := encodeDataset(item.ds)
			if encErr != nil {
				return encErr
			}
			if _, err = tx.Exec(`INSERT INTO summaries (kind, experiment, payload) VALUES (?, ?, ?)`,
				item.kind, name, payload); err != nil {
				return err
			}
		}
	}
	if _, err = tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		string(keyTimeProcessed), stamp); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
