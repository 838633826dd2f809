package cache

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/user/sweep_analyzer_go/internal/analysis"

	"go.etcd.io/bbolt"
)

var (
	bucketMeta = []byte("meta")
	bucketMean = []byte("mean")
	bucketStd  = []byte("std")

	keyTimeProcessed = []byte("timeprocessed")
)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketMean, bucketStd} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) LastProcessed() (int64, error) {
	var stamp int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyTimeProcessed)
		if data == nil {
			return ErrNotFound
		}
		if len(data) != 8 {
			return fmt.Errorf("malformed timestamp of %d bytes", len(data))
		}
		stamp = int64(binary.BigEndian.Uint64(data))
		return nil
	})
	return stamp, err
}

func (s *BoltStore) Load(experiments []string) (map[string]analysis.Summary, error) {
	out := make(map[string]analysis.Summary, len(experiments))
	err := s.db.View(func(tx *bbolt.Tx) error {
		means, stds := tx.Bucket(bucketMean), tx.Bucket(bucketStd)
		for _, name := range experiments {
			meanData, stdData := means.Get([]byte(name)), stds.Get([]byte(name))
			if meanData == nil || stdData == nil {
				return fmt.Errorf("experiment %s: %w", name, ErrNotFound)
			}
			mean, err := decodeDataset(meanData)
			if err != nil {
				return fmt.Errorf("experiment %s mean: %w", name, err)
			}
			std, err := decodeDataset(stdData)
			if err != nil {
				return fmt.Errorf("experiment %s std: %w", name, err)
			}
			out[name] = analysis.Summary{Mean: mean, Std: std}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save rewrites all three buckets in a single transaction.
func (s *BoltStore) Save(stamp int64, summaries map[string]analysis.Summary) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMean, bucketStd} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		means, stds := tx.Bucket(bucketMean), tx.Bucket(bucketStd)
		for name, summary := range summaries {
			meanData, err := encodeDataset(summary.Mean)
			if err != nil {
				return err
			}
			stdData, err := encodeDataset(summary.Std)
			if err != nil {
				return err
			}
			if err := means.Put([]byte(name), meanData); err != nil {
				return err
			}
			if err := stds.Put([]byte(name), stdData); err != nil {
				return err
			}
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(stamp))
		return tx.Bucket(bucketMeta).Put(keyTimeProcessed, buf)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
