package cache

import (
	"errors"
	"fmt"
	"os"
)

// NewestModTime returns the latest modification time, in Unix nanoseconds,
// among the entries of dir. exists is false when dir is missing; an empty
// directory yields zero.
func NewestModTime(dir string) (stamp int64, exists bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to list input directory: %w", err)
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return 0, true, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		if t := info.ModTime().UnixNano(); t > stamp {
			stamp = t
		}
	}
	return stamp, true, nil
}
