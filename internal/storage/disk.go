package storage

import (
	"os"
	"path/filepath"
)

// Usage summarizes files below one or more paths.
type Usage struct {
	Bytes  int64 `json:"bytes"`
	Files  int   `json:"files"`
	Models int   `json:"models"`
}

// DiskUsage sums file sizes below the given paths. Each path may be a file or a directory
// (walked recursively). Files recognized as period models are counted in Models.
// Missing paths and empty strings are skipped; other errors are returned.
func DiskUsage(paths ...string) (Usage, error) {
	var u Usage
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Usage{}, err
		}
		if !info.IsDir() {
			u.add(p, info.Size())
			continue
		}
		err = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info != nil && !info.IsDir() {
				u.add(path, info.Size())
			}
			return nil
		})
		if err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}

func (u *Usage) add(path string, size int64) {
	u.Bytes += size
	u.Files++
	if _, ok := PeriodFromPath(path); ok {
		u.Models++
	}
}
