package storage

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/examforge/internal/config"
)

// DiskUsage breaks down the size of an output directory.
type DiskUsage struct {
	Batches int64 `json:"batches_bytes"`
	Logs    int64 `json:"logs_bytes"`
	Ledger  int64 `json:"ledger_bytes"`
	Dataset int64 `json:"dataset_bytes"`
	Total   int64 `json:"total_bytes"`
}

// OutputDiskUsage measures the artifacts of an output layout. Missing paths count as 0.
func OutputDiskUsage(l config.Layout) (DiskUsage, error) {
	var u DiskUsage
	var err error
	if u.Batches, err = DiskUsageBytes(l.BatchesDir); err != nil {
		return u, err
	}
	if u.Logs, err = DiskUsageBytes(l.LogsDir); err != nil {
		return u, err
	}
	// WAL and shared-memory files belong to the ledger.
	if u.Ledger, err = DiskUsageBytes(l.LedgerPath, l.LedgerPath+"-wal", l.LedgerPath+"-shm"); err != nil {
		return u, err
	}
	if u.Dataset, err = DiskUsageBytes(l.DatasetPath); err != nil {
		return u, err
	}
	rest, err := DiskUsageBytes(l.ProgressFile, l.FailureLog)
	if err != nil {
		return u, err
	}
	u.Total = u.Batches + u.Logs + u.Ledger + u.Dataset + rest
	return u, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths and empty strings are skipped.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
