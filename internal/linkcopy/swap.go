package linkcopy

import (
	"context"
	"fmt"
	"os"
)

// Suffixes of the transient siblings used by Replace.
const (
	stagingSuffix = ".envstash-new"
	backupSuffix  = ".envstash-old"
)

// Replace swaps the tree at live for a linked copy of src. The copy is built
// beside live first, so a failed copy leaves live untouched.
func Replace(ctx context.Context, src, live string, opts Options) (*Stats, error) {
	staging := live + stagingSuffix
	backup := live + backupSuffix

	// Leftovers from an interrupted run.
	if err := os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("remove stale staging copy: %w", err)
	}
	if err := os.RemoveAll(backup); err != nil {
		return nil, fmt.Errorf("remove stale backup: %w", err)
	}

	stats, err := Tree(ctx, src, staging, opts)
	if err != nil {
		os.RemoveAll(staging)
		return stats, err
	}

	hadLive := true
	if err := os.Rename(live, backup); err != nil {
		if !os.IsNotExist(err) {
			os.RemoveAll(staging)
			return stats, fmt.Errorf("move live tree aside: %w", err)
		}
		hadLive = false
	}

	if err := os.Rename(staging, live); err != nil {
		if hadLive {
			os.Rename(backup, live)
		}
		os.RemoveAll(staging)
		return stats, fmt.Errorf("swap in restored tree: %w", err)
	}

	if hadLive {
		if err := os.RemoveAll(backup); err != nil {
			return stats, fmt.Errorf("remove previous tree: %w", err)
		}
	}
	return stats, nil
}
