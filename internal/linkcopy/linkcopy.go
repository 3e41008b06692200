// Package linkcopy duplicates directory trees with hard links, the way
// `cp -al` does. New directory entries share data blocks with the source,
// so a copy costs space only for what later changes on either side. Files
// that cannot be linked (e.g. across filesystems) are copied instead.
package linkcopy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent link operations.
const DefaultWorkers = 8

// Stats summarizes a tree copy.
type Stats struct {
	Dirs   int64
	Linked int64
	Copied int64
	Bytes  int64 // size of files that were deep-copied
}

func (s *Stats) String() string {
	msg := fmt.Sprintf("%s dirs, %s files linked", humanize.Comma(s.Dirs), humanize.Comma(s.Linked))
	if s.Copied > 0 {
		msg += fmt.Sprintf(", %s files copied (%s)", humanize.Comma(s.Copied), humanize.Bytes(uint64(s.Bytes)))
	}
	return msg
}

// Options tunes Tree.
type Options struct {
	Workers int
	// NoLink forces deep copies; used when the caller knows links cannot work.
	NoLink bool
}

type dirInfo struct {
	path    string
	mode    fs.FileMode
	modTime time.Time
}

// Tree recreates src at dst. dst must not exist.
func Tree(ctx context.Context, src, dst string, opts Options) (*Stats, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return nil, fmt.Errorf("destination %s: %w", dst, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("create destination parent: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	stats := &Stats{}
	var dirs []dirInfo

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := gctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			// Owner-writable until all children exist; final mode applied afterwards.
			if err := os.Mkdir(target, 0700); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
			dirs = append(dirs, dirInfo{path: target, mode: fi.Mode().Perm(), modTime: fi.ModTime()})
			stats.Dirs++
			return nil

		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)

		default:
			g.Go(func() error {
				return linkFile(path, target, opts.NoLink, stats)
			})
			return nil
		}
	})

	// A failed worker cancels gctx, so the walk may only report the
	// cancellation; the worker's error is the cause.
	if werr := g.Wait(); werr != nil && (walkErr == nil || ctx.Err() == nil && errors.Is(walkErr, context.Canceled)) {
		walkErr = werr
	}
	if walkErr != nil {
		return stats, walkErr
	}

	// Deepest first so restoring a parent's mtime is not undone by a child.
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		if err := os.Chmod(d.path, d.mode); err != nil {
			return stats, err
		}
		if err := os.Chtimes(d.path, d.modTime, d.modTime); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func linkFile(src, dst string, noLink bool, stats *Stats) error {
	if !noLink {
		if err := os.Link(src, dst); err == nil {
			atomic.AddInt64(&stats.Linked, 1)
			return nil
		}
	}

	n, err := copyFile(src, dst)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	atomic.AddInt64(&stats.Copied, 1)
	atomic.AddInt64(&stats.Bytes, n)
	return nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("cannot copy non-regular file")
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	return n, os.Chtimes(dst, info.ModTime(), info.ModTime())
}
