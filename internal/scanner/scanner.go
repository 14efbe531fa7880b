// Package scanner discovers files under a collection's root directory that
// match its glob patterns and reads them for the indexer.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// File is one discovered file: its path relative to the collection root,
// its content, and its modification time.
type File struct {
	Path        string
	Content     []byte
	ModTime     int64 // unix nanoseconds; the indexer's change check compares content hashes, not this
	ContentType string
}

// Result pairs a File with any error encountered reading it. Io errors are
// per-file and do not stop the scan; the caller decides whether to log and
// skip them.
type Result struct {
	File *File
	Err  error
	Path string // always set, even on error, for logging
}

// Options configures a Scan.
type Options struct {
	RootDir  string
	Patterns []string // glob patterns matched against the path relative to RootDir; empty matches everything
	// ExcludePatterns are checked first; a match skips the file regardless
	// of Patterns.
	ExcludePatterns []string
	Workers         int
}

// Scan walks RootDir and streams every regular file whose relative path
// matches one of Patterns (or every file, if Patterns is empty) on the
// returned channel. The channel closes when the walk and all reads finish
// or ctx is canceled.
func Scan(ctx context.Context, opts Options) (<-chan Result, error) {
	root := opts.RootDir
	if root == "" {
		return nil, fmt.Errorf("scanner: root directory is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("scanner: resolving root: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("scanner: stat root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("scanner: root %q is not a directory", absRoot)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths := make(chan string, workers*4)
	results := make(chan Result, workers*4)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for relPath := range paths {
				select {
				case <-ctx.Done():
					return
				default:
				}
				f, err := readFile(absRoot, relPath)
				select {
				case results <- Result{File: f, Err: err, Path: relPath}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(paths)
		_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				return nil // unreadable entries are skipped, not fatal to the walk
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				return nil
			}
			if len(opts.ExcludePatterns) > 0 && matchesAny(rel, opts.ExcludePatterns) {
				return nil
			}
			if !matchesAny(rel, opts.Patterns) {
				return nil
			}
			select {
			case paths <- rel:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results, nil
}

func matchesAny(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(relPath)); ok {
			return true
		}
	}
	return false
}

func readFile(absRoot, relPath string) (*File, error) {
	fullPath := filepath.Join(absRoot, relPath)
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	contentType := http.DetectContentType(content)
	return &File{
		Path: filepath.ToSlash(relPath), Content: content,
		ModTime: info.ModTime().UnixNano(), ContentType: contentType,
	}, nil
}
