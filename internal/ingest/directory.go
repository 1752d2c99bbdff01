package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiscoverFiles walks root and returns the paths with an allowed extension, in walk order.
// Hidden files and directories are skipped when skipHidden is set.
func DiscoverFiles(root string, skipHidden bool) ([]string, []PathResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	var paths []string
	var failures []PathResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			failures = append(failures, PathResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path)) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, failures, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, failures, stats, nil
}

// ExpandPaths resolves command-line arguments into invoice files. Directories are walked
// with DiscoverFiles; files are kept as given so an unsupported one is rejected by ingest
// with its own error. Duplicates are dropped and argument order is kept.
func ExpandPaths(args []string, skipHidden bool) ([]string, []PathResult, DirStats, error) {
	var (
		paths    []string
		failures []PathResult
		total    DirStats
	)
	seen := make(map[string]struct{}, len(args))
	add := func(p string) {
		key := filepath.Clean(p)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		paths = append(paths, p)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, failures, total, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			total.Scanned++
			total.Matched++
			add(arg)
			continue
		}
		found, failed, stats, err := DiscoverFiles(arg, skipHidden)
		failures = append(failures, failed...)
		total.Scanned += stats.Scanned
		total.Matched += stats.Matched
		total.Skipped += stats.Skipped
		total.Failed += stats.Failed
		if err != nil {
			return nil, failures, total, err
		}
		for _, p := range found {
			add(p)
		}
	}
	return paths, failures, total, nil
}
