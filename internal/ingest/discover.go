// Package ingest turns a folder of FITS dark frames into a stats table.
package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions lists the FITS file extensions recognized by default.
var DefaultExtensions = []string{".fits", ".fit", ".fts"}

// NormalizeExtensions lowercases exts and ensures a leading dot.
// An empty list yields DefaultExtensions.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := map[string]struct{}{}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	return out
}

// Matches reports whether path carries one of exts (case-insensitive).
func Matches(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Discover walks root and returns the files with a recognized extension,
// sorted lexicographically for a deterministic processing order.
func Discover(root string, exts []string) ([]string, error) {
	exts = NormalizeExtensions(exts)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if Matches(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
