// Package docsource loads plain-text documents from the filesystem.
package docsource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"docsearch/internal/domain"
)

var ErrNotUTF8 = errors.New("file is not valid UTF-8")

// Failure records a file that could not be loaded.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Path, f.Err) }

// LoadDir reads every *.txt file directly inside dir, in lexical order.
// Files that cannot be read or are not UTF-8 are reported as failures and
// skipped. A missing or unreadable directory is an error.
func LoadDir(dir string) ([]domain.Document, []Failure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read documents dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isText(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	docs, failures := load(paths)
	return docs, failures, nil
}

// LoadPaths expands each glob pattern and reads the *.txt files it names.
// A pattern with no matches is taken as a literal path. Duplicates are read once.
func LoadPaths(patterns []string) ([]domain.Document, []Failure) {
	seen := make(map[string]struct{})
	var paths []string
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !isText(m) {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	return load(paths)
}

func load(paths []string) ([]domain.Document, []Failure) {
	sort.Strings(paths)
	var (
		docs     []domain.Document
		failures []Failure
	)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			failures = append(failures, Failure{Path: p, Err: err})
			continue
		}
		if !utf8.Valid(data) {
			failures = append(failures, Failure{Path: p, Err: ErrNotUTF8})
			continue
		}
		docs = append(docs, domain.Document{Filename: filepath.Base(p), Content: string(data)})
	}
	return docs, failures
}

func isText(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".txt")
}
