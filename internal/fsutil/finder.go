// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension searches the given root path for all files ending
// with the specified extension, ignoring case. It descends at most maxDepth
// directories below root; a negative maxDepth means no limit. Hidden
// directories are skipped. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string, maxDepth int) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}
	extension = strings.ToLower(extension)
	root := filepath.Clean(rootPath)

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || (maxDepth >= 0 && depth(root, path) > maxDepth) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// ErrNoSolution is returned when a directory holds no solution file.
var ErrNoSolution = errors.New("no solution file found")

// FindSolution resolves path to a single solution file. A file path is
// returned as is once it exists; a directory must contain exactly one
// .sln file at its top level.
func FindSolution(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("solution path: %w", err)
	}
	if !info.IsDir() {
		return abs, nil
	}

	found, err := FindFilesByExtension(abs, ".sln", 0)
	if err != nil {
		return "", fmt.Errorf("failed to search %s: %w", abs, err)
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoSolution, abs)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%s contains %d solution files, name one explicitly", abs, len(found))
	}
}
