package fsutil

import (
	"os"
	"path/filepath"
)

// vcsMarkers are the directory entries that mark a checkout root.
var vcsMarkers = []string{".git", ".hg", ".svn"}

// FindVCSRoot walks up from dir and returns the first directory holding a
// version control marker. ok is false when the file system root is reached
// without finding one.
func FindVCSRoot(dir string) (root string, ok bool) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		for _, marker := range vcsMarkers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// CheckoutRelativeDir returns dir relative to its enclosing checkout root,
// with forward slashes. It returns "" when dir is the root itself or no
// checkout root exists.
func CheckoutRelativeDir(dir string) string {
	root, ok := FindVCSRoot(dir)
	if !ok {
		return ""
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
