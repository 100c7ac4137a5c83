package pipeline

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// volumeRegex matches a drive-letter prefix such as "C:".
var volumeRegex = regexp.MustCompile(`^[A-Za-z]:`)

// normalizePath converts any separator style to forward slashes, upper-cases
// a drive letter and cleans the result.
func normalizePath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, `\`, "/"))
	if vol := volumeRegex.FindString(p); vol != "" {
		p = strings.ToUpper(vol) + p[len(vol):]
	}
	return p
}

// isAbsolute reports whether a normalized path is absolute in either the
// POSIX or the Windows sense.
func isAbsolute(p string) bool {
	return strings.HasPrefix(p, "/") || volumeRegex.MatchString(p)
}

func volumeOf(p string) string {
	return strings.ToUpper(volumeRegex.FindString(p))
}

// RelativePath returns target expressed relative to base, with forward
// slashes. A relative target is taken as relative to base. The result may
// climb out of base with "..". Paths on different drives have no relative form.
func RelativePath(base, target string) (string, error) {
	b := normalizePath(base)
	t := normalizePath(target)
	if !isAbsolute(t) {
		t = path.Join(b, t)
	}
	if volumeOf(b) != volumeOf(t) {
		return "", fmt.Errorf("%q and %q are on different volumes", base, target)
	}

	rel, err := filepath.Rel(filepath.FromSlash(b), filepath.FromSlash(t))
	if err != nil {
		return "", fmt.Errorf("cannot make %q relative to %q: %w", target, base, err)
	}
	return filepath.ToSlash(rel), nil
}

// ArtifactPattern returns the publication pattern covering every file below
// a relative folder.
func ArtifactPattern(rel string) string {
	if rel == "." || rel == "" {
		return "**"
	}
	return strings.TrimSuffix(rel, "/") + "/**"
}

// TargetName escapes a project name the way MSBuild expects it in the
// solution-level "targets" parameter.
func TargetName(projectName string) string {
	return strings.ReplaceAll(projectName, ".", "_")
}
