package solution

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// FolderTypeGUID is the project type of a solution folder, which groups
// projects in the IDE and has no project file.
const FolderTypeGUID = "2150E333-8FDC-42A3-9474-1A3956D46DE8"

// projectLineRegex matches lines like
// Project("{FAE04EC0-...}") = "Core", "src\Core\Core.csproj", "{6F1B...}"
var projectLineRegex = regexp.MustCompile(
	`^Project\("\{?([^"}]*)\}?"\)\s*=\s*"([^"]*)"\s*,\s*"([^"]*)"\s*,\s*"([^"]*)"\s*$`)

// Entry is one Project line of a solution file.
type Entry struct {
	TypeGUID string
	Name     string
	// RelativePath is the path as written in the solution, usually with
	// backslashes.
	RelativePath string
	// GUID is the project GUID from the solution line, uuid.Nil when absent
	// or malformed.
	GUID uuid.UUID
}

// IsFolder reports whether the entry is a solution folder.
func (e Entry) IsFolder() bool {
	return strings.EqualFold(e.TypeGUID, FolderTypeGUID)
}

// ParseSolution returns the project entries of a solution in file order.
func ParseSolution(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if !strings.HasPrefix(line, "Project(") {
			continue
		}
		m := projectLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		guid, err := uuid.Parse(m[4])
		if err != nil {
			guid = uuid.Nil
		}
		entries = append(entries, Entry{TypeGUID: m[1], Name: m[2], RelativePath: m[3], GUID: guid})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read solution: %w", err)
	}
	return entries, nil
}
