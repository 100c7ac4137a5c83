package solution

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// msbuildProject is the subset of an MSBuild project file the reader needs.
// Element names are matched without their namespace, so both the 2003
// schema and SDK-style files decode.
type msbuildProject struct {
	PropertyGroups []propertyGroup `xml:"PropertyGroup"`
	ItemGroups     []itemGroup     `xml:"ItemGroup"`
}

type propertyGroup struct {
	Condition   string `xml:"Condition,attr"`
	ProjectGUID string `xml:"ProjectGuid"`
	OutputPath  string `xml:"OutputPath"`
}

type itemGroup struct {
	ProjectReferences []projectReferenceItem `xml:"ProjectReference"`
}

type projectReferenceItem struct {
	Include string `xml:"Include,attr"`
	Project string `xml:"Project"`
	Name    string `xml:"Name"`
}

// projectFile is a parsed project file.
type projectFile struct {
	guid uuid.UUID
	// outputs maps a normalized "configuration|platform" key to OutputPath;
	// the empty key holds an unconditional OutputPath.
	outputs    map[string]string
	references []projectReferenceItem
}

var (
	configPlatformCondition = regexp.MustCompile(`(?i)'\$\(Configuration\)\|\$\(Platform\)'\s*==\s*'([^']*)'`)
	configCondition         = regexp.MustCompile(`(?i)'\$\(Configuration\)'\s*==\s*'([^']*)'`)
)

func parseProjectFile(r io.Reader) (*projectFile, error) {
	var doc msbuildProject
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid project xml: %w", err)
	}

	pf := &projectFile{outputs: make(map[string]string)}
	for _, pg := range doc.PropertyGroups {
		if g := strings.TrimSpace(pg.ProjectGUID); g != "" && pf.guid == uuid.Nil {
			if parsed, err := uuid.Parse(g); err == nil {
				pf.guid = parsed
			}
		}
		if out := strings.TrimSpace(pg.OutputPath); out != "" {
			pf.outputs[conditionKey(pg.Condition)] = out
		}
	}
	for _, ig := range doc.ItemGroups {
		pf.references = append(pf.references, ig.ProjectReferences...)
	}
	return pf, nil
}

// conditionKey reduces a property group condition to the key used in
// projectFile.outputs. Conditions the reader does not understand map to a
// key no lookup produces.
func conditionKey(condition string) string {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return ""
	}
	if m := configPlatformCondition.FindStringSubmatch(condition); m != nil {
		return normalizeKey(m[1])
	}
	if m := configCondition.FindStringSubmatch(condition); m != nil {
		return normalizeKey(m[1]) + "|*"
	}
	return "?" + condition
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

// outputPath picks the OutputPath for a configuration and platform, falling
// back to a configuration-only group, then to an unconditional OutputPath,
// then to the MSBuild default bin\<Configuration>\. Property references to
// Configuration and Platform are expanded.
func (pf *projectFile) outputPath(configuration, platform string) string {
	key := normalizeKey(configuration + "|" + platform)
	candidates := []string{key, normalizeKey(configuration) + "|*", ""}
	out := `bin\` + configuration + `\`
	for _, k := range candidates {
		if v, ok := pf.outputs[k]; ok {
			out = v
			break
		}
	}
	out = strings.ReplaceAll(out, "$(Configuration)", configuration)
	out = strings.ReplaceAll(out, "$(Platform)", strings.ReplaceAll(platform, " ", ""))
	return out
}
