package teamcity

// Wire types of the REST API. Only the fields this client reads or writes
// are declared.

type projectRef struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ParentProjectID string `json:"parentProjectId,omitempty"`
	Href            string `json:"href,omitempty"`
}

type projectList struct {
	Count   int          `json:"count"`
	Project []projectRef `json:"project"`
}

type locator struct {
	Locator string `json:"locator"`
}

type newProject struct {
	Name          string  `json:"name"`
	ParentProject locator `json:"parentProject"`
}

type newBuildType struct {
	Name string `json:"name"`
}

type buildTypeRef struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

type property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type properties struct {
	Property []property `json:"property"`
}

type buildStep struct {
	ID         string     `json:"id,omitempty"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Properties properties `json:"properties"`
}

type dependency struct {
	ID              string       `json:"id,omitempty"`
	Type            string       `json:"type"`
	Properties      properties   `json:"properties"`
	SourceBuildType buildTypeRef `json:"source-buildType"`
}

type vcsRootRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type vcsRootList struct {
	Count   int          `json:"count"`
	VCSRoot []vcsRootRef `json:"vcs-root"`
}

type vcsRootEntry struct {
	ID      string     `json:"id,omitempty"`
	VCSRoot vcsRootRef `json:"vcs-root"`
}

// props builds a property list from name/value pairs, skipping empty values.
func props(pairs ...string) properties {
	var out properties
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		out.Property = append(out.Property, property{Name: pairs[i], Value: pairs[i+1]})
	}
	return out
}
