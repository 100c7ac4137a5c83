package dag

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/specialistvlad/bigcity/internal/model"
	"github.com/stretchr/testify/require"
)

// identityOf gives every test project a stable GUID derived from its name.
func identityOf(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("project:"+name))
}

// rawProjects builds one RawProject per name, in order, referencing the
// projects listed in deps by identity.
func rawProjects(names []string, deps map[string][]string) []model.RawProject {
	out := make([]model.RawProject, len(names))
	for i, name := range names {
		p := model.RawProject{
			Identity:     identityOf(name),
			FilePath:     "/sln/" + name + "/" + name + ".csproj",
			OutputFolder: "/sln/" + name + "/bin",
		}
		for _, dep := range deps[name] {
			p.References = append(p.References, model.Reference{
				Identity: identityOf(dep),
				Include:  "../" + dep + "/" + dep + ".csproj",
			})
		}
		out[i] = p
	}
	return out
}

// layerNames renders layers as sorted project names for comparison.
func layerNames(layers []Layer) [][]string {
	out := make([][]string, len(layers))
	for i, l := range layers {
		for _, p := range l.Projects {
			out[i] = append(out[i], p.Name())
		}
	}
	return out
}

func mustBuild(t *testing.T, projects []model.RawProject) *Graph {
	t.Helper()
	g, _, err := Build(context.Background(), projects)
	require.NoError(t, err)
	return g
}
