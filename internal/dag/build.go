package dag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/specialistvlad/bigcity/internal/model"
)

// Build constructs the dependency graph from the discovered projects. The id
// of a project is its index in projects.
//
// References are matched by external identity only. Every reference yields
// one model.Resolution; unresolved ones add no edge. Two projects with the
// same identity make the whole graph ambiguous and fail with a
// DuplicateIdentityError.
func Build(ctx context.Context, projects []model.RawProject) (*Graph, []model.Resolution, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "project_count", len(projects))
	graph := New()

	// First pass: create all nodes and index them by identity.
	byIdentity := make(map[uuid.UUID]int, len(projects))
	for id, p := range projects {
		if p.Identity != uuid.Nil {
			if first, exists := byIdentity[p.Identity]; exists {
				return nil, nil, &DuplicateIdentityError{
					Identity: p.Identity,
					First:    projects[first].FilePath,
					Second:   p.FilePath,
				}
			}
			byIdentity[p.Identity] = id
		}
		graph.AddProject(id, p)
	}
	logger.Debug("Build: Node creation complete.", "node_count", graph.Len())

	// Second pass: resolve references into edges.
	var resolutions []model.Resolution
	for id, p := range projects {
		for _, ref := range p.References {
			target, ok := byIdentity[ref.Identity]
			if !ok || ref.Identity == uuid.Nil {
				logger.Debug("Build: Reference did not resolve.", "project", model.Stem(p.FilePath), "include", ref.Include, "identity", ref.Identity)
				resolutions = append(resolutions, model.Resolution{Kind: model.Unresolved, From: id, To: -1, Reference: ref})
				continue
			}
			if err := graph.AddEdge(target, id); err != nil {
				return nil, nil, fmt.Errorf("linking %q: %w", p.FilePath, err)
			}
			resolutions = append(resolutions, model.Resolution{Kind: model.Resolved, From: id, To: target, Reference: ref})
		}
	}
	logger.Debug("Build: Node linking complete.", "resolutions", len(resolutions))

	return graph, resolutions, nil
}

// Unresolved filters the resolutions that did not match a project.
func Unresolved(resolutions []model.Resolution) []model.Resolution {
	var out []model.Resolution
	for _, r := range resolutions {
		if r.Kind == model.Unresolved {
			out = append(out, r)
		}
	}
	return out
}

// RequireResolved returns an UnresolvedReferenceError if any resolution is unresolved.
func RequireResolved(g *Graph, resolutions []model.Resolution) error {
	missing := Unresolved(resolutions)
	if len(missing) == 0 {
		return nil
	}
	names := make(map[int]string, len(missing))
	for _, r := range missing {
		if rec, ok := g.Record(r.From); ok {
			names[r.From] = rec.Name()
		}
	}
	return &UnresolvedReferenceError{Unresolved: missing, Names: names}
}
