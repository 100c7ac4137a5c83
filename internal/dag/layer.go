package dag

import (
	"context"

	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/specialistvlad/bigcity/internal/model"
)

// Layers partitions the graph into dependency-ordered layers.
//
// Each round collects every unplaced project whose dependencies were all
// placed by earlier rounds; those projects form the next layer. The result is
// the longest-dependency-chain layering: a project's layer index is one more
// than the highest index among its dependencies, 0 without dependencies.
//
// An empty graph yields an empty sequence. When a round places nothing while
// projects remain, a CycleError is returned and no layers at all.
func Layers(ctx context.Context, g *Graph) ([]Layer, error) {
	logger := ctxlog.FromContext(ctx)

	remaining := g.Records()
	placed := make(map[int]bool, len(remaining))
	var layers []Layer

	for len(remaining) > 0 {
		index := len(layers)
		var members, rest []model.ProjectRecord
		for _, p := range remaining {
			if satisfied(p, placed) {
				members = append(members, p)
			} else {
				rest = append(rest, p)
			}
		}

		if len(members) == 0 {
			ids := make([]int, len(rest))
			for i, p := range rest {
				ids[i] = p.ID
			}
			err := &CycleError{Layer: index, Remaining: rest, Cycle: g.findCycle(ids)}
			logger.Debug("Layers: No project could be placed.", "layer", index, "unplaced", len(rest))
			return nil, err
		}

		// Members are only marked after the round so that a project never
		// lands in the same layer as one of its dependencies.
		for _, p := range members {
			placed[p.ID] = true
		}
		layers = append(layers, Layer{Index: index, Projects: members})
		logger.Debug("Layers: Layer formed.", "layer", index, "size", len(members))
		remaining = rest
	}

	return layers, nil
}

func satisfied(p model.ProjectRecord, placed map[int]bool) bool {
	for _, dep := range p.DependencyIDs {
		if !placed[dep] {
			return false
		}
	}
	return true
}
