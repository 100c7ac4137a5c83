package dag

import (
	"sync"

	"github.com/specialistvlad/bigcity/internal/model"
)

// Graph is the resolved project dependency graph. It is populated once by
// Build and only read afterwards. All operations are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all projects in the graph, keyed by their dense id.
	nodes map[int]*node
}

// node is a single vertex in the graph. It is un-exported so that callers work
// with ids and model.ProjectRecord values only.
type node struct {
	project model.RawProject
	id      int
	// deps holds the nodes this node depends on (predecessors).
	deps map[int]*node
	// dependents holds the nodes that depend on this node (successors).
	dependents map[int]*node
}

// Layer is one set of projects that can be built in parallel once every
// earlier layer is done. Projects are ordered by id.
type Layer struct {
	Index    int
	Projects []model.ProjectRecord
}

// IDs returns the ids of the layer members in ascending order.
func (l Layer) IDs() []int {
	ids := make([]int, len(l.Projects))
	for i, p := range l.Projects {
		ids[i] = p.ID
	}
	return ids
}
