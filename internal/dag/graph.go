package dag

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/bigcity/internal/model"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[int]*node),
	}
}

// AddProject adds a project under the given id. If a project with the same id
// already exists, the function does nothing.
func (g *Graph) AddProject(id int, p model.RawProject) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		project:    p,
		id:         id,
		deps:       make(map[int]*node),
		dependents: make(map[int]*node),
	}
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. Self edges are
// accepted; Layers reports them as a cycle.
func (g *Graph) AddEdge(fromID, toID int) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %d", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %d", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Len returns the number of projects in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Record returns the resolved record of a project.
func (g *Graph) Record(id int) (model.ProjectRecord, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return model.ProjectRecord{}, false
	}
	return n.record(), true
}

// Records returns every project record ordered by id.
func (g *Graph) Records() []model.ProjectRecord {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make([]model.ProjectRecord, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.record())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dependencies returns the ids the given project depends on, ascending.
func (g *Graph) Dependencies(id int) ([]int, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %d", id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the ids of the projects depending on the given project, ascending.
func (g *Graph) Dependents(id int) ([]int, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %d", id)
	}
	return sortedKeys(n.dependents), nil
}

func (n *node) record() model.ProjectRecord {
	return model.ProjectRecord{
		ID:            n.id,
		Identity:      n.project.Identity,
		FilePath:      n.project.FilePath,
		OutputFolder:  n.project.OutputFolder,
		DependencyIDs: sortedKeys(n.deps),
	}
}

func sortedKeys(m map[int]*node) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// findCycle looks for a dependency cycle restricted to the given ids and
// returns it as project names, first name repeated at the end.
func (g *Graph) findCycle(ids []int) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	within := make(map[int]bool, len(ids))
	for _, id := range ids {
		within[id] = true
	}

	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and not part of a cycle.
	// onStack: in the recursion stack of the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[int]bool)
	onStack := make(map[int]int)
	var stack []int

	var visit func(n *node) []int
	visit = func(n *node) []int {
		if permanent[n.id] {
			return nil
		}
		if pos, ok := onStack[n.id]; ok {
			return append(append([]int(nil), stack[pos:]...), n.id)
		}

		onStack[n.id] = len(stack)
		stack = append(stack, n.id)

		for _, depID := range sortedKeys(n.deps) {
			if !within[depID] {
				continue
			}
			if cycle := visit(n.deps[depID]); cycle != nil {
				return cycle
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range ids {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		if cycle := visit(n); cycle != nil {
			names := make([]string, len(cycle))
			for i, cid := range cycle {
				names[i] = model.Stem(g.nodes[cid].project.FilePath)
			}
			return names
		}
	}
	return nil
}
