package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/bigcity/internal/model"
)

// TaskRef identifies the remote task created for one project.
type TaskRef struct {
	ProjectID int    `yaml:"project_id"`
	Project   string `yaml:"project"`
	Layer     int    `yaml:"layer"`
	TaskID    string `yaml:"task_id"`
}

// LayerPlan is the remote shape of one completed layer.
type LayerPlan struct {
	Index       int       `yaml:"index"`
	ContainerID string    `yaml:"container_id"`
	Tasks       []TaskRef `yaml:"tasks"`
}

// Plan maps projects to the remote tasks created for them. Entries are
// written once and only for layers that completed in full.
type Plan struct {
	mu         sync.RWMutex
	target     Target
	layers     []LayerPlan
	tasks      map[int]TaskRef
	unresolved []model.Resolution
}

// NewPlan returns an empty plan for the given target.
func NewPlan(target Target) *Plan {
	return &Plan{target: target, tasks: make(map[int]TaskRef)}
}

// Target returns the remote project the plan was built under.
func (p *Plan) Target() Target { return p.target }

// Task returns the committed task of a project.
func (p *Plan) Task(projectID int) (TaskRef, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ref, ok := p.tasks[projectID]
	return ref, ok
}

// Layers returns a copy of the committed layers in index order.
func (p *Plan) Layers() []LayerPlan {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]LayerPlan, len(p.layers))
	for i, l := range p.layers {
		l.Tasks = append([]TaskRef(nil), l.Tasks...)
		out[i] = l
	}
	return out
}

// TaskCount returns the number of committed tasks.
func (p *Plan) TaskCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tasks)
}

// Unresolved returns the references that were dropped while building the graph.
func (p *Plan) Unresolved() []model.Resolution {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]model.Resolution(nil), p.unresolved...)
}

func (p *Plan) setUnresolved(res []model.Resolution) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unresolved = append([]model.Resolution(nil), res...)
}

// commit appends a fully provisioned layer. Layers must arrive in index
// order and must not mention an already committed project.
func (p *Plan) commit(s *layerStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.index != len(p.layers) {
		return fmt.Errorf("layer %d committed out of order, expected %d", s.index, len(p.layers))
	}
	for id := range s.tasks {
		if _, exists := p.tasks[id]; exists {
			return fmt.Errorf("project %d already has a task", id)
		}
	}

	refs := make([]TaskRef, 0, len(s.tasks))
	for id, ref := range s.tasks {
		p.tasks[id] = ref
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ProjectID < refs[j].ProjectID })
	p.layers = append(p.layers, LayerPlan{Index: s.index, ContainerID: s.containerID, Tasks: refs})
	return nil
}

// layerStage collects the tasks of the layer being provisioned. Workers of
// the layer write to it concurrently, each under its own project id.
type layerStage struct {
	mu          sync.Mutex
	index       int
	containerID string
	tasks       map[int]TaskRef
}

func newLayerStage(index int, containerID string) *layerStage {
	return &layerStage{index: index, containerID: containerID, tasks: make(map[int]TaskRef)}
}

func (s *layerStage) put(ref TaskRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[ref.ProjectID]; exists {
		return fmt.Errorf("project %d already has a task in layer %d", ref.ProjectID, s.index)
	}
	s.tasks[ref.ProjectID] = ref
	return nil
}
