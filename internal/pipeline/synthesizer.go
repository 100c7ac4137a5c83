package pipeline

import (
	"context"
	"fmt"
	"path"

	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/specialistvlad/bigcity/internal/dag"
	"github.com/specialistvlad/bigcity/internal/model"
	"github.com/specialistvlad/bigcity/internal/progress"
	"golang.org/x/sync/errgroup"
)

// ProjectSource yields the discovered projects of one solution. It is called
// once per run and its result is treated as a snapshot.
type ProjectSource interface {
	Projects(ctx context.Context) ([]model.RawProject, error)
}

// Settings are the build constants shared by every task of a run.
type Settings struct {
	// SolutionRoot is the directory artifact paths are made relative to.
	SolutionRoot string
	// SolutionFile is the solution file name used as the build file.
	SolutionFile   string
	WorkingDir     string
	RunnerType     string
	Configuration  string
	Platform       string
	MSBuildVersion string
	ToolsVersion   string
}

// Config holds the collaborators and knobs of a Synthesizer.
type Config struct {
	Settings Settings
	// Workers bounds how many projects of one layer are provisioned at
	// once. Values below 1 mean one at a time.
	Workers int
	// Sink receives progress events. Nil discards them.
	Sink progress.Sink
	// StrictReferences turns unresolved project references into an error
	// instead of a warning.
	StrictReferences bool
}

// Synthesizer drives a Provisioner to create the layered pipeline.
type Synthesizer struct {
	provisioner Provisioner
	cfg         Config
}

// New creates a Synthesizer. The settings must name a solution root.
func New(p Provisioner, cfg Config) (*Synthesizer, error) {
	if cfg.Settings.SolutionRoot == "" {
		return nil, ErrNoSolutionRoot
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Sink == nil {
		cfg.Sink = progress.Nop
	}
	return &Synthesizer{provisioner: p, cfg: cfg}, nil
}

// Synthesize reads the projects from source, layers them and provisions the
// layers under target. On failure the returned plan holds the layers that
// completed before the error; remote entities are never rolled back.
func (s *Synthesizer) Synthesize(ctx context.Context, target Target, source ProjectSource) (*Plan, error) {
	s.emit(ctx, progress.Event{Phase: progress.PhaseDiscover, Layer: progress.NoLayer, Message: "reading projects"})
	projects, err := source.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read projects: %w", err)
	}

	s.emit(ctx, progress.Event{Phase: progress.PhaseResolve, Layer: progress.NoLayer,
		Message: fmt.Sprintf("resolving references of %d projects", len(projects))})
	graph, resolutions, err := dag.Build(ctx, projects)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}

	unresolved := dag.Unresolved(resolutions)
	if s.cfg.StrictReferences {
		if err := dag.RequireResolved(graph, resolutions); err != nil {
			return nil, err
		}
	}
	for _, r := range unresolved {
		rec, _ := graph.Record(r.From)
		s.emit(ctx, progress.Event{Phase: progress.PhaseWarning, Layer: progress.NoLayer, Project: rec.Name(),
			Message: fmt.Sprintf("reference to %s does not match any project in the solution; ignored", r.Reference.Include)})
	}

	layers, err := dag.Layers(ctx, graph)
	if err != nil {
		return nil, err
	}

	plan, err := s.SynthesizeLayers(ctx, target, layers)
	if plan != nil {
		plan.setUnresolved(unresolved)
	}
	return plan, err
}

// SynthesizeLayers provisions already computed layers under target. Layers
// are processed strictly one after another; projects inside a layer run
// concurrently up to the configured worker count.
func (s *Synthesizer) SynthesizeLayers(ctx context.Context, target Target, layers []dag.Layer) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	plan := NewPlan(target)

	artifacts, err := s.artifactPaths(layers)
	if err != nil {
		return plan, err
	}

	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return plan, fmt.Errorf("%w before layer %d: %w", ErrAborted, layer.Index, err)
		}
		s.emit(ctx, progress.Event{Phase: progress.PhaseLayer, Layer: layer.Index,
			Message: fmt.Sprintf("analyzing layer %d", layer.Index)})

		containerID, err := s.provisioner.CreateContainer(ctx, target.ID, fmt.Sprintf("Layer %d", layer.Index))
		if err != nil {
			return plan, &ProvisioningError{Op: OpCreateContainer, Layer: layer.Index, Err: err}
		}
		s.emit(ctx, progress.Event{Phase: progress.PhaseContainer, Layer: layer.Index,
			Message: fmt.Sprintf("created container %s", containerID)})

		stage := newLayerStage(layer.Index, containerID)
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(s.cfg.Workers)
		for _, p := range layer.Projects {
			group.Go(func() error {
				return s.provisionProject(groupCtx, plan, stage, artifacts, target, layer.Index, p)
			})
		}
		if err := group.Wait(); err != nil {
			logger.Debug("Layer failed, not committing.", "layer", layer.Index, "error", err)
			return plan, err
		}
		if err := plan.commit(stage); err != nil {
			return plan, &ProvisioningError{Op: OpRecordTask, Layer: layer.Index, Err: err}
		}
		logger.Debug("Layer committed.", "layer", layer.Index, "tasks", len(layer.Projects))
	}

	s.emit(ctx, progress.Event{Phase: progress.PhaseDone, Layer: progress.NoLayer,
		Message: fmt.Sprintf("created %d layers with %d build configurations", len(layers), plan.TaskCount())})
	return plan, nil
}

// provisionProject creates and wires the build task of one project.
func (s *Synthesizer) provisionProject(
	ctx context.Context,
	plan *Plan,
	stage *layerStage,
	artifacts map[int]string,
	target Target,
	layerIndex int,
	p model.ProjectRecord,
) error {
	name := p.Name()
	fail := func(op string, err error) error {
		return &ProvisioningError{Op: op, Layer: layerIndex, Project: name, Err: err}
	}
	s.emit(ctx, progress.Event{Phase: progress.PhaseTask, Layer: layerIndex, Project: name,
		Message: fmt.Sprintf("creating build config for %s", name)})

	taskID, err := s.provisioner.CreateTask(ctx, stage.containerID, name)
	if err != nil {
		return fail(OpCreateTask, err)
	}
	if err := stage.put(TaskRef{ProjectID: p.ID, Project: name, Layer: layerIndex, TaskID: taskID}); err != nil {
		return fail(OpRecordTask, err)
	}

	rel := artifacts[p.ID]
	meta := TaskMetadata{
		Description: fmt.Sprintf("This configuration builds the project %s which resides in layer %d of the parent project %s",
			path.Base(normalizePath(p.FilePath)), layerIndex, target.Name),
		ArtifactRules: fmt.Sprintf("%s => %s", ArtifactPattern(rel), rel),
	}
	if err := s.provisioner.SetTaskMetadata(ctx, taskID, meta); err != nil {
		return fail(OpSetMetadata, err)
	}

	for _, depID := range p.DependencyIDs {
		producer, ok := plan.Task(depID)
		if !ok {
			return fail(OpAddSnapshotDependency, fmt.Errorf("dependency %d has no task in an earlier layer", depID))
		}
		depRel := artifacts[depID]

		if err := s.provisioner.AddSnapshotDependency(ctx, taskID, newSnapshotDependency(producer.TaskID)); err != nil {
			return fail(OpAddSnapshotDependency, err)
		}
		artifact := ArtifactDependency{
			SourceTaskID:  producer.TaskID,
			SourcePattern: ArtifactPattern(depRel),
			Destination:   depRel,
			Revision:      RevisionSameChainOrLastFinished,
		}
		if err := s.provisioner.AddArtifactDependency(ctx, taskID, artifact); err != nil {
			return fail(OpAddArtifactDependency, err)
		}
	}

	settings := s.cfg.Settings
	step := BuildStep{
		Name:           "Build " + name,
		RunnerType:     settings.RunnerType,
		BuildFile:      settings.SolutionFile,
		Targets:        TargetName(name),
		Configuration:  settings.Configuration,
		Platform:       settings.Platform,
		MSBuildVersion: settings.MSBuildVersion,
		ToolsVersion:   settings.ToolsVersion,
		WorkingDir:     settings.WorkingDir,
	}
	if err := s.provisioner.AddBuildStep(ctx, taskID, step); err != nil {
		return fail(OpAddBuildStep, err)
	}
	return nil
}

// artifactPaths resolves the output folder of every project against the
// solution root, keyed by project id. It runs before the first remote call
// so a bad path aborts the run with nothing created.
func (s *Synthesizer) artifactPaths(layers []dag.Layer) (map[int]string, error) {
	out := make(map[int]string)
	for _, l := range layers {
		for _, p := range l.Projects {
			rel, err := RelativePath(s.cfg.Settings.SolutionRoot, p.OutputFolder)
			if err != nil {
				return nil, &ProvisioningError{Op: OpArtifactPath, Layer: l.Index, Project: p.Name(), Err: err}
			}
			out[p.ID] = rel
		}
	}
	return out, nil
}

func (s *Synthesizer) emit(ctx context.Context, ev progress.Event) {
	s.cfg.Sink.Emit(ctx, ev)
}
