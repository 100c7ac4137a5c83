package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/specialistvlad/bigcity/internal/dag"
	"github.com/specialistvlad/bigcity/internal/model"
	"github.com/specialistvlad/bigcity/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call is one recorded Provisioner invocation.
type call struct {
	Op     string
	Target string
	Arg    any
}

// fakeProvisioner records calls and hands out sequential ids. failOn makes
// the first call matching op and name fail.
type fakeProvisioner struct {
	mu         sync.Mutex
	calls      []call
	seq        int
	containers map[string]string // container id -> name
	taskLayer  map[string]string // task id -> container id
	taskName   map[string]string // task id -> name
	failOp     string
	failName   string
	afterTask  func(name string)
}

func newFakeProvisioner() *fakeProvisioner {
	return &fakeProvisioner{
		containers: make(map[string]string),
		taskLayer:  make(map[string]string),
		taskName:   make(map[string]string),
	}
}

func (f *fakeProvisioner) record(op, target string, arg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: op, Target: target, Arg: arg})
	if f.failOp == op && (f.failName == "" || f.failName == target || f.failName == fmt.Sprint(arg)) {
		return errors.New("remote said no")
	}
	return nil
}

func (f *fakeProvisioner) nextID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *fakeProvisioner) CreateContainer(_ context.Context, parentID, name string) (string, error) {
	if err := f.record(OpCreateContainer, parentID, name); err != nil {
		return "", err
	}
	id := f.nextID("C")
	f.mu.Lock()
	f.containers[id] = name
	f.mu.Unlock()
	return id, nil
}

func (f *fakeProvisioner) CreateTask(_ context.Context, containerID, name string) (string, error) {
	if err := f.record(OpCreateTask, containerID, name); err != nil {
		return "", err
	}
	id := f.nextID("T")
	f.mu.Lock()
	f.taskLayer[id] = containerID
	f.taskName[id] = name
	hook := f.afterTask
	f.mu.Unlock()
	if hook != nil {
		hook(name)
	}
	return id, nil
}

func (f *fakeProvisioner) SetTaskMetadata(_ context.Context, taskID string, meta TaskMetadata) error {
	return f.record(OpSetMetadata, taskID, meta)
}

func (f *fakeProvisioner) AddBuildStep(_ context.Context, taskID string, step BuildStep) error {
	return f.record(OpAddBuildStep, taskID, step)
}

func (f *fakeProvisioner) AddSnapshotDependency(_ context.Context, taskID string, dep SnapshotDependency) error {
	return f.record(OpAddSnapshotDependency, taskID, dep)
}

func (f *fakeProvisioner) AddArtifactDependency(_ context.Context, taskID string, dep ArtifactDependency) error {
	return f.record(OpAddArtifactDependency, taskID, dep)
}

func (f *fakeProvisioner) callsOf(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeProvisioner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// layerOfTask returns the layer number encoded in the task's container name.
func (f *fakeProvisioner) layerOfTask(t *testing.T, taskID string) int {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var idx int
	_, err := fmt.Sscanf(f.containers[f.taskLayer[taskID]], "Layer %d", &idx)
	require.NoError(t, err, "task %s", taskID)
	return idx
}

// staticSource is a ProjectSource over a fixed slice.
type staticSource []model.RawProject

func (s staticSource) Projects(context.Context) ([]model.RawProject, error) { return s, nil }

func identity(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("pipeline/"+name))
}

// solution builds projects under C:/sln with outputs in build/<name>/out.
func solution(names []string, deps map[string][]string) staticSource {
	out := make(staticSource, 0, len(names))
	for _, n := range names {
		p := model.RawProject{
			Identity:     identity(n),
			FilePath:     fmt.Sprintf("C:/sln/src/%s/%s.csproj", n, n),
			OutputFolder: fmt.Sprintf("C:/sln/build/%s/out", n),
		}
		for _, d := range deps[n] {
			p.References = append(p.References, model.Reference{Identity: identity(d), Include: "../" + d + "/" + d + ".csproj"})
		}
		out = append(out, p)
	}
	return out
}

func testSettings() Settings {
	return Settings{
		SolutionRoot:   "C:/sln",
		SolutionFile:   "Big.sln",
		WorkingDir:     "src/app",
		RunnerType:     "MSBuild",
		Configuration:  "Release",
		Platform:       "Any CPU",
		MSBuildVersion: "16.0",
		ToolsVersion:   "15.0",
	}
}

var testTarget = Target{ID: "Big", Name: "Big"}

func mustNew(t *testing.T, p Provisioner, cfg Config) *Synthesizer {
	t.Helper()
	s, err := New(p, cfg)
	require.NoError(t, err)
	return s
}

func TestSynthesize_FanInChain(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fake := newFakeProvisioner()
	rec := &progress.Recorder{}
	s := mustNew(t, fake, Config{Settings: testSettings(), Workers: 3, Sink: rec})
	src := solution([]string{"A", "B", "C", "D"}, map[string][]string{"C": {"A", "B"}, "D": {"C"}})

	// --- Act ---
	plan, err := s.Synthesize(context.Background(), testTarget, src)

	// --- Assert ---
	require.NoError(t, err)
	layers := plan.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, []string{"A", "B"}, taskNames(layers[0]))
	assert.Equal(t, []string{"C"}, taskNames(layers[1]))
	assert.Equal(t, []string{"D"}, taskNames(layers[2]))
	assert.Equal(t, 4, plan.TaskCount())

	containers := fake.callsOf(OpCreateContainer)
	require.Len(t, containers, 3)
	for i, c := range containers {
		assert.Equal(t, "Big", c.Target)
		assert.Equal(t, fmt.Sprintf("Layer %d", i), c.Arg)
	}
	assert.Len(t, fake.callsOf(OpCreateTask), 4)
	assert.Len(t, fake.callsOf(OpSetMetadata), 4)
	assert.Len(t, fake.callsOf(OpAddBuildStep), 4)
	// |D| = 2 for C and 1 for D.
	assert.Len(t, fake.callsOf(OpAddSnapshotDependency), 3)
	assert.Len(t, fake.callsOf(OpAddArtifactDependency), 3)

	for _, c := range fake.callsOf(OpAddSnapshotDependency) {
		dep := c.Arg.(SnapshotDependency)
		assert.Less(t, fake.layerOfTask(t, dep.SourceTaskID), fake.layerOfTask(t, c.Target),
			"producer must sit in an earlier layer")
		assert.False(t, dep.RunIfDependencyFailed)
		assert.False(t, dep.RunOnSameAgent)
		assert.True(t, dep.TakeStartedBuild)
		assert.True(t, dep.TakeSuccessfulOnly)
	}
	for _, c := range fake.callsOf(OpAddArtifactDependency) {
		dep := c.Arg.(ArtifactDependency)
		assert.Less(t, fake.layerOfTask(t, dep.SourceTaskID), fake.layerOfTask(t, c.Target))
		assert.Equal(t, RevisionSameChainOrLastFinished, dep.Revision)
	}

	assert.Empty(t, plan.Unresolved())
	events := rec.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, progress.PhaseDiscover, events[0].Phase)
	assert.Equal(t, progress.PhaseDone, events[len(events)-1].Phase)
}

func TestSynthesize_ArtifactPathsRelativeToSolutionRoot(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fake := newFakeProvisioner()
	s := mustNew(t, fake, Config{Settings: testSettings()})
	src := solution([]string{"A", "C"}, map[string][]string{"C": {"A"}})

	// --- Act ---
	plan, err := s.Synthesize(context.Background(), testTarget, src)

	// --- Assert ---
	require.NoError(t, err)
	refA, ok := plan.Task(0)
	require.True(t, ok)
	refC, ok := plan.Task(1)
	require.True(t, ok)

	artifacts := fake.callsOf(OpAddArtifactDependency)
	require.Len(t, artifacts, 1)
	assert.Equal(t, refC.TaskID, artifacts[0].Target)
	assert.Equal(t, ArtifactDependency{
		SourceTaskID:  refA.TaskID,
		SourcePattern: "build/A/out/**",
		Destination:   "build/A/out",
		Revision:      RevisionSameChainOrLastFinished,
	}, artifacts[0].Arg)
	assert.Equal(t, "build/A/out/** => build/A/out", artifacts[0].Arg.(ArtifactDependency).PathRules())

	var metaA TaskMetadata
	for _, c := range fake.callsOf(OpSetMetadata) {
		if c.Target == refA.TaskID {
			metaA = c.Arg.(TaskMetadata)
		}
	}
	assert.Equal(t, "build/A/out/** => build/A/out", metaA.ArtifactRules)
	assert.Equal(t, "This configuration builds the project A.csproj which resides in layer 0 of the parent project Big", metaA.Description)
}

func TestSynthesize_BuildStep(t *testing.T) {
	t.Parallel()

	fake := newFakeProvisioner()
	s := mustNew(t, fake, Config{Settings: testSettings()})
	src := staticSource{{
		Identity:     identity("Company.Core"),
		FilePath:     `C:\sln\src\Company.Core\Company.Core.csproj`,
		OutputFolder: `C:\sln\src\Company.Core\bin\Release\`,
	}}

	_, err := s.Synthesize(context.Background(), testTarget, src)
	require.NoError(t, err)

	steps := fake.callsOf(OpAddBuildStep)
	require.Len(t, steps, 1)
	assert.Equal(t, BuildStep{
		Name:           "Build Company.Core",
		RunnerType:     "MSBuild",
		BuildFile:      "Big.sln",
		Targets:        "Company_Core",
		Configuration:  "Release",
		Platform:       "Any CPU",
		MSBuildVersion: "16.0",
		ToolsVersion:   "15.0",
		WorkingDir:     "src/app",
	}, steps[0].Arg)

	meta := fake.callsOf(OpSetMetadata)
	require.Len(t, meta, 1)
	assert.Equal(t, "src/Company.Core/bin/Release/** => src/Company.Core/bin/Release", meta[0].Arg.(TaskMetadata).ArtifactRules)
}

func TestSynthesize_EmptySolutionMakesNoCalls(t *testing.T) {
	t.Parallel()

	fake := newFakeProvisioner()
	plan, err := mustNew(t, fake, Config{Settings: testSettings()}).Synthesize(context.Background(), testTarget, staticSource{})

	require.NoError(t, err)
	assert.Zero(t, fake.count())
	assert.Empty(t, plan.Layers())
	assert.Zero(t, plan.TaskCount())
}

func TestSynthesize_CycleMakesNoCalls(t *testing.T) {
	t.Parallel()

	fake := newFakeProvisioner()
	src := solution([]string{"A", "B"}, map[string][]string{"A": {"B"}, "B": {"A"}})

	plan, err := mustNew(t, fake, Config{Settings: testSettings()}).Synthesize(context.Background(), testTarget, src)

	var cycleErr *dag.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Nil(t, plan)
	assert.Zero(t, fake.count())
}

func TestSynthesize_ContainerFailureKeepsEarlierLayers(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fake := newFakeProvisioner()
	fake.failOp, fake.failName = OpCreateContainer, "Layer 1"
	src := solution([]string{"A", "B", "C"}, map[string][]string{"B": {"A"}, "C": {"B"}})

	// --- Act ---
	plan, err := mustNew(t, fake, Config{Settings: testSettings(), Workers: 2}).Synthesize(context.Background(), testTarget, src)

	// --- Assert ---
	var provErr *ProvisioningError
	require.ErrorAs(t, err, &provErr)
	assert.ErrorIs(t, err, ErrProvisioning)
	assert.Equal(t, OpCreateContainer, provErr.Op)
	assert.Equal(t, 1, provErr.Layer)
	assert.Empty(t, provErr.Project)

	require.NotNil(t, plan)
	layers := plan.Layers()
	require.Len(t, layers, 1)
	assert.Equal(t, []string{"A"}, taskNames(layers[0]))
	// Nothing was attempted for layer 2.
	assert.Len(t, fake.callsOf(OpCreateContainer), 2)
	assert.Len(t, fake.callsOf(OpCreateTask), 1)
}

func TestSynthesize_TaskFailureDoesNotCommitPartialLayer(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fake := newFakeProvisioner()
	fake.failOp, fake.failName = OpCreateTask, "Y"
	src := solution([]string{"A", "X", "Y", "Z"}, map[string][]string{"X": {"A"}, "Y": {"A"}, "Z": {"X"}})

	// --- Act ---
	plan, err := mustNew(t, fake, Config{Settings: testSettings(), Workers: 1}).Synthesize(context.Background(), testTarget, src)

	// --- Assert ---
	var provErr *ProvisioningError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, OpCreateTask, provErr.Op)
	assert.Equal(t, 1, provErr.Layer)
	assert.Equal(t, "Y", provErr.Project)
	assert.ErrorContains(t, err, "remote said no")

	layers := plan.Layers()
	require.Len(t, layers, 1, "layer 1 failed and must not be reported")
	_, ok := plan.Task(1) // X may have been created remotely, but is not claimed
	assert.False(t, ok)
	for _, c := range fake.callsOf(OpCreateContainer) {
		assert.NotEqual(t, "Layer 2", c.Arg)
	}
}

func TestSynthesize_StepFailureCarriesOperation(t *testing.T) {
	t.Parallel()

	fake := newFakeProvisioner()
	fake.failOp = OpAddArtifactDependency
	src := solution([]string{"A", "B"}, map[string][]string{"B": {"A"}})

	_, err := mustNew(t, fake, Config{Settings: testSettings()}).Synthesize(context.Background(), testTarget, src)

	var provErr *ProvisioningError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, OpAddArtifactDependency, provErr.Op)
	assert.Equal(t, "B", provErr.Project)
	assert.Len(t, fake.callsOf(OpAddBuildStep), 1, "B's build step is never added")
}

func TestSynthesize_CancelledBetweenLayers(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := newFakeProvisioner()
	fake.afterTask = func(name string) {
		if name == "A" {
			cancel()
		}
	}
	src := solution([]string{"A", "B"}, map[string][]string{"B": {"A"}})

	// --- Act ---
	plan, err := mustNew(t, fake, Config{Settings: testSettings()}).Synthesize(ctx, testTarget, src)

	// --- Assert ---
	require.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, plan.Layers(), 1)
	assert.Len(t, fake.callsOf(OpCreateContainer), 1)
}

func TestSynthesize_UnresolvedReferences(t *testing.T) {
	t.Parallel()

	src := solution([]string{"A", "B"}, map[string][]string{"B": {"A"}})
	src[1].References = append(src[1].References, model.Reference{Identity: identity("Ghost"), Include: "../Ghost/Ghost.csproj"})

	t.Run("warns and continues by default", func(t *testing.T) {
		t.Parallel()
		fake := newFakeProvisioner()
		rec := &progress.Recorder{}

		plan, err := mustNew(t, fake, Config{Settings: testSettings(), Sink: rec}).Synthesize(context.Background(), testTarget, src)

		require.NoError(t, err)
		require.Len(t, plan.Unresolved(), 1)
		assert.Equal(t, model.Unresolved, plan.Unresolved()[0].Kind)
		assert.Len(t, fake.callsOf(OpAddSnapshotDependency), 1)

		var warnings []progress.Event
		for _, ev := range rec.Events() {
			if ev.Phase == progress.PhaseWarning {
				warnings = append(warnings, ev)
			}
		}
		require.Len(t, warnings, 1)
		assert.Equal(t, "B", warnings[0].Project)
		assert.Contains(t, warnings[0].Message, "../Ghost/Ghost.csproj")
	})

	t.Run("fails in strict mode", func(t *testing.T) {
		t.Parallel()
		fake := newFakeProvisioner()

		_, err := mustNew(t, fake, Config{Settings: testSettings(), StrictReferences: true}).Synthesize(context.Background(), testTarget, src)

		var unresolvedErr *dag.UnresolvedReferenceError
		require.ErrorAs(t, err, &unresolvedErr)
		assert.Zero(t, fake.count())
	})
}

func TestSynthesize_WideLayerRunsConcurrently(t *testing.T) {
	t.Parallel()

	names := []string{"Root"}
	deps := map[string][]string{}
	for i := 0; i < 25; i++ {
		n := fmt.Sprintf("Leaf%02d", i)
		names = append(names, n)
		deps[n] = []string{"Root"}
	}
	fake := newFakeProvisioner()

	plan, err := mustNew(t, fake, Config{Settings: testSettings(), Workers: 8}).Synthesize(context.Background(), testTarget, solution(names, deps))

	require.NoError(t, err)
	layers := plan.Layers()
	require.Len(t, layers, 2)
	assert.Len(t, layers[1].Tasks, 25)
	assert.Len(t, fake.callsOf(OpAddSnapshotDependency), 25)

	seen := make(map[string]bool)
	for _, c := range fake.callsOf(OpCreateTask) {
		assert.False(t, seen[c.Arg.(string)], "task created twice for %s", c.Arg)
		seen[c.Arg.(string)] = true
	}
}

func TestNew_RequiresSolutionRoot(t *testing.T) {
	t.Parallel()

	s, err := New(newFakeProvisioner(), Config{Workers: 2})

	require.ErrorIs(t, err, ErrNoSolutionRoot)
	assert.Nil(t, s)
}

func TestSynthesize_BadOutputFolderMakesNoCalls(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fake := newFakeProvisioner()
	src := solution([]string{"A", "B", "C"}, map[string][]string{"B": {"A"}, "C": {"B"}})
	src[2].OutputFolder = "D:/elsewhere/C/out"

	// --- Act ---
	plan, err := mustNew(t, fake, Config{Settings: testSettings()}).Synthesize(context.Background(), testTarget, src)

	// --- Assert ---
	var provErr *ProvisioningError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, OpArtifactPath, provErr.Op)
	assert.Equal(t, 2, provErr.Layer)
	assert.Equal(t, "C", provErr.Project)
	assert.ErrorContains(t, err, "different volumes")
	assert.Zero(t, fake.count(), "no remote entity may exist when a path cannot be resolved")
	require.NotNil(t, plan)
	assert.Empty(t, plan.Layers())
}

func taskNames(l LayerPlan) []string {
	out := make([]string, len(l.Tasks))
	for i, t := range l.Tasks {
		out[i] = t.Project
	}
	return out
}

func TestProvisioningError_Message(t *testing.T) {
	t.Parallel()

	err := &ProvisioningError{Op: OpCreateTask, Layer: 2, Project: "Core", Err: errors.New("boom")}
	assert.Equal(t, "remote provisioning failed: create build task (layer 2, project Core): boom", err.Error())
	assert.True(t, strings.HasPrefix((&ProvisioningError{Op: OpCreateContainer, Err: errors.New("x")}).Error(), "remote provisioning failed"))
}
