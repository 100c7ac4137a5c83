package pipeline

import (
	"context"
	"fmt"
)

// Provisioner creates remote entities. Every call blocks until the remote
// side answered, and returns an error when it produced no usable result.
// Implementations must be safe for concurrent use by distinct tasks.
type Provisioner interface {
	// CreateContainer creates a grouping pipeline under parentID and returns its id.
	CreateContainer(ctx context.Context, parentID, name string) (string, error)
	// CreateTask creates a build task inside containerID and returns its id.
	CreateTask(ctx context.Context, containerID, name string) (string, error)
	// SetTaskMetadata sets the task's description and artifact publication rules.
	SetTaskMetadata(ctx context.Context, taskID string, meta TaskMetadata) error
	// AddBuildStep appends a build step to the task.
	AddBuildStep(ctx context.Context, taskID string, step BuildStep) error
	// AddSnapshotDependency makes taskID wait for dep.SourceTaskID.
	AddSnapshotDependency(ctx context.Context, taskID string, dep SnapshotDependency) error
	// AddArtifactDependency copies dep.SourceTaskID's artifacts into taskID's workspace.
	AddArtifactDependency(ctx context.Context, taskID string, dep ArtifactDependency) error
}

// Target is the top-level remote project that already exists and receives
// one container per layer.
type Target struct {
	ID   string
	Name string
}

// TaskMetadata is the descriptive part of a build task.
type TaskMetadata struct {
	Description   string
	ArtifactRules string
}

// BuildStep describes the single build invocation of a task.
type BuildStep struct {
	Name       string
	RunnerType string
	// BuildFile is the solution file name.
	BuildFile string
	// Targets is the project's target name in the solution.
	Targets        string
	Configuration  string
	Platform       string
	MSBuildVersion string
	ToolsVersion   string
	// WorkingDir is the solution directory relative to the checkout root,
	// empty when the build runs in the checkout root.
	WorkingDir string
}

// SnapshotDependency orders two tasks without moving files.
type SnapshotDependency struct {
	SourceTaskID          string
	RunIfDependencyFailed bool
	RunOnSameAgent        bool
	TakeStartedBuild      bool
	TakeSuccessfulOnly    bool
}

// RevisionSameChainOrLastFinished selects the build of the same chain, or
// the last finished one when there is none.
const RevisionSameChainOrLastFinished = "sameChainOrLastFinished"

// ArtifactDependency copies files published by SourceTaskID.
type ArtifactDependency struct {
	SourceTaskID string
	// SourcePattern selects the published files, e.g. "build/A/out/**".
	SourcePattern string
	// Destination is where the files land, relative to the solution root.
	Destination string
	Revision    string
}

// PathRules renders the dependency as a single artifact path rule.
func (d ArtifactDependency) PathRules() string {
	return fmt.Sprintf("%s => %s", d.SourcePattern, d.Destination)
}

// newSnapshotDependency returns the fixed snapshot policy used for every edge.
func newSnapshotDependency(sourceTaskID string) SnapshotDependency {
	return SnapshotDependency{
		SourceTaskID:          sourceTaskID,
		RunIfDependencyFailed: false,
		RunOnSameAgent:        false,
		TakeStartedBuild:      true,
		TakeSuccessfulOnly:    true,
	}
}
