package dryrun

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/specialistvlad/bigcity/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// RootProjectID is the implicit root every project hierarchy starts from.
const RootProjectID = "_Root"

// Operation kinds.
const (
	KindCreateProject      = "create_project"
	KindCreateContainer    = "create_container"
	KindCreateBuildType    = "create_build_type"
	KindSetMetadata        = "set_metadata"
	KindAddBuildStep       = "add_build_step"
	KindSnapshotDependency = "add_snapshot_dependency"
	KindArtifactDependency = "add_artifact_dependency"
)

// Operation is one recorded remote call.
type Operation struct {
	Seq        int               `yaml:"seq"`
	Kind       string            `yaml:"kind"`
	Parent     string            `yaml:"parent,omitempty"`
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

// Recorder is an in-memory pipeline.Provisioner. It is safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	ops []Operation
	ids map[string]bool
}

var _ pipeline.Provisioner = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{ids: make(map[string]bool)}
}

// EnsureTarget records the creation of the top-level project. Nothing exists
// remotely in a dry run, so replace only shows up in the recorded attributes.
func (r *Recorder) EnsureTarget(ctx context.Context, parentID, name string, replace bool) (pipeline.Target, error) {
	if name == "" {
		return pipeline.Target{}, fmt.Errorf("target name is empty")
	}
	id := r.allocate(parentID, name)
	r.append(Operation{
		Kind: KindCreateProject, Parent: parentID, ID: id, Name: name,
		Attributes: map[string]string{"replace_existing": strconv.FormatBool(replace)},
	})
	ctxlog.FromContext(ctx).Debug("Dry run: target project.", "id", id, "parent", parentID)
	return pipeline.Target{ID: id, Name: name}, nil
}

// CreateContainer implements pipeline.Provisioner.
func (r *Recorder) CreateContainer(_ context.Context, parentID, name string) (string, error) {
	id := r.allocate(parentID, name)
	r.append(Operation{Kind: KindCreateContainer, Parent: parentID, ID: id, Name: name})
	return id, nil
}

// CreateTask implements pipeline.Provisioner.
func (r *Recorder) CreateTask(_ context.Context, containerID, name string) (string, error) {
	id := r.allocate(containerID, name)
	r.append(Operation{Kind: KindCreateBuildType, Parent: containerID, ID: id, Name: name})
	return id, nil
}

// SetTaskMetadata implements pipeline.Provisioner.
func (r *Recorder) SetTaskMetadata(_ context.Context, taskID string, meta pipeline.TaskMetadata) error {
	r.append(Operation{Kind: KindSetMetadata, ID: taskID, Attributes: map[string]string{
		"description":   meta.Description,
		"artifactRules": meta.ArtifactRules,
	}})
	return nil
}

// AddBuildStep implements pipeline.Provisioner.
func (r *Recorder) AddBuildStep(_ context.Context, taskID string, step pipeline.BuildStep) error {
	attrs := map[string]string{
		"type":            step.RunnerType,
		"build-file-path": step.BuildFile,
		"targets":         step.Targets,
		"configuration":   step.Configuration,
		"run-platform":    step.Platform,
		"msbuild_version": step.MSBuildVersion,
		"toolsVersion":    step.ToolsVersion,
	}
	if step.WorkingDir != "" {
		attrs["teamcity.build.workingDir"] = step.WorkingDir
	}
	r.append(Operation{Kind: KindAddBuildStep, ID: taskID, Name: step.Name, Attributes: attrs})
	return nil
}

// AddSnapshotDependency implements pipeline.Provisioner.
func (r *Recorder) AddSnapshotDependency(_ context.Context, taskID string, dep pipeline.SnapshotDependency) error {
	r.append(Operation{Kind: KindSnapshotDependency, ID: taskID, Attributes: map[string]string{
		"source":                                 dep.SourceTaskID,
		"run-build-if-dependency-failed":         strconv.FormatBool(dep.RunIfDependencyFailed),
		"run-build-on-the-same-agent":            strconv.FormatBool(dep.RunOnSameAgent),
		"take-started-build-with-same-revisions": strconv.FormatBool(dep.TakeStartedBuild),
		"take-successful-builds-only":            strconv.FormatBool(dep.TakeSuccessfulOnly),
	}})
	return nil
}

// AddArtifactDependency implements pipeline.Provisioner.
func (r *Recorder) AddArtifactDependency(_ context.Context, taskID string, dep pipeline.ArtifactDependency) error {
	r.append(Operation{Kind: KindArtifactDependency, ID: taskID, Attributes: map[string]string{
		"source":       dep.SourceTaskID,
		"pathRules":    dep.PathRules(),
		"revisionName": dep.Revision,
	}})
	return nil
}

// Operations returns a copy of the recorded operations in call order.
func (r *Recorder) Operations() []Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Operation(nil), r.ops...)
}

// WriteYAML renders the recorded operations as a YAML document.
func (r *Recorder) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Operations []Operation `yaml:"operations"`
	}{r.Operations()}); err != nil {
		return fmt.Errorf("failed to encode operations: %w", err)
	}
	return enc.Close()
}

func (r *Recorder) append(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op.Seq = len(r.ops) + 1
	r.ops = append(r.ops, op)
}

// allocate derives a unique id from the parent id and the entity name, the
// same way the server proposes ids for new projects and build types.
func (r *Recorder) allocate(parentID, name string) string {
	base := ExternalID(name)
	if parentID != "" && parentID != RootProjectID {
		base = parentID + "_" + base
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := base
	for n := 2; r.ids[id]; n++ {
		id = base + strconv.Itoa(n)
	}
	r.ids[id] = true
	return id
}

// ExternalID strips everything but letters, digits and underscores from
// name. An id must start with a letter, so a leading digit or an empty
// result gets a prefix.
func ExternalID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		}
	}
	id := b.String()
	if id == "" || !unicode.IsLetter(rune(id[0])) {
		id = "P" + id
	}
	return id
}
