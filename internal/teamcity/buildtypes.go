package teamcity

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/specialistvlad/bigcity/internal/pipeline"
)

// CreateTask implements pipeline.Provisioner with a build configuration.
// When the client has a VCS root configured it is attached right away.
func (c *Client) CreateTask(ctx context.Context, containerID, name string) (string, error) {
	var created buildTypeRef
	err := c.call(ctx, http.MethodPost, "/projects/id:{id}/buildTypes",
		map[string]string{"id": containerID}, newBuildType{Name: name}, &created)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("create build configuration %q: %w", name, ErrEmptyResult)
	}

	if c.vcsRootID != "" {
		entry := vcsRootEntry{ID: c.vcsRootID, VCSRoot: vcsRootRef{ID: c.vcsRootID}}
		err := c.call(ctx, http.MethodPost, "/buildTypes/id:{id}/vcs-root-entries",
			map[string]string{"id": created.ID}, entry, nil)
		if err != nil {
			return created.ID, fmt.Errorf("attach vcs root %s to %s: %w", c.vcsRootID, created.ID, err)
		}
	}
	return created.ID, nil
}

// SetTaskMetadata implements pipeline.Provisioner.
func (c *Client) SetTaskMetadata(ctx context.Context, taskID string, meta pipeline.TaskMetadata) error {
	params := map[string]string{"id": taskID}
	if err := c.call(ctx, http.MethodPut, "/buildTypes/id:{id}/description", params, meta.Description, nil); err != nil {
		return err
	}
	return c.call(ctx, http.MethodPut, "/buildTypes/id:{id}/settings/artifactRules", params, meta.ArtifactRules, nil)
}

// AddBuildStep implements pipeline.Provisioner.
func (c *Client) AddBuildStep(ctx context.Context, taskID string, step pipeline.BuildStep) error {
	body := buildStep{
		Name: step.Name,
		Type: step.RunnerType,
		Properties: props(
			"build-file-path", step.BuildFile,
			"targets", step.Targets,
			"configuration", step.Configuration,
			"run-platform", step.Platform,
			"msbuild_version", step.MSBuildVersion,
			"toolsVersion", step.ToolsVersion,
			"teamcity.build.workingDir", step.WorkingDir,
			"teamcity.step.mode", "default",
		),
	}
	return c.call(ctx, http.MethodPost, "/buildTypes/id:{id}/steps", map[string]string{"id": taskID}, body, nil)
}

// AddSnapshotDependency implements pipeline.Provisioner.
func (c *Client) AddSnapshotDependency(ctx context.Context, taskID string, dep pipeline.SnapshotDependency) error {
	body := dependency{
		Type: "snapshot_dependency",
		Properties: props(
			"run-build-if-dependency-failed", strconv.FormatBool(dep.RunIfDependencyFailed),
			"run-build-on-the-same-agent", strconv.FormatBool(dep.RunOnSameAgent),
			"take-started-build-with-same-revisions", strconv.FormatBool(dep.TakeStartedBuild),
			"take-successful-builds-only", strconv.FormatBool(dep.TakeSuccessfulOnly),
		),
		SourceBuildType: buildTypeRef{ID: dep.SourceTaskID},
	}
	return c.call(ctx, http.MethodPost, "/buildTypes/id:{id}/snapshot-dependencies", map[string]string{"id": taskID}, body, nil)
}

// AddArtifactDependency implements pipeline.Provisioner.
func (c *Client) AddArtifactDependency(ctx context.Context, taskID string, dep pipeline.ArtifactDependency) error {
	body := dependency{
		Type: "artifact_dependency",
		Properties: props(
			"pathRules", dep.PathRules(),
			"cleanDestinationDirectory", "false",
			"revisionName", dep.Revision,
			"revisionValue", "latest."+dep.Revision,
		),
		SourceBuildType: buildTypeRef{ID: dep.SourceTaskID},
	}
	return c.call(ctx, http.MethodPost, "/buildTypes/id:{id}/artifact-dependencies", map[string]string{"id": taskID}, body, nil)
}
