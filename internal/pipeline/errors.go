package pipeline

import (
	"errors"
	"fmt"
)

// ErrProvisioning is the sentinel wrapped by every ProvisioningError.
var ErrProvisioning = errors.New("remote provisioning failed")

// Operation names used in ProvisioningError.
const (
	OpCreateContainer       = "create container"
	OpCreateTask            = "create build task"
	OpArtifactPath          = "compute artifact path"
	OpSetMetadata           = "set task metadata"
	OpAddSnapshotDependency = "add snapshot dependency"
	OpAddArtifactDependency = "add artifact dependency"
	OpAddBuildStep          = "add build step"
	OpRecordTask            = "record task"
)

// ProvisioningError reports a step of synthesis that produced no usable
// result. It aborts the remaining layers.
type ProvisioningError struct {
	Op    string
	Layer int
	// Project is empty for layer-level operations.
	Project string
	Err     error
}

func (e *ProvisioningError) Error() string {
	where := fmt.Sprintf("layer %d", e.Layer)
	if e.Project != "" {
		where += ", project " + e.Project
	}
	return fmt.Sprintf("%s: %s (%s): %v", ErrProvisioning, e.Op, where, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ProvisioningError) Unwrap() []error { return []error{ErrProvisioning, e.Err} }

// ErrAborted is returned when the context is cancelled between layers.
var ErrAborted = errors.New("run aborted")

// ErrNoSolutionRoot is returned by New when Settings.SolutionRoot is empty.
var ErrNoSolutionRoot = errors.New("solution root is required")
