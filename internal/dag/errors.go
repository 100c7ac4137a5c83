package dag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/specialistvlad/bigcity/internal/model"
)

// ErrCycleDetected is the sentinel wrapped by every CycleError.
var ErrCycleDetected = errors.New("cycle detected")

// CycleError reports that layering could not place the remaining projects.
type CycleError struct {
	// Layer is the index of the layer that came out empty.
	Layer int
	// Remaining are the projects that could not be placed, ordered by id.
	Remaining []model.ProjectRecord
	// Cycle is one concrete dependency cycle among Remaining, as project
	// names with the first name repeated at the end. It may be empty when no
	// cycle could be traced.
	Cycle []string
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Remaining))
	for i, p := range e.Remaining {
		names[i] = p.Name()
	}
	msg := fmt.Sprintf("%s: failed to find projects for layer %d; unplaced: %s",
		ErrCycleDetected, e.Layer, strings.Join(names, ", "))
	if len(e.Cycle) > 0 {
		msg += "; cycle: " + strings.Join(e.Cycle, " -> ")
	}
	return msg
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// DuplicateIdentityError reports two discovered projects sharing one
// external identity. Such a graph is rejected before any reference is resolved.
type DuplicateIdentityError struct {
	Identity uuid.UUID
	First    string
	Second   string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate project identity %s: %q and %q", e.Identity, e.First, e.Second)
}

// UnresolvedReferenceError is returned by RequireResolved when at least one
// reference did not match a discovered project.
type UnresolvedReferenceError struct {
	Unresolved []model.Resolution
	// Names maps a project id to its name for rendering.
	Names map[int]string
}

func (e *UnresolvedReferenceError) Error() string {
	parts := make([]string, len(e.Unresolved))
	for i, r := range e.Unresolved {
		parts[i] = fmt.Sprintf("%s -> %s", e.Names[r.From], r.Reference.Include)
	}
	return fmt.Sprintf("%d unresolved project reference(s): %s", len(e.Unresolved), strings.Join(parts, "; "))
}
