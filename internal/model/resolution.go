// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Resolution, the tagged result of resolving a Reference.
//
// Resolution never fails on its own. Whether an unresolved reference is a
// warning or a hard error is decided by the caller.
package model

import "fmt"

// ResolutionKind tags a Resolution.
type ResolutionKind int

const (
	// Resolved means the reference matched a discovered project.
	Resolved ResolutionKind = iota
	// Unresolved means no discovered project has the referenced identity.
	Unresolved
)

// String implements fmt.Stringer.
func (k ResolutionKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Unresolved:
		return "unresolved"
	default:
		return fmt.Sprintf("ResolutionKind(%d)", int(k))
	}
}

// Resolution is the outcome of resolving one Reference of one project.
type Resolution struct {
	Kind ResolutionKind
	// From is the id of the referencing project.
	From int
	// To is the id of the referenced project. Only meaningful when Kind is Resolved.
	To        int
	Reference Reference
}

// String renders the resolution for logs and error messages.
func (r Resolution) String() string {
	if r.Kind == Resolved {
		return fmt.Sprintf("%d -> %d", r.From, r.To)
	}
	return fmt.Sprintf("%d -> %s (%s)", r.From, r.Reference.Include, r.Reference.Identity)
}
