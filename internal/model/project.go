// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the raw, unresolved shape of a discovered project.
package model

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Reference is an unresolved pointer from one project to another, identified
// by the referenced project's external identity.
type Reference struct {
	// Identity is the referenced project's GUID. It is uuid.Nil when the
	// identity could not be determined (for example a missing file).
	Identity uuid.UUID
	// Include is the reference target as written in the project file, kept
	// for diagnostics.
	Include string
}

// RawProject is a normalized project as reported by a project model provider,
// before any reference has been resolved.
type RawProject struct {
	Identity     uuid.UUID
	FilePath     string
	OutputFolder string
	References   []Reference
}

// Stem returns the project file name without its extension.
func Stem(filePath string) string {
	base := filepath.Base(filepath.ToSlash(strings.ReplaceAll(filePath, `\`, "/")))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
