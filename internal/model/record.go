// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines ProjectRecord, the resolved node of the dependency graph.
package model

import (
	"slices"

	"github.com/google/uuid"
)

// ProjectRecord is a project with its references resolved to dense integer ids.
type ProjectRecord struct {
	ID           int
	Identity     uuid.UUID
	FilePath     string
	OutputFolder string
	// DependencyIDs is sorted ascending and free of duplicates. It may contain
	// ID itself, which layering reports as a cycle.
	DependencyIDs []int
}

// Name is the human readable name of the project, its file stem.
func (p ProjectRecord) Name() string {
	return Stem(p.FilePath)
}

// DependsOn reports whether id is one of the record's dependencies.
func (p ProjectRecord) DependsOn(id int) bool {
	_, found := slices.BinarySearch(p.DependencyIDs, id)
	return found
}
