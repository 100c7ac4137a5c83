// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the data records shared by every stage of a run: the raw
// projects produced by a project model provider, the resolution of their
// references, and the normalized ProjectRecord used by graph layering and
// pipeline synthesis.
//
// # Lifecycle
//
//  1. A provider (see internal/solution) yields one RawProject per discovered
//     project file, in discovery order.
//  2. The dependency graph builder (internal/dag) assigns dense ids, resolves
//     each Reference to a Resolution and produces one ProjectRecord per project.
//  3. Records are immutable from that point on. Layering and synthesis only
//     read them.
//
// The id of a ProjectRecord is its position in discovery order and is the only
// cross-reference key used after resolution.
package model
