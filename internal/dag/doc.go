// Package dag turns the flat list of discovered projects into a dependency
// graph and partitions that graph into build layers.
//
// Building happens in two passes. Build first assigns every project a dense
// id in discovery order and resolves each raw reference by external identity,
// reporting every outcome as a model.Resolution. Unresolved references are not
// edges; whether they are fatal is up to the caller.
//
// Layers then peels the graph: each round takes every remaining project whose
// dependencies were all placed in earlier rounds. A round that places nothing
// while projects remain means the residual graph is cyclic, and a CycleError
// naming the unplaced projects is returned.
package dag
