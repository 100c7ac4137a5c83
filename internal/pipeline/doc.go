// Package pipeline synthesizes a layered build configuration on a remote CI
// service from a project graph.
//
// For every layer, in index order, the Synthesizer creates one container
// under the target, then one build task per project of the layer. Each task
// gets a description, an artifact publication rule, a build step, and for
// every dependency a linked snapshot and artifact dependency on the task
// created for that dependency in an earlier layer.
//
// Remote entities are created through the Provisioner interface. The ids it
// returns are recorded in a Plan, which is append-only: a layer's tasks are
// staged while the layer runs and committed only once all of them succeeded,
// so tasks of layer i+1 only ever read committed entries.
package pipeline
