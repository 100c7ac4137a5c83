package progress

import (
	"context"
	"fmt"
	"sync"
)

// Phase names the stage of a run an event belongs to.
type Phase string

const (
	PhaseDiscover  Phase = "discover"
	PhaseResolve   Phase = "resolve"
	PhaseLayer     Phase = "layer"
	PhaseContainer Phase = "container"
	PhaseTask      Phase = "task"
	PhaseWarning   Phase = "warning"
	PhaseDone      Phase = "done"
)

// NoLayer marks an event that does not belong to a specific layer.
const NoLayer = -1

// Event is a single observation emitted during a run.
type Event struct {
	Phase   Phase
	Layer   int
	Project string
	Message string
}

// String renders the event the way a status line would show it.
func (e Event) String() string {
	switch {
	case e.Layer != NoLayer && e.Project != "":
		return fmt.Sprintf("[%s] layer %d, %s: %s", e.Phase, e.Layer, e.Project, e.Message)
	case e.Layer != NoLayer:
		return fmt.Sprintf("[%s] layer %d: %s", e.Phase, e.Layer, e.Message)
	case e.Project != "":
		return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Project, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
	}
}

// Sink receives events. Implementations must be safe for concurrent use,
// since projects of one layer are provisioned in parallel.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// Nop discards every event.
var Nop Sink = SinkFunc(func(context.Context, Event) {})

// Multi fans an event out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(ctx context.Context, ev Event) {
		for _, s := range live {
			s.Emit(ctx, ev)
		}
	})
}

// Recorder keeps every event in memory. It is used by tests and by the dry
// run report.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
