package progress

import (
	"context"

	"github.com/specialistvlad/bigcity/internal/ctxlog"
)

// LogSink writes every event to the logger found in the event's context.
// Warnings are logged at warn level, everything else at info.
type LogSink struct{}

// Emit implements Sink.
func (LogSink) Emit(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx)
	args := []any{"phase", string(ev.Phase)}
	if ev.Layer != NoLayer {
		args = append(args, "layer", ev.Layer)
	}
	if ev.Project != "" {
		args = append(args, "project", ev.Project)
	}
	if ev.Phase == PhaseWarning {
		logger.Warn(ev.Message, args...)
		return
	}
	logger.Info(ev.Message, args...)
}
