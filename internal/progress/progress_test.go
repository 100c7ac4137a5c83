package progress

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[layer] layer 2: analyzing layer 2",
		Event{Phase: PhaseLayer, Layer: 2, Message: "analyzing layer 2"}.String())
	assert.Equal(t, "[task] layer 1, Core: creating build config",
		Event{Phase: PhaseTask, Layer: 1, Project: "Core", Message: "creating build config"}.String())
	assert.Equal(t, "[warning] App: unresolved reference",
		Event{Phase: PhaseWarning, Layer: NoLayer, Project: "App", Message: "unresolved reference"}.String())
	assert.Equal(t, "[done] finished",
		Event{Phase: PhaseDone, Layer: NoLayer, Message: "finished"}.String())
}

func TestMulti_FansOutAndSkipsNil(t *testing.T) {
	t.Parallel()

	first, second := &Recorder{}, &Recorder{}
	sink := Multi(first, nil, second)

	ev := Event{Phase: PhaseDiscover, Layer: NoLayer, Message: "reading solution"}
	sink.Emit(context.Background(), ev)

	require.Equal(t, []Event{ev}, first.Events())
	require.Equal(t, []Event{ev}, second.Events())
}

func TestLogSink_LevelsAndAttributes(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(buf, nil)))

	LogSink{}.Emit(ctx, Event{Phase: PhaseTask, Layer: 0, Project: "Core", Message: "creating build config"})
	LogSink{}.Emit(ctx, Event{Phase: PhaseWarning, Layer: NoLayer, Message: "unresolved reference"})

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "project=Core")
	assert.Contains(t, out, "layer=0")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="unresolved reference"`)
}

func TestPayload(t *testing.T) {
	t.Parallel()

	p := payload(Event{Phase: PhaseTask, Layer: 3, Project: "Api", Message: "wiring dependencies"})
	assert.Equal(t, "task", p["phase"])
	assert.Equal(t, 3, p["layer"])
	assert.Equal(t, "Api", p["project"])

	p = payload(Event{Phase: PhaseDone, Layer: NoLayer, Message: "ok"})
	assert.NotContains(t, p, "layer")
	assert.NotContains(t, p, "project")
}
