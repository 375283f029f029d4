package ui

import (
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"filament/internal/trace"
)

type Stage uint8

const (
	StageLower Stage = iota + 1 // bundle elimination
	StageBuild                  // IR construction
)

func (s Stage) String() string {
	switch s {
	case StageLower:
		return "lowering"
	case StageBuild:
		return "building"
	default:
		return "queued"
	}
}

type Status uint8

const (
	StatusWorking Status = iota + 1
	StatusDone
	StatusError
)

// Event is one progress update. An empty Component announces a new stage.
type Event struct {
	Component string
	Stage     Stage
	Status    Status
}

// Tracer turns pass and component spans into progress events. It can be
// combined with other tracers through trace.NewMultiTracer.
type Tracer struct {
	events chan<- Event
	stage  atomic.Uint32
}

func NewTracer(events chan<- Event) *Tracer {
	return &Tracer{events: events}
}

func (t *Tracer) Emit(ev *trace.Event) {
	switch ev.Scope {
	case trace.ScopePass:
		if ev.Kind != trace.KindSpanBegin {
			return
		}
		stage := stageOf(ev.Name)
		if stage == 0 {
			return
		}
		t.stage.Store(uint32(stage))
		t.events <- Event{Stage: stage}
	case trace.ScopeModule:
		name, ok := strings.CutPrefix(ev.Name, "component:")
		if !ok {
			return
		}
		out := Event{Component: name, Stage: Stage(t.stage.Load()), Status: StatusWorking}
		switch {
		case ev.Kind == trace.KindSpanEnd && ev.Detail == "error":
			out.Status = StatusError
		case ev.Kind == trace.KindSpanEnd:
			out.Status = StatusDone
		case ev.Kind != trace.KindSpanBegin:
			return
		}
		t.events <- out
	}
}

func stageOf(pass string) Stage {
	switch pass {
	case "bundle_elim":
		return StageLower
	case "irbuild":
		return StageBuild
	default:
		return 0
	}
}

func (t *Tracer) Flush() error { return nil }
func (t *Tracer) Close() error { return nil }
func (t *Tracer) Level() trace.Level { return trace.LevelDetail }
func (t *Tracer) Enabled() bool { return true }

// Run shows progress on opts' output until events is closed. The returned
// function waits for the display to finish.
func Run(title string, events <-chan Event, opts ...tea.ProgramOption) func() error {
	p := tea.NewProgram(NewProgressModel(title, events), opts...)
	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		// Keep emitters from blocking if the display stopped early.
		for range events {
		}
		done <- err
	}()
	return func() error { return <-done }
}
