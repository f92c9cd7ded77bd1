package pipeline

import (
	"context"

	"github.com/looplab/fsm"
)

// State names a coordinator state.
type State string

const (
	StateIdle         State = "idle"
	StateAcquiring    State = "acquiring"
	StateNormalizing  State = "normalizing"
	StateTranscribing State = "transcribing"
	StateFormatting   State = "formatting"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

const (
	eventAcquire    = "acquire"
	eventNormalize  = "normalize"
	eventTranscribe = "transcribe"
	eventFormat     = "format"
	eventFinish     = "finish"
	eventFail       = "fail"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// newMachine builds the strictly sequential run state machine. onEnter runs
// after every transition with the source and destination states.
func newMachine(onEnter func(ctx context.Context, from, to State)) *fsm.FSM {
	working := []string{
		string(StateIdle),
		string(StateAcquiring),
		string(StateNormalizing),
		string(StateTranscribing),
		string(StateFormatting),
	}
	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventAcquire, Src: []string{string(StateIdle)}, Dst: string(StateAcquiring)},
			{Name: eventNormalize, Src: []string{string(StateAcquiring)}, Dst: string(StateNormalizing)},
			{Name: eventTranscribe, Src: []string{string(StateNormalizing)}, Dst: string(StateTranscribing)},
			{Name: eventFormat, Src: []string{string(StateTranscribing)}, Dst: string(StateFormatting)},
			{Name: eventFinish, Src: []string{string(StateFormatting)}, Dst: string(StateDone)},
			{Name: eventFail, Src: working, Dst: string(StateFailed)},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				if onEnter != nil {
					onEnter(ctx, State(e.Src), State(e.Dst))
				}
			},
		},
	)
}
