package pipeline

import "fmt"

type Event string

const (
	EventStart        Event = "start"
	EventStop         Event = "stop"
	EventSkip         Event = "skip"
	EventCancel       Event = "cancel"
	EventBeginRewrite Event = "begin_rewrite"
	EventComplete     Event = "complete"
	EventFail         Event = "fail"
	EventRetry        Event = "retry"
	EventReset        Event = "reset"
)

// Transition is the closed transition function of the pipeline. Any
// (phase, event) pair not listed here is a programming error surfaced as an
// invalid-transition error, never a silent state change.
func Transition(from Phase, ev Event) (Phase, error) {
	switch ev {
	case EventStart:
		// Error is deliberately not startable; retry and reset are the only
		// exits so a failed cycle is never silently discarded.
		if from == PhaseIdle {
			return PhaseRecording, nil
		}
	case EventStop:
		if from == PhaseRecording {
			return PhaseTranscribing, nil
		}
	case EventSkip:
		if from == PhaseTranscribing {
			return PhaseIdle, nil
		}
	case EventCancel:
		// Transcribing is cancellable only before the provider call, when
		// closing the capture session fails.
		if from == PhaseRecording || from == PhaseTranscribing {
			return PhaseIdle, nil
		}
	case EventBeginRewrite:
		if from == PhaseTranscribing {
			return PhaseRewriting, nil
		}
	case EventComplete:
		if from == PhaseTranscribing || from == PhaseRewriting {
			return PhaseIdle, nil
		}
	case EventFail:
		if from == PhaseTranscribing || from == PhaseRewriting {
			return PhaseError, nil
		}
	case EventRetry:
		if from == PhaseIdle || from == PhaseError {
			return PhaseTranscribing, nil
		}
	case EventReset:
		return PhaseIdle, nil
	}
	return from, fmt.Errorf("invalid transition: %s on %s", ev, from)
}
