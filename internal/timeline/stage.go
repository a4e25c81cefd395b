package timeline

import "fmt"

// RenderStage enumerates the discrete steps of processing a single frame.
//
// The stage cursor is not a user-visible concept; it exists so the frame
// loop can be interrupted at any of these points when a task requests
// asynchronous suspension, then resumed at the exact next step. The stages
// form an explicit state machine with a transition table (see next) rather
// than a bare integer switch, so suspension and resume points stay
// auditable.
type RenderStage int

const (
	// StageTimestamp captures the frame's wall-clock start time.
	StageTimestamp RenderStage = iota

	// StageSeek resolves the owning scene for the current frame position
	// and activates/deactivates animations.
	StageSeek

	// StageReserved is retained for wire compatibility with older stage
	// numbering; it performs no work.
	StageReserved

	// StageFlyover dispatches story-level flyover tasks.
	StageFlyover

	// StageBeforeHook fires the before-frame hook.
	StageBeforeHook

	// StageSceneRender resolves property values and dispatches the active
	// animations' per-frame tasks.
	StageSceneRender

	// StageSchedule is the sole blocking point: self-paced wait in
	// no-agent mode, or frame-rendered/ack exchange with a capture agent.
	StageSchedule

	// StageAfterHook fires the after-frame hook (capture-agent path only).
	StageAfterHook

	// StageAdvance advances the frame position or finishes the render.
	StageAdvance
)

var stageNames = map[RenderStage]string{
	StageTimestamp:   "timestamp",
	StageSeek:        "seek",
	StageReserved:    "reserved",
	StageFlyover:     "flyover",
	StageBeforeHook:  "before-hook",
	StageSceneRender: "scene-render",
	StageAfterHook:   "after-hook",
	StageSchedule:    "schedule",
	StageAdvance:     "advance",
}

// String returns the stage name for logging.
func (s RenderStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// next returns the stage following s. Transitions are unconditional except
// at StageSchedule, which branches on capture-agent presence: with an agent
// the loop proceeds to the after-frame hook once the agent acknowledges;
// without one it skips directly to advance-or-finish. StageAdvance wraps
// back to StageTimestamp; the advance-or-finish decision itself lives in
// the render loop.
func (s RenderStage) next(hasAgent bool) RenderStage {
	switch s {
	case StageTimestamp:
		return StageSeek
	case StageSeek:
		return StageReserved
	case StageReserved:
		return StageFlyover
	case StageFlyover:
		return StageBeforeHook
	case StageBeforeHook:
		return StageSceneRender
	case StageSceneRender:
		return StageSchedule
	case StageSchedule:
		if hasAgent {
			return StageAfterHook
		}
		return StageAdvance
	case StageAfterHook:
		return StageAdvance
	case StageAdvance:
		return StageTimestamp
	}
	return StageTimestamp
}
