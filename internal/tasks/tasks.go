package tasks

import (
	"fmt"
	"log/slog"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/stagecast/stagecast/internal/timeline"
)

// Built-in task names as used in storyboard declarations.
const (
	Move        = "move"
	Fade        = "fade"
	Colorshift  = "colorshift"
	FlyoverLog  = "flyover-log"
	AwaitSignal = "await-signal"
)

// RegisterBuiltins registers the full built-in library on reg.
func RegisterBuiltins(reg *timeline.Registry) error {
	builtins := []struct {
		name     string
		handler  timeline.TaskHandler
		validate timeline.TaskValidator
	}{
		{Move, moveTask, validateMove},
		{Fade, fadeTask, validateMove},
		{Colorshift, colorshiftTask, validateColorshift},
		{FlyoverLog, flyoverLogTask, nil},
		{AwaitSignal, awaitSignalTask, validateAwaitSignal},
	}
	for _, b := range builtins {
		if err := reg.RegisterValidated(b.name, b.handler, b.validate); err != nil {
			return err
		}
	}
	return nil
}

// progress returns the normalized position within the animation, matching
// the declared-property resolution: 0 for single-frame animations.
func progress(anim *timeline.Animation, local int) float64 {
	if anim.Duration <= 1 {
		return 0
	}
	return float64(local-anim.Start) / float64(anim.Duration-1)
}

// moveTask animates a numeric property (default "x") between two values.
func moveTask(tc *timeline.TaskContext, anim *timeline.Animation, _ *timeline.WorkTask, params timeline.Params, stage timeline.TaskStage) (timeline.TaskResult, error) {
	if stage != timeline.TaskAnimeLoop {
		return timeline.TaskExit, nil
	}
	if anim == nil {
		return timeline.TaskExit, fmt.Errorf("move: dispatched without an owning animation")
	}
	from, err := paramFloat(params, "from", 0)
	if err != nil {
		return timeline.TaskExit, err
	}
	to, err := paramFloat(params, "to", 0)
	if err != nil {
		return timeline.TaskExit, err
	}
	easeFn, ok := timeline.EaseByName(paramString(params, "ease", ""))
	if !ok {
		return timeline.TaskExit, fmt.Errorf("move: unknown easing curve %q", params["ease"])
	}

	eased := easeFn(progress(anim, tc.Local))
	prop := paramString(params, "property", "x")
	tc.SetValue(anim.Selector, prop, from+(to-from)*eased)
	return timeline.TaskContinue, nil
}

// fadeTask is move specialized to opacity, defaulting from 0 to 1.
func fadeTask(tc *timeline.TaskContext, anim *timeline.Animation, task *timeline.WorkTask, params timeline.Params, stage timeline.TaskStage) (timeline.TaskResult, error) {
	if stage != timeline.TaskAnimeLoop {
		return timeline.TaskExit, nil
	}
	faded := params.Clone()
	if faded == nil {
		faded = timeline.Params{}
	}
	if _, ok := faded["property"]; !ok {
		faded["property"] = "opacity"
	}
	if _, ok := faded["to"]; !ok {
		faded["to"] = 1.0
	}
	return moveTask(tc, anim, task, faded, stage)
}

// colorshiftTask blends two hex colors in HCL space, which keeps perceived
// lightness monotonic across the transition.
func colorshiftTask(tc *timeline.TaskContext, anim *timeline.Animation, _ *timeline.WorkTask, params timeline.Params, stage timeline.TaskStage) (timeline.TaskResult, error) {
	if stage != timeline.TaskAnimeLoop {
		return timeline.TaskExit, nil
	}
	if anim == nil {
		return timeline.TaskExit, fmt.Errorf("colorshift: dispatched without an owning animation")
	}
	from, err := colorful.Hex(paramString(params, "from", ""))
	if err != nil {
		return timeline.TaskExit, fmt.Errorf("colorshift: from: %w", err)
	}
	to, err := colorful.Hex(paramString(params, "to", ""))
	if err != nil {
		return timeline.TaskExit, fmt.Errorf("colorshift: to: %w", err)
	}
	easeFn, ok := timeline.EaseByName(paramString(params, "ease", ""))
	if !ok {
		return timeline.TaskExit, fmt.Errorf("colorshift: unknown easing curve %q", params["ease"])
	}

	eased := easeFn(progress(anim, tc.Local))
	blended := from.BlendHcl(to, eased).Clamped()
	prop := paramString(params, "property", "color")
	tc.SetValue(anim.Selector, prop, blended.Hex())
	return timeline.TaskContinue, nil
}

// flyoverLogTask logs frame progress every frame regardless of scene. It is
// meant for story-level registration via AddFlyover.
func flyoverLogTask(tc *timeline.TaskContext, _ *timeline.Animation, _ *timeline.WorkTask, params timeline.Params, stage timeline.TaskStage) (timeline.TaskResult, error) {
	if stage != timeline.TaskAnimeLoop {
		return timeline.TaskExit, nil
	}
	slog.Debug(paramString(params, "message", "frame rendered"),
		"frame", tc.Frame, "local", tc.Local)
	return timeline.TaskContinue, nil
}

// awaitSignalTask suspends the frame loop during INIT until the channel in
// params["signal"] is closed or receives. The TELEPORT stage strips the
// channel and marks the signal received, so a rebuilt timeline proceeds
// without re-waiting.
func awaitSignalTask(tc *timeline.TaskContext, _ *timeline.Animation, _ *timeline.WorkTask, params timeline.Params, stage timeline.TaskStage) (timeline.TaskResult, error) {
	switch stage {
	case timeline.TaskTeleport:
		if _, ok := params["signal"]; ok {
			delete(params, "signal")
			params["received"] = true
		}
		return timeline.TaskExit, nil

	case timeline.TaskInit:
		ch, ok := params["signal"].(chan struct{})
		if !ok {
			// Never configured, or already consumed by a teleport.
			return timeline.TaskExit, nil
		}
		tc.Waits.Add(timeline.WaitEntry{
			Params: params,
			Continuation: func(_ timeline.Params, resolve func()) {
				go func() {
					<-ch
					resolve()
				}()
			},
		})
		return timeline.TaskExit, nil
	}
	return timeline.TaskExit, nil
}

func validateMove(params timeline.Params) error {
	if _, err := paramFloat(params, "from", 0); err != nil {
		return err
	}
	if _, err := paramFloat(params, "to", 0); err != nil {
		return err
	}
	return validateEase(params)
}

func validateColorshift(params timeline.Params) error {
	for _, key := range []string{"from", "to"} {
		raw := paramString(params, key, "")
		if raw == "" {
			return fmt.Errorf("param %q: hex color is required", key)
		}
		if _, err := colorful.Hex(raw); err != nil {
			return fmt.Errorf("param %q: %w", key, err)
		}
	}
	return validateEase(params)
}

func validateAwaitSignal(params timeline.Params) error {
	if v, ok := params["signal"]; ok {
		if _, isChan := v.(chan struct{}); !isChan {
			return fmt.Errorf("param \"signal\": expected chan struct{}, got %T", v)
		}
	}
	return nil
}

func validateEase(params timeline.Params) error {
	name := paramString(params, "ease", "")
	if _, ok := timeline.EaseByName(name); !ok {
		return fmt.Errorf("unknown easing curve %q", name)
	}
	return nil
}

// paramFloat reads a numeric param, tolerating the int types YAML decoding
// produces.
func paramFloat(params timeline.Params, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("param %q: expected number, got %T", key, v)
	}
}

func paramString(params timeline.Params, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}
