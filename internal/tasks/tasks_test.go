package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagecast/stagecast/internal/timeline"
)

func newStory(t *testing.T) (*timeline.Story, *timeline.Registry) {
	t.Helper()
	reg := timeline.NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))
	story, err := timeline.New(30, reg)
	require.NoError(t, err)
	return story, reg
}

// addAnim adds a single-scene timeline with one animation running the given
// task over local frames [0, duration).
func addAnim(t *testing.T, story *timeline.Story, duration int, handler string, params timeline.Params) {
	t.Helper()
	require.NoError(t, story.AddScene(&timeline.Scene{
		Selector:       "#scene",
		DeclaredFrames: duration,
		Animations: []*timeline.Animation{{
			Selector: "#el",
			Start:    0,
			Duration: duration,
			Tasks:    []*timeline.WorkTask{timeline.NewWorkTask(handler, params)},
		}},
	}))
}

func TestRegisterBuiltins(t *testing.T) {
	reg := timeline.NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))
	for _, name := range []string{Move, Fade, Colorshift, FlyoverLog, AwaitSignal} {
		_, ok := reg.Resolve(name)
		assert.True(t, ok, "missing builtin %q", name)
	}

	// Double registration collides on every name.
	err := RegisterBuiltins(reg)
	require.Error(t, err)
	assert.True(t, timeline.IsConfigurationError(err))
}

func TestMoveInterpolates(t *testing.T) {
	story, _ := newStory(t)
	addAnim(t, story, 11, Move, timeline.Params{"from": 0.0, "to": 100.0})

	ctx := context.Background()
	require.NoError(t, story.GoToFrame(ctx, 0))
	v, ok := story.FrameValue("#el", "x")
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)

	require.NoError(t, story.GoToFrame(ctx, 5))
	v, _ = story.FrameValue("#el", "x")
	assert.InDelta(t, 50.0, v, 1e-9)

	require.NoError(t, story.GoToFrame(ctx, 10))
	v, _ = story.FrameValue("#el", "x")
	assert.InDelta(t, 100.0, v, 1e-9)
}

func TestMoveCustomPropertyAndIntParams(t *testing.T) {
	story, _ := newStory(t)
	// YAML decoding hands ints to numeric params.
	addAnim(t, story, 3, Move, timeline.Params{"from": 10, "to": 20, "property": "y"})

	require.NoError(t, story.GoToFrame(context.Background(), 2))
	v, ok := story.FrameValue("#el", "y")
	require.True(t, ok)
	assert.InDelta(t, 20.0, v, 1e-9)
}

func TestFadeDefaults(t *testing.T) {
	story, _ := newStory(t)
	addAnim(t, story, 5, Fade, nil)

	ctx := context.Background()
	require.NoError(t, story.GoToFrame(ctx, 0))
	v, ok := story.FrameValue("#el", "opacity")
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)

	require.NoError(t, story.GoToFrame(ctx, 4))
	v, _ = story.FrameValue("#el", "opacity")
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestColorshiftEndpoints(t *testing.T) {
	story, _ := newStory(t)
	addAnim(t, story, 4, Colorshift, timeline.Params{"from": "#000000", "to": "#ffffff"})

	ctx := context.Background()
	require.NoError(t, story.GoToFrame(ctx, 0))
	v, ok := story.FrameValue("#el", "color")
	require.True(t, ok)
	assert.Equal(t, "#000000", v)

	require.NoError(t, story.GoToFrame(ctx, 3))
	v, _ = story.FrameValue("#el", "color")
	assert.Equal(t, "#ffffff", v)
}

func TestValidators(t *testing.T) {
	_, reg := newStory(t)

	assert.NoError(t, reg.Validate(Move, timeline.Params{"from": 0.0, "to": 1.0}))
	assert.Error(t, reg.Validate(Move, timeline.Params{"from": "wat"}))
	assert.Error(t, reg.Validate(Move, timeline.Params{"ease": "zigzag"}))

	assert.NoError(t, reg.Validate(Colorshift, timeline.Params{"from": "#000000", "to": "#ffffff"}))
	assert.Error(t, reg.Validate(Colorshift, timeline.Params{"from": "#000000"}))
	assert.Error(t, reg.Validate(Colorshift, timeline.Params{"from": "red", "to": "#ffffff"}))

	assert.NoError(t, reg.Validate(AwaitSignal, timeline.Params{"signal": make(chan struct{})}))
	assert.Error(t, reg.Validate(AwaitSignal, timeline.Params{"signal": "nope"}))
}

func TestAwaitSignalSuspendsUntilSignaled(t *testing.T) {
	story, _ := newStory(t)
	ch := make(chan struct{})
	addAnim(t, story, 2, AwaitSignal, timeline.Params{"signal": ch})

	done := make(chan error, 1)
	go func() {
		done <- story.GoToFrame(context.Background(), 0)
	}()

	select {
	case err := <-done:
		t.Fatalf("render finished before the signal fired: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(ch)
	require.NoError(t, <-done)
}

func TestAwaitSignalTeleportStripsChannel(t *testing.T) {
	story, _ := newStory(t)
	ch := make(chan struct{})
	params := timeline.Params{"signal": ch}
	addAnim(t, story, 2, AwaitSignal, params)

	require.NoError(t, story.PrepareTeleport(context.Background()))
	assert.NotContains(t, params, "signal")
	assert.Equal(t, true, params["received"])

	// A rebuilt timeline must not re-suspend: INIT with no channel exits
	// immediately.
	require.NoError(t, story.GoToFrame(context.Background(), 0))
}
