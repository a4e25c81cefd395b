package teleport

import (
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagecast/stagecast/internal/timeline"
)

func holdTask(_ *timeline.TaskContext, _ *timeline.Animation, _ *timeline.WorkTask, _ timeline.Params, _ timeline.TaskStage) (timeline.TaskResult, error) {
	return timeline.TaskExit, nil
}

// traceTask appends stage firings to the *[]string in Args["events"].
func traceTask(tc *timeline.TaskContext, _ *timeline.Animation, _ *timeline.WorkTask, _ timeline.Params, stage timeline.TaskStage) (timeline.TaskResult, error) {
	sink, _ := tc.Args["events"].(*[]string)
	switch stage {
	case timeline.TaskInit:
		if sink != nil {
			*sink = append(*sink, fmt.Sprintf("init:%d", tc.Frame))
		}
		return timeline.TaskExit, nil
	case timeline.TaskAnimeLoop:
		if sink != nil {
			*sink = append(*sink, fmt.Sprintf("loop:%d", tc.Frame))
		}
		return timeline.TaskContinue, nil
	}
	return timeline.TaskExit, nil
}

// signalTask holds a live channel in its params and drops it during the
// TELEPORT stage, leaving only serializable state behind.
func signalTask(_ *timeline.TaskContext, _ *timeline.Animation, _ *timeline.WorkTask, params timeline.Params, stage timeline.TaskStage) (timeline.TaskResult, error) {
	if stage == timeline.TaskTeleport {
		delete(params, "ch")
		params["armed"] = true
	}
	return timeline.TaskExit, nil
}

func holdRegistry(t *testing.T) *timeline.Registry {
	t.Helper()
	reg := timeline.NewRegistry()
	require.NoError(t, reg.Register("hold", holdTask))
	return reg
}

// goldenStory builds the fixed single-scene timeline the golden and hash
// tests snapshot.
func goldenStory(t *testing.T, reg *timeline.Registry) *timeline.Story {
	t.Helper()
	story, err := timeline.New(30, reg, timeline.WithSize(640, 360))
	require.NoError(t, err)
	story.SetGlobal("speed", 2)

	sc := &timeline.Scene{
		Name:           "intro",
		Selector:       "#intro",
		Style:          map[string]string{"background": "black", "color": "white"},
		DeclaredFrames: 10,
		Animations: []*timeline.Animation{{
			Selector: "#box",
			Start:    0,
			Duration: 10,
			Properties: []timeline.PropertyChange{
				{Name: "x", From: "0", To: "90", Ease: "linear"},
			},
			Tasks: []*timeline.WorkTask{
				timeline.NewWorkTask("hold", timeline.Params{"label": "a"}),
			},
		}},
	}
	require.NoError(t, story.AddScene(sc))
	return story
}

func TestTakeGolden(t *testing.T) {
	story := goldenStory(t, holdRegistry(t))

	snap, err := Take(context.Background(), story, Options{})
	require.NoError(t, err)

	payload, err := snap.Encode(true)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "snapshot-basic", []byte(payload))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	story := goldenStory(t, holdRegistry(t))

	snap, err := Take(context.Background(), story, Options{RenderPos: 2, RenderCount: 5})
	require.NoError(t, err)

	payload, err := snap.Encode(false)
	require.NoError(t, err)

	got, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Equal(t, 2, got.Meta.RenderPos)
	assert.Equal(t, 5, got.Meta.RenderCount)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode("{not json")
	assert.Error(t, err)

	_, err = Decode(`{"meta":{"version":99,"frame_rate":30,"frame_count":1},"scenes":[]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestRoundTripHashEquality(t *testing.T) {
	reg := holdRegistry(t)
	src := goldenStory(t, reg)

	snap, err := Take(context.Background(), src, Options{})
	require.NoError(t, err)
	srcHash, err := Hash(snap)
	require.NoError(t, err)

	// Wire round trip does not perturb the hash.
	payload, err := snap.Encode(false)
	require.NoError(t, err)
	decoded, err := Decode(payload)
	require.NoError(t, err)
	decodedHash, err := Hash(decoded)
	require.NoError(t, err)
	assert.Equal(t, srcHash, decodedHash)

	// Neither does rebuilding and re-snapshotting.
	dst, err := timeline.New(30, reg, timeline.WithSize(640, 360))
	require.NoError(t, err)
	require.NoError(t, Rebuild(dst, decoded))

	resnap, err := Take(context.Background(), dst, Options{})
	require.NoError(t, err)
	dstHash, err := Hash(resnap)
	require.NoError(t, err)
	assert.Equal(t, srcHash, dstHash)
}

func TestHashDetectsParamChange(t *testing.T) {
	reg := holdRegistry(t)
	story := goldenStory(t, reg)

	snap, err := Take(context.Background(), story, Options{})
	require.NoError(t, err)
	before, err := Hash(snap)
	require.NoError(t, err)

	snap.Scenes[0].Animations[0].Tasks[0].Params["label"] = "b"
	after, err := Hash(snap)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestRebuildPreservesHookSequence(t *testing.T) {
	reg := timeline.NewRegistry()
	require.NoError(t, reg.Register("trace", traceTask))

	build := func() *timeline.Story {
		story, err := timeline.New(25, reg)
		require.NoError(t, err)
		require.NoError(t, story.AddScene(&timeline.Scene{
			Name:           "one",
			Selector:       "#one",
			DeclaredFrames: 3,
			Animations: []*timeline.Animation{{
				Selector: "#a",
				Start:    0,
				Duration: 3,
				Tasks:    []*timeline.WorkTask{timeline.NewWorkTask("trace", nil)},
			}},
		}))
		require.NoError(t, story.AddScene(&timeline.Scene{
			Name:           "two",
			Selector:       "#two",
			DeclaredFrames: 2,
			Animations: []*timeline.Animation{{
				Selector: "#b",
				Start:    1,
				Duration: 1,
				Tasks:    []*timeline.WorkTask{timeline.NewWorkTask("trace", nil)},
			}},
		}))
		return story
	}

	play := func(story *timeline.Story) []string {
		var events []string
		story.Args["events"] = &events
		story.BeforeFrame = func(frame int) {
			events = append(events, fmt.Sprintf("before:%d", frame))
		}
		require.NoError(t, story.Render(context.Background(), timeline.Request{Seek: true}))
		return events
	}

	src := build()
	snap, err := Take(context.Background(), src, Options{})
	require.NoError(t, err)

	dst, err := timeline.New(25, reg)
	require.NoError(t, err)
	require.NoError(t, Rebuild(dst, snap))
	require.Equal(t, src.FrameCount(), dst.FrameCount())

	assert.Equal(t, play(src), play(dst))
}

func TestTeleportStageNormalizesParams(t *testing.T) {
	reg := timeline.NewRegistry()
	require.NoError(t, reg.Register("signal", signalTask))

	story, err := timeline.New(30, reg)
	require.NoError(t, err)
	require.NoError(t, story.AddScene(&timeline.Scene{
		Selector:       "#s",
		DeclaredFrames: 1,
		Animations: []*timeline.Animation{{
			Selector: "#s",
			Start:    0,
			Duration: 1,
			Tasks: []*timeline.WorkTask{
				timeline.NewWorkTask("signal", timeline.Params{"ch": make(chan struct{})}),
			},
		}},
	}))

	snap, err := Take(context.Background(), story, Options{})
	require.NoError(t, err)

	params := snap.Scenes[0].Animations[0].Tasks[0].Params
	assert.NotContains(t, params, "ch")
	assert.Equal(t, true, params["armed"])

	// The normalized snapshot must encode and hash without error.
	_, err = snap.Encode(false)
	require.NoError(t, err)
	_, err = Hash(snap)
	require.NoError(t, err)
}

func TestRebuildUnknownHandler(t *testing.T) {
	story := goldenStory(t, holdRegistry(t))
	snap, err := Take(context.Background(), story, Options{})
	require.NoError(t, err)

	// Receiving side is missing the "hold" registration.
	dst, err := timeline.New(30, timeline.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, dst.AddScene(&timeline.Scene{Selector: "#keep", DeclaredFrames: 1}))

	err = Rebuild(dst, snap)
	require.Error(t, err)
	assert.True(t, timeline.IsConfigurationError(err))

	// Validation fails before anything is cleared or added.
	assert.Equal(t, 1, dst.SceneCount())
}

func TestRebuildFrameRateMismatch(t *testing.T) {
	reg := holdRegistry(t)
	story := goldenStory(t, reg)
	snap, err := Take(context.Background(), story, Options{})
	require.NoError(t, err)

	dst, err := timeline.New(60, reg)
	require.NoError(t, err)

	err = Rebuild(dst, snap)
	require.Error(t, err)
	assert.True(t, timeline.IsConfigurationError(err))
}

func TestRebuildRestoresGlobalsAndFlyovers(t *testing.T) {
	reg := holdRegistry(t)
	src := goldenStory(t, reg)
	src.AddFlyover(timeline.NewWorkTask("hold", timeline.Params{"scope": "story"}))

	snap, err := Take(context.Background(), src, Options{})
	require.NoError(t, err)

	dst, err := timeline.New(30, reg, timeline.WithSize(640, 360))
	require.NoError(t, err)
	require.NoError(t, Rebuild(dst, snap))

	assert.Equal(t, map[string]float64{"speed": 2}, dst.Globals())
	require.Len(t, dst.Flyovers(), 1)
	assert.Equal(t, "hold", dst.Flyovers()[0].Handler)
}
