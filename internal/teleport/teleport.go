package teleport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stagecast/stagecast/internal/timeline"
)

// FormatVersion identifies the snapshot wire format.
const FormatVersion = 1

// Meta carries the timeline-level facts a receiver needs before replaying.
type Meta struct {
	Version    int `json:"version"`
	FrameRate  int `json:"frame_rate"`
	FrameCount int `json:"frame_count"`
	Width      int `json:"width,omitempty"`
	Height     int `json:"height,omitempty"`

	// RenderPos and RenderCount scope the window the receiver should
	// replay; zero values mean the whole timeline.
	RenderPos   int `json:"render_pos,omitempty"`
	RenderCount int `json:"render_count,omitempty"`
}

// PropertySnapshot mirrors timeline.PropertyChange.
type PropertySnapshot struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
	Ease string `json:"ease,omitempty"`
}

// TaskSnapshot carries a task declaration by handler name. Params must
// already be in serializable form (the TELEPORT dispatch stage ran).
type TaskSnapshot struct {
	Handler string          `json:"handler"`
	Params  timeline.Params `json:"params,omitempty"`
}

// AnimationSnapshot mirrors a full animation declaration.
type AnimationSnapshot struct {
	Selector   string             `json:"selector"`
	Start      int                `json:"start"`
	Duration   int                `json:"duration"`
	Properties []PropertySnapshot `json:"properties,omitempty"`
	Tasks      []TaskSnapshot     `json:"tasks,omitempty"`
}

// SceneSnapshot carries a scene with the markup and computed style a
// remote layout needs to reproduce it.
type SceneSnapshot struct {
	Name           string              `json:"name,omitempty"`
	Selector       string              `json:"selector"`
	Markup         string              `json:"markup,omitempty"`
	Style          map[string]string   `json:"style,omitempty"`
	DeclaredFrames int                 `json:"declared_frames,omitempty"`
	Animations     []AnimationSnapshot `json:"animations,omitempty"`
}

// Snapshot is the acyclic value tree a teleport transmits.
type Snapshot struct {
	Meta     Meta               `json:"meta"`
	Globals  map[string]float64 `json:"globals,omitempty"`
	Scenes   []SceneSnapshot    `json:"scenes"`
	Flyovers []TaskSnapshot     `json:"flyovers,omitempty"`
}

// Options scopes a snapshot.
type Options struct {
	RenderPos   int
	RenderCount int
}

// Take prepares and captures a snapshot of the story. The TELEPORT
// dispatch stage runs over every task first, giving handlers the chance to
// normalize live values (channels, function references) into serializable
// form.
func Take(ctx context.Context, story *timeline.Story, opts Options) (*Snapshot, error) {
	if err := story.PrepareTeleport(ctx); err != nil {
		return nil, fmt.Errorf("prepare teleport: %w", err)
	}

	width, height := story.Size()
	snap := &Snapshot{
		Meta: Meta{
			Version:     FormatVersion,
			FrameRate:   story.FrameRate(),
			FrameCount:  story.FrameCount(),
			Width:       width,
			Height:      height,
			RenderPos:   opts.RenderPos,
			RenderCount: opts.RenderCount,
		},
		Scenes: make([]SceneSnapshot, 0, story.SceneCount()),
	}
	if g := story.Globals(); len(g) > 0 {
		snap.Globals = g
	}

	for _, sc := range story.Scenes() {
		ss := SceneSnapshot{
			Name:           sc.Name,
			Selector:       sc.Selector,
			Markup:         sc.Markup,
			Style:          sc.Style,
			DeclaredFrames: sc.DeclaredFrames,
		}
		for _, a := range sc.Animations {
			as := AnimationSnapshot{
				Selector: a.Selector,
				Start:    a.Start,
				Duration: a.Duration,
			}
			for _, p := range a.Properties {
				as.Properties = append(as.Properties, PropertySnapshot(p))
			}
			for _, t := range a.Tasks {
				as.Tasks = append(as.Tasks, TaskSnapshot{Handler: t.Handler, Params: t.Params})
			}
			ss.Animations = append(ss.Animations, as)
		}
		snap.Scenes = append(snap.Scenes, ss)
	}

	for _, t := range story.Flyovers() {
		snap.Flyovers = append(snap.Flyovers, TaskSnapshot{Handler: t.Handler, Params: t.Params})
	}

	return snap, nil
}

// Encode serializes the snapshot as a text payload. With pretty set the
// output is indented for humans; otherwise it is a single line suitable
// for the capture-agent channel.
func (s *Snapshot) Encode(pretty bool) (string, error) {
	var (
		raw []byte
		err error
	)
	if pretty {
		raw, err = json.MarshalIndent(s, "", "  ")
	} else {
		raw, err = json.Marshal(s)
	}
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(raw), nil
}

// Decode parses a snapshot payload.
func Decode(payload string) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Meta.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d (want %d)", s.Meta.Version, FormatVersion)
	}
	return &s, nil
}

// Rebuild reconstructs the snapshot's scenes and animations into story, in
// original order, re-binding task handler names against the story's
// registry. Every handler name must already be registered on the receiving
// side; an unknown name fails before any scene is added.
func Rebuild(story *timeline.Story, snap *Snapshot) error {
	if snap.Meta.FrameRate != story.FrameRate() {
		return timeline.NewConfigurationError(
			"snapshot frame rate %d does not match story frame rate %d",
			snap.Meta.FrameRate, story.FrameRate())
	}

	reg := story.Registry()
	for _, ss := range snap.Scenes {
		for _, as := range ss.Animations {
			for _, ts := range as.Tasks {
				if _, ok := reg.Resolve(ts.Handler); !ok {
					return timeline.NewConfigurationError("snapshot references unregistered task %q", ts.Handler)
				}
			}
		}
	}
	for _, ts := range snap.Flyovers {
		if _, ok := reg.Resolve(ts.Handler); !ok {
			return timeline.NewConfigurationError("snapshot references unregistered flyover %q", ts.Handler)
		}
	}

	if err := story.Clear(); err != nil {
		return err
	}

	for name, v := range snap.Globals {
		story.SetGlobal(name, v)
	}

	for _, ss := range snap.Scenes {
		sc := &timeline.Scene{
			Name:           ss.Name,
			Selector:       ss.Selector,
			Markup:         ss.Markup,
			Style:          ss.Style,
			DeclaredFrames: ss.DeclaredFrames,
		}
		for _, as := range ss.Animations {
			a := &timeline.Animation{
				Selector: as.Selector,
				Start:    as.Start,
				Duration: as.Duration,
			}
			for _, p := range as.Properties {
				a.Properties = append(a.Properties, timeline.PropertyChange(p))
			}
			for _, ts := range as.Tasks {
				a.Tasks = append(a.Tasks, timeline.NewWorkTask(ts.Handler, ts.Params))
			}
			sc.Animations = append(sc.Animations, a)
		}
		if err := story.AddScene(sc); err != nil {
			return err
		}
	}

	for _, ts := range snap.Flyovers {
		story.AddFlyover(timeline.NewWorkTask(ts.Handler, ts.Params))
	}

	// Verify the rebuilt timeline schedules identically.
	if got, want := story.FrameCount(), snap.Meta.FrameCount; got != want {
		return timeline.NewConfigurationError("rebuilt frame count %d does not match snapshot %d", got, want)
	}
	return nil
}
