package timeline

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/stagecast/stagecast/internal/expr"
)

// Unresolved is the marker a property resolves to when its expression
// fails for a frame. Expression failures are logged and never abort an
// in-flight render.
const Unresolved = "unresolved"

// Agent is the capture-agent side of the schedule stage. The core
// tolerates its absence entirely (nil agent means self-paced timing).
type Agent interface {
	// FrameRendered tells the agent a frame is ready for capture.
	FrameRendered(frame int) error

	// AwaitRenderDone blocks until the agent acknowledges the frame.
	AwaitRenderDone(ctx context.Context) error
}

type renderState int

const (
	stateIdle renderState = iota
	stateRendering
)

// Story owns the ordered list of scenes, the render-stage state machine
// and the capture communication channel. One Story drives one timeline;
// it is caller-owned, created once and alive until explicitly cleared.
type Story struct {
	frameRate int
	width     int
	height    int

	scenes       []*Scene
	currentScene int // index into scenes, -1 when unresolved

	state     renderState
	stage     RenderStage
	renderDir int

	renderFramePos int
	renderFrameEnd int

	// Frame-count cache. Never trusted while dirty is set; any structural
	// mutation (scene add/remove, animation add) sets it.
	frameCount int
	dirty      bool

	waits       *WaitQueue
	teleporting bool
	aborted     bool

	registry   *Registry
	dispatcher *Dispatcher
	flyovers   []*WorkTask

	// Args is the shared mutable context object visited by every task and
	// scene during a frame. By convention it is mutated only during the
	// currently active stage and never read by a not-yet-reached stage.
	Args map[string]any

	// Globals feed the expression evaluator's variable table and travel
	// with teleport snapshots.
	globals map[string]float64

	// BeforeFrame and AfterFrame are the per-frame hooks. AfterFrame fires
	// on the capture-agent path only.
	BeforeFrame func(frame int)
	AfterFrame  func(frame int)

	pending []Request

	clock TimeSource
	idGen RequestIDGenerator
	agent Agent
	log   *slog.Logger

	// active tracks which animations are currently inside their frame
	// range, so INIT fires exactly once per activation.
	active map[*Animation]bool

	// frameValues holds the per-frame resolved property values:
	// selector -> property -> value. Rebuilt every scene-render stage.
	frameValues map[string]map[string]any
}

// Option configures a Story at construction.
type Option func(*Story)

// WithSize sets the timeline's pixel dimensions.
func WithSize(width, height int) Option {
	return func(s *Story) {
		s.width = width
		s.height = height
	}
}

// WithTimeSource overrides the wall clock (tests use FakeTime).
func WithTimeSource(ts TimeSource) Option {
	return func(s *Story) { s.clock = ts }
}

// WithIDGenerator overrides the render-request ID generator.
func WithIDGenerator(g RequestIDGenerator) Option {
	return func(s *Story) { s.idGen = g }
}

// WithAgent attaches a capture agent to the schedule stage.
func WithAgent(a Agent) Option {
	return func(s *Story) { s.agent = a }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Story) { s.log = l }
}

// New creates a Story with the given frame rate and task registry.
// The frame rate is immutable after creation; an invalid rate or invalid
// dimensions fail immediately with a configuration error.
func New(frameRate int, registry *Registry, opts ...Option) (*Story, error) {
	if frameRate <= 0 {
		return nil, NewConfigurationError("frame rate must be positive, got %d", frameRate)
	}
	if registry == nil {
		return nil, NewConfigurationError("task registry must not be nil")
	}

	s := &Story{
		frameRate:    frameRate,
		currentScene: -1,
		renderDir:    1,
		dirty:        true,
		waits:        NewWaitQueue(),
		registry:     registry,
		dispatcher:   NewDispatcher(registry),
		Args:         make(map[string]any),
		globals:      make(map[string]float64),
		clock:        RealTime(),
		idGen:        UUIDv7Generator{},
		log:          slog.Default(),
		active:       make(map[*Animation]bool),
		frameValues:  make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.width < 0 || s.height < 0 {
		return nil, NewConfigurationError("dimensions must be non-negative, got %dx%d", s.width, s.height)
	}
	return s, nil
}

// FrameRate returns the immutable frame rate.
func (s *Story) FrameRate() int { return s.frameRate }

// Size returns the configured dimensions.
func (s *Story) Size() (width, height int) { return s.width, s.height }

// Registry returns the task registry the story dispatches against.
func (s *Story) Registry() *Registry { return s.registry }

// Waits returns the story's wait queue.
func (s *Story) Waits() *WaitQueue { return s.waits }

// IsRendering reports whether a render is in flight.
func (s *Story) IsRendering() bool { return s.state == stateRendering }

// IsTeleporting reports whether a teleport snapshot is being prepared.
func (s *Story) IsTeleporting() bool { return s.teleporting }

// Stage returns the current render-stage cursor. Meaningful only while
// rendering.
func (s *Story) Stage() RenderStage { return s.stage }

// SetGlobal sets a global expression variable.
func (s *Story) SetGlobal(name string, value float64) {
	s.globals[name] = value
}

// Globals returns a copy of the global expression variables.
func (s *Story) Globals() map[string]float64 {
	out := make(map[string]float64, len(s.globals))
	for k, v := range s.globals {
		out[k] = v
	}
	return out
}

// AddScene appends a scene to the playback order. Fails with
// AlreadyRendering while a render is in flight.
func (s *Story) AddScene(sc *Scene) error {
	if s.state == stateRendering {
		return NewAlreadyRenderingError("addScene")
	}
	s.scenes = append(s.scenes, sc)
	s.dirty = true
	s.log.Debug("scene added", "name", sc.Name, "index", len(s.scenes)-1)
	return nil
}

// RemoveScene removes the scene at index. Indices of later scenes shift
// down, which is why scene indices are stable only until a removal.
func (s *Story) RemoveScene(index int) error {
	if s.state == stateRendering {
		return NewAlreadyRenderingError("removeScene")
	}
	if index < 0 || index >= len(s.scenes) {
		return NewOutOfScopeError(index, len(s.scenes))
	}
	s.scenes = append(s.scenes[:index], s.scenes[index+1:]...)
	s.currentScene = -1
	s.dirty = true
	return nil
}

// AddAnimation appends an animation to the scene at sceneIndex.
func (s *Story) AddAnimation(sceneIndex int, a *Animation) error {
	if s.state == stateRendering {
		return NewAlreadyRenderingError("addAnimation")
	}
	if sceneIndex < 0 || sceneIndex >= len(s.scenes) {
		return NewOutOfScopeError(sceneIndex, len(s.scenes))
	}
	sc := s.scenes[sceneIndex]
	sc.Animations = append(sc.Animations, a)
	s.dirty = true
	return nil
}

// AddFlyover registers a story-level task invoked every frame regardless
// of which scene is active.
func (s *Story) AddFlyover(t *WorkTask) {
	s.flyovers = append(s.flyovers, t)
}

// Flyovers returns the registered flyover tasks in order.
func (s *Story) Flyovers() []*WorkTask { return s.flyovers }

// SceneCount returns the number of scenes.
func (s *Story) SceneCount() int { return len(s.scenes) }

// Scene returns the scene at index, or nil if out of range.
func (s *Story) Scene(index int) *Scene {
	if index < 0 || index >= len(s.scenes) {
		return nil
	}
	return s.scenes[index]
}

// Scenes returns the scenes in playback order. The slice is shared; treat
// it as read-only.
func (s *Story) Scenes() []*Scene { return s.scenes }

// SceneByName returns the first scene with the given name.
func (s *Story) SceneByName(name string) (*Scene, int, bool) {
	for i, sc := range s.scenes {
		if sc.Name == name {
			return sc, i, true
		}
	}
	return nil, -1, false
}

// CurrentScene returns the scene owning the current frame position, or nil
// outside a render.
func (s *Story) CurrentScene() *Scene {
	return s.Scene(s.currentScene)
}

// FrameCount returns the total frame count, recomputing scene offsets if a
// structural mutation set the dirty flag. The invariant holds that scene
// i's storyFrameStart equals the sum of the frame counts of scenes 0..i-1.
func (s *Story) FrameCount() int {
	if s.dirty {
		total := 0
		for _, sc := range s.scenes {
			sc.storyFrameStart = total
			sc.frameCount = sc.computeFrameCount()
			total += sc.frameCount
		}
		s.frameCount = total
		s.dirty = false
	}
	return s.frameCount
}

// sceneAt resolves the scene owning a global frame position by linear
// scan. Scene counts are small; the scan is re-validated only when the
// dirty flag was set.
func (s *Story) sceneAt(global int) (int, bool) {
	s.FrameCount()
	for i, sc := range s.scenes {
		if sc.ContainsFrame(global) {
			return i, true
		}
	}
	return -1, false
}

// Clear removes all scenes, flyovers, globals and pending requests.
func (s *Story) Clear() error {
	if s.state == stateRendering {
		return NewAlreadyRenderingError("clear")
	}
	s.scenes = nil
	s.flyovers = nil
	s.pending = nil
	s.currentScene = -1
	s.globals = make(map[string]float64)
	s.Args = make(map[string]any)
	s.active = make(map[*Animation]bool)
	s.frameValues = make(map[string]map[string]any)
	s.dirty = true
	return nil
}

// FrameValue returns the resolved value of a property for the most
// recently rendered frame, or (nil, false) if it was not resolved.
func (s *Story) FrameValue(selector, property string) (any, bool) {
	props, ok := s.frameValues[selector]
	if !ok {
		return nil, false
	}
	v, ok := props[property]
	return v, ok
}

// FrameValues returns the full per-frame value map (selector -> property
// -> value) for the most recently rendered frame.
func (s *Story) FrameValues() map[string]map[string]any {
	return s.frameValues
}

func (s *Story) setFrameValue(selector, property string, value any) {
	props, ok := s.frameValues[selector]
	if !ok {
		props = make(map[string]any)
		s.frameValues[selector] = props
	}
	props[property] = value
}

// exprEnv builds the per-frame expression environment: default constants
// and functions, story globals, and the frame variables.
func (s *Story) exprEnv(local int, anim *Animation, t float64) expr.Env {
	env := expr.DefaultEnv()
	for k, v := range s.globals {
		env.Vars[k] = v
	}
	env.Vars["frame"] = float64(s.renderFramePos)
	env.Vars["local"] = float64(local)
	env.Vars["fps"] = float64(s.frameRate)
	env.Vars["t"] = t
	if anim != nil {
		env.Vars["start"] = float64(anim.Start)
		env.Vars["duration"] = float64(anim.Duration)
	}
	return env
}

// resolveOperand turns a declared property operand into a value: a
// "="-sigiled string is evaluated, a parseable number becomes float64,
// anything else stays a literal string.
func (s *Story) resolveOperand(raw string, env expr.Env) (any, error) {
	if expr.IsExpression(raw) {
		return expr.Evaluate(expr.Strip(raw), env)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	return raw, nil
}

// PrepareTeleport runs the TELEPORT dispatch stage over every task (scene
// animations and flyovers) so handlers can normalize live values into
// serializable form, then drains any waits they registered. The
// teleporting flag is set for the duration.
func (s *Story) PrepareTeleport(ctx context.Context) error {
	if s.state == stateRendering {
		return NewAlreadyRenderingError("teleport")
	}
	s.teleporting = true
	defer func() { s.teleporting = false }()

	tc := &TaskContext{Story: s, Frame: s.renderFramePos, Args: s.Args, Waits: s.waits}
	for _, sc := range s.scenes {
		for _, a := range sc.Animations {
			for _, t := range a.Tasks {
				if err := s.dispatcher.Dispatch(tc, a, t, TaskTeleport); err != nil {
					return err
				}
			}
		}
	}
	for _, t := range s.flyovers {
		if err := s.dispatcher.Dispatch(tc, nil, t, TaskTeleport); err != nil {
			return err
		}
	}
	return s.waits.Drain(ctx)
}

// frameDuration returns the configured play speed: the wall-clock budget
// of a single frame.
func (s *Story) frameDuration() time.Duration {
	return time.Second / time.Duration(s.frameRate)
}
