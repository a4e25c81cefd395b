package timeline

import (
	"context"
	"time"
)

// Request is a frame-range render request. All fields are optional: the
// zero value renders the whole timeline.
type Request struct {
	// ID identifies the request in logs. Generated if empty.
	ID string

	// Pos is the starting global frame. Negative means "default": the
	// start of StartScene if set, otherwise frame 0.
	Pos int

	// Count is the number of frames to render. Zero or negative means
	// "rest of the timeline from Pos", scoped by EndScene if given.
	Count int

	// StartScene and EndScene scope the window by scene name.
	StartScene string
	EndScene   string

	// Dir is the render direction. Zero defaults to +1. Reverse playback
	// (-1) is structurally supported by the data model but rejected at
	// invocation time as a documented limitation.
	Dir int

	// Seek skips the self-paced wait; used by GoToFrame.
	Seek bool
}

// Render runs the render-stage state machine over the requested window.
// Calling Render while a render is already in flight does not pre-empt it:
// the new request is queued FIFO and runs once the current one finishes.
// When a render reaches the finished state (or is aborted), queued
// requests are flushed in order before Render returns.
func (s *Story) Render(ctx context.Context, req Request) error {
	if s.state == stateRendering {
		if req.ID == "" {
			req.ID = s.idGen.Generate()
		}
		s.pending = append(s.pending, req)
		s.log.Info("render queued", "id", req.ID, "pending", len(s.pending))
		return nil
	}

	cur := req
	for {
		if err := s.renderOne(ctx, cur); err != nil {
			return err
		}
		if len(s.pending) == 0 {
			return nil
		}
		cur = s.pending[0]
		s.pending = s.pending[1:]
	}
}

// GoToFrame renders exactly one frame at position p with immediate timing.
// Calling it twice with the same position yields identical observable
// state (same current scene, same per-property values): per-frame
// resolution is pure. Fails with AlreadyRendering mid-render.
func (s *Story) GoToFrame(ctx context.Context, p int) error {
	if s.state == stateRendering {
		return NewAlreadyRenderingError("gotoFrame")
	}
	if p < 0 || p >= s.FrameCount() {
		return NewOutOfScopeError(p, s.FrameCount())
	}
	return s.Render(ctx, Request{Pos: p, Count: 1, Seek: true})
}

// Abort transitions the state machine directly to finished from any stage.
// The frame position is not rewound and no partially-applied per-frame
// side effects are rolled back; queued requests are still flushed by the
// in-flight Render call. Abort outside a render is a no-op.
func (s *Story) Abort() {
	if s.state != stateRendering {
		return
	}
	s.aborted = true
	s.log.Info("render abort requested", "frame", s.renderFramePos, "stage", s.stage.String())
}

// resolveWindow computes the [pos, end] window for a request.
func (s *Story) resolveWindow(req Request) (pos, end int, err error) {
	total := s.FrameCount()

	pos = req.Pos
	if pos < 0 {
		pos = 0
		if req.StartScene != "" {
			sc, _, ok := s.SceneByName(req.StartScene)
			if !ok {
				return 0, 0, NewConfigurationError("unknown start scene %q", req.StartScene)
			}
			pos = sc.StoryFrameStart()
		}
	}

	switch {
	case req.Count > 0:
		end = pos + req.Count - 1
	case req.EndScene != "":
		sc, _, ok := s.SceneByName(req.EndScene)
		if !ok {
			return 0, 0, NewConfigurationError("unknown end scene %q", req.EndScene)
		}
		end = sc.StoryFrameStart() + sc.FrameCount() - 1
	default:
		end = total - 1
	}

	if pos < 0 || pos >= total {
		return 0, 0, NewOutOfScopeError(pos, total)
	}
	if end < pos || end >= total {
		return 0, 0, NewOutOfScopeError(end, total)
	}
	return pos, end, nil
}

// renderOne executes the state machine for a single request. Entering a
// render resets the stage cursor and clears the wait queue.
func (s *Story) renderOne(ctx context.Context, req Request) error {
	if req.Dir < 0 {
		return NewUnsupportedError("render", "reverse playback is not yet supported")
	}
	if req.ID == "" {
		req.ID = s.idGen.Generate()
	}

	pos, end, err := s.resolveWindow(req)
	if err != nil {
		return err
	}

	s.state = stateRendering
	s.stage = StageTimestamp
	s.renderDir = 1
	s.renderFramePos = pos
	s.renderFrameEnd = end
	s.waits.Clear()
	s.aborted = false
	s.active = make(map[*Animation]bool)
	defer func() { s.state = stateIdle }()

	s.log.Info("render starting",
		"id", req.ID,
		"pos", pos,
		"end", end,
		"agent", s.agent != nil,
	)

	hasAgent := s.agent != nil
	var frameStart time.Time

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.aborted {
			s.log.Info("render finished (aborted)", "id", req.ID, "frame", s.renderFramePos)
			return nil
		}

		switch s.stage {
		case StageTimestamp:
			frameStart = s.clock.Now()

		case StageSeek:
			if err := s.seekFrame(ctx); err != nil {
				return err
			}

		case StageReserved:
			// No work; kept in the transition table for stage-numbering
			// stability.

		case StageFlyover:
			if err := s.dispatchFlyovers(ctx); err != nil {
				return err
			}

		case StageBeforeHook:
			if s.BeforeFrame != nil {
				s.BeforeFrame(s.renderFramePos)
			}

		case StageSceneRender:
			if err := s.renderScene(ctx); err != nil {
				return err
			}

		case StageSchedule:
			if hasAgent {
				if err := s.agent.FrameRendered(s.renderFramePos); err != nil {
					return err
				}
				if err := s.agent.AwaitRenderDone(ctx); err != nil {
					return err
				}
			} else if !req.Seek {
				wait := s.frameDuration() - s.clock.Now().Sub(frameStart)
				if wait < time.Millisecond {
					wait = time.Millisecond
				}
				if err := s.clock.Sleep(ctx, wait); err != nil {
					return err
				}
			}

		case StageAfterHook:
			if s.AfterFrame != nil {
				s.AfterFrame(s.renderFramePos)
			}

		case StageAdvance:
			if s.renderFramePos == s.renderFrameEnd {
				s.log.Info("render finished", "id", req.ID, "frames", end-pos+1)
				return nil
			}
			s.renderFramePos += s.renderDir
		}

		s.stage = s.stage.next(hasAgent)
	}
}

// seekFrame resolves the owning scene for the current position and manages
// animation activation. Tasks of a newly active animation get their INIT
// stage, including any suspensions, before ANIME_LOOP runs for the same
// frame.
func (s *Story) seekFrame(ctx context.Context) error {
	idx, ok := s.sceneAt(s.renderFramePos)
	if !ok {
		return NewOutOfScopeError(s.renderFramePos, s.FrameCount())
	}
	s.currentScene = idx
	sc := s.scenes[idx]
	local := s.renderFramePos - sc.StoryFrameStart()

	tc := &TaskContext{Story: s, Frame: s.renderFramePos, Local: local, Args: s.Args, Waits: s.waits}

	for _, a := range sc.Animations {
		activeNow := a.ActiveAt(local)
		wasActive := s.active[a]

		if activeNow && !wasActive {
			s.active[a] = true
			a.resetStages()
			for _, t := range a.Tasks {
				if err := s.dispatcher.Dispatch(tc, a, t, TaskInit); err != nil {
					return err
				}
			}
		} else if !activeNow && wasActive {
			delete(s.active, a)
		}
	}

	// INIT must complete, including suspensions, before this frame's
	// ANIME_LOOP stage.
	return s.waits.Drain(ctx)
}

func (s *Story) dispatchFlyovers(ctx context.Context) error {
	if len(s.flyovers) == 0 {
		return nil
	}
	sc := s.CurrentScene()
	local := 0
	if sc != nil {
		local = s.renderFramePos - sc.StoryFrameStart()
	}
	tc := &TaskContext{Story: s, Frame: s.renderFramePos, Local: local, Args: s.Args, Waits: s.waits}
	for _, t := range s.flyovers {
		if err := s.dispatcher.Dispatch(tc, nil, t, TaskAnimeLoop); err != nil {
			return err
		}
	}
	return s.waits.Drain(ctx)
}

// renderScene resolves the declared properties of every active animation
// and dispatches their per-frame tasks. Expression failures mark the
// property unresolved and log a warning; the frame loop's forward progress
// takes priority over per-property accuracy.
func (s *Story) renderScene(ctx context.Context) error {
	sc := s.CurrentScene()
	if sc == nil {
		return nil
	}
	local := s.renderFramePos - sc.StoryFrameStart()
	s.frameValues = make(map[string]map[string]any)

	tc := &TaskContext{Story: s, Frame: s.renderFramePos, Local: local, Args: s.Args, Waits: s.waits}

	for _, a := range sc.Animations {
		if !s.active[a] {
			continue
		}
		s.resolveProperties(a, local)
		for _, t := range a.Tasks {
			if err := s.dispatcher.Dispatch(tc, a, t, TaskAnimeLoop); err != nil {
				return err
			}
		}
	}
	return s.waits.Drain(ctx)
}

// resolveProperties computes the per-frame value of each declared property
// change on an active animation.
func (s *Story) resolveProperties(a *Animation, local int) {
	t := 0.0
	if a.Duration > 1 {
		t = float64(local-a.Start) / float64(a.Duration-1)
	}
	env := s.exprEnv(local, a, t)

	for _, pc := range a.Properties {
		easeFn, ok := EaseByName(pc.Ease)
		if !ok {
			s.log.Warn("unknown easing curve, property unresolved",
				"selector", a.Selector, "property", pc.Name, "ease", pc.Ease)
			s.setFrameValue(a.Selector, pc.Name, Unresolved)
			continue
		}
		eased := easeFn(t)

		from, errFrom := s.resolveOperand(pc.From, env)
		to, errTo := s.resolveOperand(pc.To, env)
		if errFrom != nil || errTo != nil {
			err := errFrom
			if err == nil {
				err = errTo
			}
			s.log.Warn("expression failed, property unresolved",
				"selector", a.Selector, "property", pc.Name, "frame", s.renderFramePos, "error", err)
			s.setFrameValue(a.Selector, pc.Name, Unresolved)
			continue
		}

		s.setFrameValue(a.Selector, pc.Name, interpolate(from, to, eased))
	}
}

// interpolate blends two resolved operands. Numbers interpolate linearly
// on the eased factor; strings step from from to to at completion.
func interpolate(from, to any, eased float64) any {
	fn, fok := from.(float64)
	tn, tok := to.(float64)
	if fok && tok {
		return fn + (tn-fn)*eased
	}
	if eased >= 1 {
		return to
	}
	return from
}
