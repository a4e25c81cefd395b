package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stagecast/stagecast/internal/teleport"
	"github.com/stagecast/stagecast/internal/timeline"
)

// Session drives one render over the capture-agent channel. It satisfies
// timeline.Agent, so a Story constructed with WithAgent(session) blocks its
// schedule stage on the agent's per-frame acknowledgement.
type Session struct {
	in  io.Reader
	out io.Writer
	log *slog.Logger

	snapshotOnFinish bool

	writeMu sync.Mutex

	ready      chan struct{}
	readyOnce  sync.Once
	renderReq  chan struct{}
	renderDone chan struct{}
	exit       chan struct{}
	exitOnce   sync.Once
}

// SessionOption configures a Session at construction.
type SessionOption func(*Session)

// WithSnapshotOnFinish makes the session transmit a TELEPORT snapshot of
// the rendered story right before RENDER_FINISHED, so the agent can hand
// the timeline off to another runtime.
func WithSnapshotOnFinish() SessionOption {
	return func(s *Session) { s.snapshotOnFinish = true }
}

// NewSession creates a session over a reader/writer pair (typically the
// agent process's stdout/stdin).
func NewSession(in io.Reader, out io.Writer, log *slog.Logger, opts ...SessionOption) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		in:  in,
		out: out,
		log: log,

		ready:      make(chan struct{}),
		renderReq:  make(chan struct{}, 1),
		renderDone: make(chan struct{}, 1),
		exit:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FrameRendered implements timeline.Agent. An acknowledgement the agent
// sent ahead of this announcement is stale and does not count for it;
// every frame needs a fresh RENDER_DONE.
func (s *Session) FrameRendered(frame int) error {
	select {
	case <-s.renderDone:
		s.log.Warn("stale RENDER_DONE discarded", "frame", frame)
	default:
	}
	return s.send(Message{Command: CmdFrameRendered, Value: strconv.Itoa(frame)})
}

// AwaitRenderDone implements timeline.Agent. It blocks until the agent
// acknowledges the announced frame with RENDER_DONE.
func (s *Session) AwaitRenderDone(ctx context.Context) error {
	select {
	case <-s.renderDone:
		return nil
	case <-s.exit:
		return fmt.Errorf("agent exited mid-render")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendLog forwards a log line to the agent at the given protocol level
// (CmdLogMsg, CmdLogWarn or CmdLogError).
func (s *Session) SendLog(level Command, msg string) error {
	return s.send(Message{Command: level, Value: msg})
}

// SendTeleport transmits a compact-encoded snapshot payload.
func (s *Session) SendTeleport(payload string) error {
	return s.send(Message{Command: CmdTeleport, Value: payload})
}

// Run performs the full handshake and renders req through story: wait for
// READY, announce SET_FPS and SET_FRAME_COUNT, wait for RENDER, render with
// per-frame pacing, then RENDER_FINISHED and wait for EXIT.
func (s *Session) Run(ctx context.Context, story *timeline.Story, req timeline.Request) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(ctx) })
	g.Go(func() error {
		defer cancel()
		return s.drive(ctx, story, req)
	})
	g.Go(func() error {
		// Unblock the scanner when the drive finishes; a closable input
		// (pipe, socket) is the normal case.
		<-ctx.Done()
		if c, ok := s.in.(io.Closer); ok {
			c.Close()
		}
		return nil
	})
	return g.Wait()
}

func (s *Session) drive(ctx context.Context, story *timeline.Story, req timeline.Request) error {
	select {
	case <-s.ready:
	case <-s.exit:
		return fmt.Errorf("agent exited before READY")
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.send(Message{Command: CmdSetFPS, Value: strconv.Itoa(story.FrameRate())}); err != nil {
		return err
	}
	if err := s.send(Message{Command: CmdSetFrameCount, Value: strconv.Itoa(story.FrameCount())}); err != nil {
		return err
	}

	select {
	case <-s.renderReq:
	case <-s.exit:
		return fmt.Errorf("agent exited before RENDER")
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := story.Render(ctx, req); err != nil {
		s.sendBestEffort(Message{Command: CmdLogError, Value: err.Error()})
		return err
	}

	if s.snapshotOnFinish {
		snap, err := teleport.Take(ctx, story, teleport.Options{})
		if err != nil {
			return err
		}
		payload, err := snap.Encode(false)
		if err != nil {
			return err
		}
		if err := s.SendTeleport(payload); err != nil {
			return err
		}
	}

	if err := s.send(Message{Command: CmdRenderFinished}); err != nil {
		return err
	}

	select {
	case <-s.exit:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop pumps inbound lines until EXIT or channel close. Non-protocol
// lines are ignored.
func (s *Session) readLoop(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		msg, ok := Decode(scanner.Text())
		if !ok {
			continue
		}
		s.log.Debug("agent command", "cmd", string(msg.Command), "value", msg.Value)

		switch msg.Command {
		case CmdReady:
			s.readyOnce.Do(func() { close(s.ready) })
		case CmdRender:
			select {
			case s.renderReq <- struct{}{}:
			default:
			}
		case CmdRenderDone:
			select {
			case s.renderDone <- struct{}{}:
			default:
				s.log.Warn("unexpected RENDER_DONE dropped")
			}
		case CmdExit:
			s.exitOnce.Do(func() { close(s.exit) })
			return nil
		default:
			s.log.Warn("unknown agent command", "cmd", string(msg.Command))
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("agent channel: %w", err)
	}
	// EOF without EXIT: treat as an exit so a crashed agent does not hang
	// the render indefinitely.
	s.exitOnce.Do(func() { close(s.exit) })
	return nil
}

func (s *Session) send(m Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintln(s.out, m.Encode()); err != nil {
		return fmt.Errorf("agent channel write: %w", err)
	}
	return nil
}

func (s *Session) sendBestEffort(m Message) {
	if err := s.send(m); err != nil {
		s.log.Warn("agent channel write failed", "cmd", string(m.Command), "error", err)
	}
}
