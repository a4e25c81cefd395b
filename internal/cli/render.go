package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagecast/stagecast/internal/agent"
	"github.com/stagecast/stagecast/internal/timeline"
)

// RenderResult summarizes a completed render.
type RenderResult struct {
	Frames     int  `json:"frames"`
	FrameRate  int  `json:"frame_rate"`
	AgentPaced bool `json:"agent_paced"`
}

func (r RenderResult) String() string {
	pacing := "self-paced"
	if r.AgentPaced {
		pacing = "agent-paced"
	}
	return fmt.Sprintf("rendered %d frames @ %d fps (%s)", r.Frames, r.FrameRate, pacing)
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		withAgent    bool
		withTeleport bool
		pos          int
		count        int
		startScene   string
		endScene     string
		seek         bool
	)

	cmd := &cobra.Command{
		Use:   "render <storyboard.yaml>",
		Short: "Render a storyboard",
		Long: `Render a storyboard. Without --agent the loop self-paces from the frame
rate. With --agent the capture-agent protocol runs over stdin/stdout and
the agent acknowledges every frame.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := timeline.Request{
				Pos:        pos,
				Count:      count,
				StartScene: startScene,
				EndScene:   endScene,
				Seek:       seek,
			}
			return runRender(rootOpts, args[0], req, withAgent, withTeleport, cmd)
		},
	}

	cmd.Flags().BoolVar(&withAgent, "agent", false, "pace frames through a capture agent on stdin/stdout")
	cmd.Flags().BoolVar(&withTeleport, "teleport", false, "send a TELEPORT snapshot to the agent after the render (requires --agent)")
	cmd.Flags().IntVar(&pos, "pos", -1, "starting global frame (default: start of window)")
	cmd.Flags().IntVar(&count, "count", 0, "number of frames (default: rest of timeline)")
	cmd.Flags().StringVar(&startScene, "start-scene", "", "scene name to start at")
	cmd.Flags().StringVar(&endScene, "end-scene", "", "scene name to end at")
	cmd.Flags().BoolVar(&seek, "seek", false, "skip self-paced waits")

	return cmd
}

func runRender(opts *RootOptions, path string, req timeline.Request, withAgent, withTeleport bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if withAgent {
		// Stdout belongs to the protocol in agent mode; engine logs travel
		// over it as LOG_MSG/LOG_WARN lines.
		var sessOpts []agent.SessionOption
		if withTeleport {
			sessOpts = append(sessOpts, agent.WithSnapshotOnFinish())
		}
		sess := agent.NewSession(os.Stdin, os.Stdout, nil, sessOpts...)
		story, _, err := loadStory(path, timeline.WithAgent(sess), timeline.WithLogger(sess.Logger()))
		if err != nil {
			formatter.Failure("CONFIGURATION", err.Error())
			return WrapExitError(ExitFailure, "storyboard invalid", err)
		}
		if err := sess.Run(cmd.Context(), story, req); err != nil {
			return WrapExitError(ExitFailure, "agent render failed", err)
		}
		return nil
	}
	if withTeleport {
		return WrapExitError(ExitCommandError, "--teleport requires --agent", nil)
	}

	story, _, err := loadStory(path)
	if err != nil {
		formatter.Failure("CONFIGURATION", err.Error())
		return WrapExitError(ExitFailure, "storyboard invalid", err)
	}

	rendered := 0
	story.BeforeFrame = func(int) { rendered++ }
	if err := story.Render(cmd.Context(), req); err != nil {
		formatter.Failure(errorCode(err), err.Error())
		return WrapExitError(ExitFailure, "render failed", err)
	}

	return formatter.Success(RenderResult{
		Frames:     rendered,
		FrameRate:  story.FrameRate(),
		AgentPaced: false,
	})
}

// errorCode maps scheduling errors to their protocol code for output.
func errorCode(err error) string {
	switch {
	case timeline.IsConfigurationError(err):
		return string(timeline.ErrCodeConfiguration)
	case timeline.IsOutOfScopeError(err):
		return string(timeline.ErrCodeOutOfScope)
	case timeline.IsAlreadyRenderingError(err):
		return string(timeline.ErrCodeAlreadyRendering)
	case timeline.IsUnsupportedError(err):
		return string(timeline.ErrCodeUnsupported)
	default:
		return "INTERNAL"
	}
}
