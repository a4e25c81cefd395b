package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stagecast/stagecast/internal/storyboard"
	"github.com/stagecast/stagecast/internal/tasks"
	"github.com/stagecast/stagecast/internal/timeline"
)

// ValidationResult summarizes a validated storyboard.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	Scenes     int    `json:"scenes"`
	FrameRate  int    `json:"frame_rate"`
	FrameCount int    `json:"frame_count"`
	Path       string `json:"path"`
}

func (r ValidationResult) String() string {
	return fmt.Sprintf("%s: valid (%d scenes, %d frames @ %d fps)",
		r.Path, r.Scenes, r.FrameCount, r.FrameRate)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <storyboard.yaml>",
		Short: "Validate a storyboard without rendering",
		Long: `Validate a storyboard file: YAML decoding, schema validation, task
registration and per-task parameter checks, without rendering a frame.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	story, def, err := loadStory(path)
	if err != nil {
		formatter.Failure("CONFIGURATION", err.Error())
		return WrapExitError(ExitFailure, "storyboard invalid", err)
	}

	formatter.VerboseLog("storyboard %s: %d scenes", path, len(def.Scenes))
	names := story.Registry().Names()
	sort.Strings(names)
	formatter.VerboseLog("registered tasks: %s", strings.Join(names, ", "))
	return formatter.Success(ValidationResult{
		Valid:      true,
		Scenes:     story.SceneCount(),
		FrameRate:  story.FrameRate(),
		FrameCount: story.FrameCount(),
		Path:       path,
	})
}

// loadStory parses a storyboard and builds a Story over the built-in task
// registry.
func loadStory(path string, opts ...timeline.Option) (*timeline.Story, *storyboard.Definition, error) {
	def, err := storyboard.Load(path)
	if err != nil {
		return nil, nil, err
	}
	reg := timeline.NewRegistry()
	if err := tasks.RegisterBuiltins(reg); err != nil {
		return nil, nil, err
	}
	story, err := storyboard.Build(def, reg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return story, def, nil
}
