package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagecast/stagecast/internal/archive"
	"github.com/stagecast/stagecast/internal/teleport"
)

// NewTeleportCommand creates the teleport command.
func NewTeleportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		pretty bool
		pos    int
		count  int
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "teleport <storyboard.yaml>",
		Short: "Snapshot a storyboard for transport",
		Long: `Build the storyboard, run the TELEPORT dispatch stage over every task and
print the portable snapshot. With --db the snapshot is archived instead
and its record id printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeleport(rootOpts, args[0], teleport.Options{RenderPos: pos, RenderCount: count}, pretty, dbPath, cmd)
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the snapshot payload")
	cmd.Flags().IntVar(&pos, "pos", 0, "render window start carried in the snapshot")
	cmd.Flags().IntVar(&count, "count", 0, "render window length carried in the snapshot")
	cmd.Flags().StringVar(&dbPath, "db", "", "archive database to save the snapshot into")

	return cmd
}

// TeleportResult is the JSON payload for a saved snapshot.
type TeleportResult struct {
	ID     string `json:"id"`
	Hash   string `json:"hash"`
	Frames int    `json:"frames"`
}

func (r TeleportResult) String() string {
	return fmt.Sprintf("saved snapshot %s (%d frames, hash %s)", r.ID, r.Frames, r.Hash)
}

func runTeleport(opts *RootOptions, path string, tOpts teleport.Options, pretty bool, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	story, _, err := loadStory(path)
	if err != nil {
		formatter.Failure("CONFIGURATION", err.Error())
		return WrapExitError(ExitFailure, "storyboard invalid", err)
	}

	snap, err := teleport.Take(cmd.Context(), story, tOpts)
	if err != nil {
		formatter.Failure(errorCode(err), err.Error())
		return WrapExitError(ExitFailure, "snapshot failed", err)
	}

	if dbPath != "" {
		store, err := archive.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "open archive", err)
		}
		defer store.Close()

		rec, err := store.Save(cmd.Context(), snap)
		if err != nil {
			return WrapExitError(ExitFailure, "archive snapshot", err)
		}
		return formatter.Success(TeleportResult{
			ID:     rec.ID,
			Hash:   rec.Hash,
			Frames: rec.FrameCount,
		})
	}

	payload, err := snap.Encode(pretty)
	if err != nil {
		return WrapExitError(ExitFailure, "encode snapshot", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), payload)
	return nil
}
