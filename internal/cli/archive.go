package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagecast/stagecast/internal/archive"
)

// NewArchiveCommand creates the archive command group.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect the snapshot archive",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "stagecast.db", "archive database path")

	cmd.AddCommand(newArchiveListCommand(rootOpts, &dbPath))
	cmd.AddCommand(newArchiveShowCommand(rootOpts, &dbPath))

	return cmd
}

// ArchiveEntry is one listing row.
type ArchiveEntry struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"created_at"`
	FrameRate  int    `json:"frame_rate"`
	FrameCount int    `json:"frame_count"`
	Hash       string `json:"hash"`
}

// ArchiveListing is the list command payload.
type ArchiveListing struct {
	Entries []ArchiveEntry `json:"entries"`
}

func (l ArchiveListing) String() string {
	if len(l.Entries) == 0 {
		return "no snapshots"
	}
	var b strings.Builder
	for _, e := range l.Entries {
		fmt.Fprintf(&b, "%s  %s  %d frames @ %d fps\n", e.ID, e.CreatedAt, e.FrameCount, e.FrameRate)
	}
	return strings.TrimRight(b.String(), "\n")
}

func newArchiveListCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List archived snapshots, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			store, err := archive.Open(*dbPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open archive", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "list snapshots", err)
			}

			listing := ArchiveListing{Entries: make([]ArchiveEntry, 0, len(records))}
			for _, rec := range records {
				listing.Entries = append(listing.Entries, ArchiveEntry{
					ID:         rec.ID,
					CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
					FrameRate:  rec.FrameRate,
					FrameCount: rec.FrameCount,
					Hash:       rec.Hash,
				})
			}
			return formatter.Success(listing)
		},
	}
}

func newArchiveShowCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:           "show <id>",
		Short:         "Print an archived snapshot payload",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			store, err := archive.Open(*dbPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open archive", err)
			}
			defer store.Close()

			snap, _, err := store.Load(cmd.Context(), args[0])
			if errors.Is(err, archive.ErrNotFound) {
				formatter.Failure("NOT_FOUND", err.Error())
				return WrapExitError(ExitCommandError, "snapshot not found", err)
			}
			if err != nil {
				return WrapExitError(ExitFailure, "load snapshot", err)
			}

			payload, err := snap.Encode(pretty)
			if err != nil {
				return WrapExitError(ExitFailure, "encode snapshot", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", true, "indent the snapshot payload")
	return cmd
}
