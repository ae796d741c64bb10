package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yukikurage/chainboard/internal/constants"
	"github.com/yukikurage/chainboard/internal/engine"
	"github.com/yukikurage/chainboard/internal/export"
	"github.com/yukikurage/chainboard/internal/utils"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [session-id] [file]",
		Short: "Write a session's tasks to a JSON backup",
		Long: `Write a session's tasks to a JSON backup.

Without a file argument the backup is printed to stdout.

Examples:
  boardctl export session_1234 backup.json
  boardctl export session_1234 > backup.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			sessionID := args[0]
			tasks, err := store.List(context.Background(), sessionID)
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}

			now := time.Now()
			if len(args) == 1 {
				return export.Encode(cmd.OutOrStdout(), sessionID, tasks, now)
			}
			if err := export.WriteFile(args[1], sessionID, tasks, now); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d task(s) to %s\n", len(tasks), args[1])
			return nil
		},
	}
	return cmd
}

func importCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import [session-id] [file]",
		Short: "Replace a session's tasks with a JSON backup",
		Long: `Replace a session's tasks with a JSON backup.

Records are migrated to the current shape before they are written. A
running server keeps its loaded copy of the session until it restarts.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := export.ReadFile(args[1])
			if err != nil {
				return err
			}
			tasks = engine.Normalize(tasks, time.Now())

			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Would import %d task(s) into %s\n", len(tasks), args[0])
				return nil
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.ReplaceAll(context.Background(), args[0], tasks); err != nil {
				return fmt.Errorf("failed to import tasks: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s) into %s\n", len(tasks), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the backup without writing it")
	return cmd
}

func sessionsCmd() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions with their task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			params := utils.NewPaginationParams(page, limit)
			stats, total, err := store.Stats(context.Background(), params)
			if err != nil {
				return fmt.Errorf("failed to load session stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d session(s)\n", total)
			for _, s := range stats {
				fmt.Fprintf(out, "%-40s %5d  %s\n", s.SessionID, s.TaskCount, s.LastSync.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", constants.StatsFirstPage, "page number")
	cmd.Flags().IntVarP(&limit, "limit", "n", constants.DefaultStatsPageSize, "sessions per page")
	return cmd
}
