package main

import (
	"time"

	"github.com/hugh/taskboard/internal/database"
	"github.com/hugh/taskboard/internal/jobs"
	"github.com/spf13/cobra"
)

var (
	remindOrg    uint
	remindWindow time.Duration
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run a due-reminder scan in process, without the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, logger, err := connect()
		if err != nil {
			return err
		}
		defer database.Close(db)

		window := remindWindow
		if window <= 0 {
			window = cfg.Reminder.Window()
		}

		result, err := jobs.NewHandler(db, logger, window).ScanDueTasks(cmd.Context(), remindOrg)
		if err != nil {
			return err
		}
		cmd.Printf("reminded %d assignee(s) about %d task(s)\n", result.Assignees, result.Tasks)
		return nil
	},
}

func init() {
	remindCmd.Flags().UintVar(&remindOrg, "org", 0, "Only scan this organization id (0 scans all)")
	remindCmd.Flags().DurationVar(&remindWindow, "window", 0, "Look-ahead window, e.g. 48h (defaults to REMINDER_WINDOW_HOURS)")
}
