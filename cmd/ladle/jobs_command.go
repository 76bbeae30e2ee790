package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ladle/internal/ingest"
)

func newJobsCommand(cctx *commandContext) *cobra.Command {
	var showHistory bool
	var historyLimit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List ingest jobs currently processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showHistory {
				return runJobsHistory(cmd, cctx, historyLimit)
			}
			return runJobsActive(cmd, cctx)
		},
	}

	cmd.Flags().BoolVar(&showHistory, "history", false, "Show locally journaled submissions instead of active server jobs")
	cmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum history rows to show")
	return cmd
}

func runJobsActive(cmd *cobra.Command, cctx *commandContext) error {
	client, err := cctx.newClient()
	if err != nil {
		return err
	}

	jobs, err := client.ListActiveJobs(cmd.Context())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs processing.")
		return nil
	}

	rows := make([][]string, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		info := ingest.StepFor(job.Status)
		rows = append(rows, []string{
			job.JobID,
			displayStatus(job.Status),
			fmt.Sprintf("%d/%d", info.Step, ingest.TotalSteps),
			job.Title,
		})
	}
	fmt.Println(renderTable([]string{"Job", "Status", "Step", "Title"}, rows, 2))
	return nil
}

func runJobsHistory(cmd *cobra.Command, cctx *commandContext, limit int) error {
	store, err := cctx.openJournal()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("journal is disabled in configuration")
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No journaled submissions.")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		status := displayStatus(entry.Status)
		if entry.Status == ingest.StatusFailed && entry.ErrorCode != "" {
			status += " (" + ingest.DescribeError(entry.ErrorCode).Summary + ")"
		}
		rows = append(rows, []string{
			entry.JobID,
			status,
			entry.UpdatedAt.Local().Format(time.DateTime),
			entry.URL,
		})
	}
	fmt.Println(renderTable([]string{"Job", "Status", "Updated", "Source"}, rows))
	fmt.Println(strconv.Itoa(len(entries)) + " journaled submission(s).")
	return nil
}
