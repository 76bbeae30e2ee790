package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ladle/internal/ingest"
	"ladle/internal/journal"
	"ladle/internal/logging"
)

func newIngestCommand(cctx *commandContext) *cobra.Command {
	var attachJobID string
	var autoRetry bool

	cmd := &cobra.Command{
		Use:   "ingest [url]",
		Short: "Submit a video for recipe extraction and watch it finish",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) > 0 {
				url = strings.TrimSpace(args[0])
			}
			if url == "" && strings.TrimSpace(attachJobID) == "" {
				return errors.New("provide a video url or --attach <job-id>")
			}
			if url != "" && strings.TrimSpace(attachJobID) != "" {
				return errors.New("--attach cannot be combined with a url")
			}
			return runIngest(cmd.Context(), cctx, url, strings.TrimSpace(attachJobID), autoRetry)
		},
	}

	cmd.Flags().StringVar(&attachJobID, "attach", "", "Re-watch an existing job instead of submitting")
	cmd.Flags().BoolVar(&autoRetry, "retry", false, "Retry once automatically when the job fails recoverably")
	return cmd
}

func runIngest(ctx context.Context, cctx *commandContext, url, attachJobID string, autoRetry bool) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}
	client, err := cctx.newClient()
	if err != nil {
		return err
	}

	store, err := cctx.openJournal()
	if err != nil {
		logger.Warn("journal unavailable, continuing without history", logging.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := ingest.NewTracker(client, ingest.TrackerOptions{
		PollInterval:    cfg.PollInterval(),
		MaxPollFailures: cfg.Ingest.MaxPollFailures,
		MaxActiveJobs:   cfg.Ingest.MaxActiveJobs,
		Logger:          logger,
	})
	defer tracker.CancelSession()

	updates := tracker.Updates()

	if attachJobID != "" {
		tracker.Attach(ctx, attachJobID)
	} else {
		tracker.ValidateURL(url)
		if !tracker.State().IsValidURL {
			return fmt.Errorf("unsupported video link %q (expected a tiktok.com or vm.tiktok.com url)", url)
		}
		tracker.RefreshActiveJobs(ctx)
		tracker.Submit(ctx, url)
		if state := tracker.State(); state.IsJobLimitReached && state.Job == nil {
			return errors.New(state.ErrorMessage)
		}
	}

	return watchIngest(ctx, tracker, updates, store, url, autoRetry)
}

// watchIngest renders tracker updates until the job settles, mirroring
// transitions into the journal when one is available.
func watchIngest(ctx context.Context, tracker *ingest.Tracker, updates <-chan ingest.SessionState, store *journal.Store, url string, autoRetry bool) error {
	render := newProgressRenderer(os.Stdout)
	retried := false
	journaled := false
	var lastStatus ingest.Status

	for {
		select {
		case <-ctx.Done():
			render.finish()
			return ctx.Err()
		case state, ok := <-updates:
			if !ok {
				render.finish()
				return nil
			}
			render.update(state)

			if store != nil && state.Job != nil {
				job := state.Job
				if !journaled {
					_ = store.Record(ctx, journal.Entry{
						JobID:    job.JobID,
						URL:      url,
						Title:    job.Title,
						RecipeID: job.RecipeID,
						Status:   job.Status,
					})
					journaled = true
					lastStatus = job.Status
				} else if job.Status != lastStatus {
					_ = store.UpdateStatus(ctx, job.JobID, job.Status, job.ErrorCode, job.RecipeID)
					lastStatus = job.Status
				}
			}

			if state.IsComplete {
				render.finish()
				job := state.Job
				fmt.Printf("Recipe ready")
				if job != nil && job.Title != "" {
					fmt.Printf(": %s", job.Title)
				}
				if job != nil && job.RecipeID != "" {
					fmt.Printf(" (recipe %s)", job.RecipeID)
				}
				fmt.Println()
				return nil
			}
			if state.HasError && !state.IsPolling && !state.IsSubmitting {
				job := state.Job
				if job != nil && job.Status == ingest.StatusFailed {
					info := ingest.DescribeError(job.ErrorCode)
					if info.Recoverable && autoRetry && !retried {
						retried = true
						render.note(fmt.Sprintf("%s — retrying (%s)", info.Summary, info.RetryLabel))
						tracker.Retry()
						continue
					}
					render.finish()
					fmt.Println(info.Message)
					if info.Recoverable {
						fmt.Printf("Run again with --attach %s --retry to %s.\n", job.JobID, strings.ToLower(info.RetryLabel))
					}
					return fmt.Errorf("ingest failed: %s", info.Summary)
				}
				render.finish()
				return errors.New(state.ErrorMessage)
			}
		}
	}
}
