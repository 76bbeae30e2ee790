package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ladle/internal/likes"
)

func newLikeCommand(cctx *commandContext, like bool) *cobra.Command {
	use, short := "like <recipe-id>", "Like a recipe"
	if !like {
		use, short = "unlike <recipe-id>", "Remove a like from a recipe"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLikeToggle(cmd.Context(), cctx, args[0], like)
		},
	}
}

func runLikeToggle(ctx context.Context, cctx *commandContext, recipeID string, desired bool) error {
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

	coordinator := likes.NewCoordinator(client, likes.CoordinatorOptions{
		DebounceWindow:     cfg.DebounceWindow(),
		PreloadConcurrency: cfg.Likes.PreloadConcurrency,
		Logger:             logger,
	})
	defer coordinator.Close()

	coordinator.Preload(ctx, []string{recipeID})
	current := coordinator.State(recipeID)
	if current.Liked == desired {
		fmt.Printf("Recipe %s already has liked=%t (%d likes).\n", recipeID, current.Liked, current.LikesCount)
		return nil
	}

	updates := coordinator.Updates(recipeID)
	coordinator.Toggle(recipeID, current.Liked)

	// The call fires after the debounce window; wait for the server to
	// settle (or for the coordinator to elide the call).
	settle := time.After(cfg.DebounceWindow() + cfg.APITimeout() + time.Second)
	sawCall := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-updates:
			if !ok {
				return nil
			}
			if state.Err != "" {
				return errors.New(state.Err)
			}
			if state.IsLoading {
				sawCall = true
				continue
			}
			if sawCall {
				fmt.Printf("Recipe %s liked=%t (%d likes).\n", recipeID, state.Liked, state.LikesCount)
				return nil
			}
		case <-settle:
			state := coordinator.State(recipeID)
			if state.Err != "" {
				return errors.New(state.Err)
			}
			fmt.Printf("Recipe %s liked=%t (%d likes).\n", recipeID, state.Liked, state.LikesCount)
			return nil
		}
	}
}
