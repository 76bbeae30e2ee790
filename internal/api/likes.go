package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ladle/internal/likes"
)

type toggleLikeRequest struct {
	Liked bool `json:"liked"`
}

type likePayload struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

type likeBatchResponse struct {
	Likes map[string]likePayload `json:"likes"`
}

// ToggleLike sets the like state for a recipe and returns the server's
// authoritative resulting state.
func (c *Client) ToggleLike(ctx context.Context, recipeID string, liked bool) (likes.ToggleResult, error) {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		return likes.ToggleResult{}, errors.New("recipe id must not be empty")
	}
	var payload likePayload
	path := "/v1/recipes/" + url.PathEscape(recipeID) + "/like"
	if err := c.doJSON(ctx, http.MethodPost, path, toggleLikeRequest{Liked: liked}, &payload); err != nil {
		return likes.ToggleResult{}, fmt.Errorf("toggle like for %s: %w", recipeID, err)
	}
	return likes.ToggleResult{Liked: payload.Liked, LikesCount: payload.LikesCount}, nil
}

// FetchLikes retrieves like state for a batch of recipes. Recipes the
// server does not know are absent from the result.
func (c *Client) FetchLikes(ctx context.Context, recipeIDs []string) (map[string]likes.ToggleResult, error) {
	if len(recipeIDs) == 0 {
		return map[string]likes.ToggleResult{}, nil
	}
	query := url.Values{}
	query.Set("ids", strings.Join(recipeIDs, ","))
	var payload likeBatchResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/recipes/likes?"+query.Encode(), nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch likes: %w", err)
	}
	results := make(map[string]likes.ToggleResult, len(payload.Likes))
	for recipeID, state := range payload.Likes {
		results[recipeID] = likes.ToggleResult{Liked: state.Liked, LikesCount: state.LikesCount}
	}
	return results, nil
}
