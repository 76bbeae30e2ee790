package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ladle/internal/ingest"
)

type submitJobRequest struct {
	URL string `json:"url"`
}

type submitJobResponse struct {
	JobID    string `json:"job_id"`
	RecipeID string `json:"recipe_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

type jobPayload struct {
	JobID                string          `json:"job_id"`
	RecipeID             string          `json:"recipe_id"`
	Status               string          `json:"status"`
	Title                string          `json:"title"`
	Transcript           string          `json:"transcript"`
	ErrorCode            string          `json:"error_code"`
	Recipe               json.RawMessage `json:"recipe"`
	OnScreenText         string          `json:"onscreen_text"`
	IngredientCandidates []string        `json:"ingredient_candidates"`
	ParseErrors          []string        `json:"parse_errors"`
	LLMError             string          `json:"llm_error"`
}

type jobListResponse struct {
	Jobs []jobPayload `json:"jobs"`
}

// SubmitJob creates a new ingest job for the supplied video URL.
func (c *Client) SubmitJob(ctx context.Context, videoURL string) (ingest.SubmitResult, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return ingest.SubmitResult{}, errors.New("video url must not be empty")
	}
	var payload submitJobResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/ingest/jobs", submitJobRequest{URL: videoURL}, &payload); err != nil {
		return ingest.SubmitResult{}, fmt.Errorf("submit ingest job: %w", err)
	}
	status, ok := ingest.ParseStatus(payload.Status)
	if !ok {
		status = ingest.StatusQueued
	}
	return ingest.SubmitResult{
		JobID:    payload.JobID,
		RecipeID: payload.RecipeID,
		Status:   status,
		Message:  payload.Message,
	}, nil
}

// FetchJob retrieves the current record for one ingest job. A 404 from the
// server is reported as ingest.ErrJobNotFound.
func (c *Client) FetchJob(ctx context.Context, jobID string) (*ingest.JobRecord, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("job id must not be empty")
	}
	var payload jobPayload
	err := c.doJSON(ctx, http.MethodGet, "/v1/ingest/jobs/"+url.PathEscape(jobID), nil, &payload)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("fetch job %s: %w", jobID, ingest.ErrJobNotFound)
		}
		return nil, fmt.Errorf("fetch job %s: %w", jobID, err)
	}
	record, err := payload.toRecord()
	if err != nil {
		return nil, fmt.Errorf("fetch job %s: %w", jobID, err)
	}
	return record, nil
}

// ListActiveJobs returns the caller's jobs that have not reached a terminal
// status. The client filters defensively even when the server already did.
func (c *Client) ListActiveJobs(ctx context.Context) ([]ingest.JobRecord, error) {
	var payload jobListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/ingest/jobs?active=true", nil, &payload); err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	records := make([]ingest.JobRecord, 0, len(payload.Jobs))
	for i := range payload.Jobs {
		record, err := payload.Jobs[i].toRecord()
		if err != nil {
			return nil, fmt.Errorf("list active jobs: %w", err)
		}
		if record.Status.IsTerminal() {
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

func (p *jobPayload) toRecord() (*ingest.JobRecord, error) {
	status, ok := ingest.ParseStatus(p.Status)
	if !ok {
		return nil, fmt.Errorf("unknown job status %q", p.Status)
	}
	record := &ingest.JobRecord{
		JobID:                p.JobID,
		RecipeID:             p.RecipeID,
		Status:               status,
		Title:                p.Title,
		Transcript:           p.Transcript,
		RecipePayload:        p.Recipe,
		OnScreenText:         p.OnScreenText,
		IngredientCandidates: p.IngredientCandidates,
		ParseErrors:          p.ParseErrors,
		LLMError:             p.LLMError,
	}
	if status == ingest.StatusFailed {
		code, _ := ingest.ParseErrorCode(p.ErrorCode)
		record.ErrorCode = code
	}
	return record, nil
}
