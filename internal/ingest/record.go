package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JobRecord is an immutable snapshot of one ingest job at a point in time.
// Every poll response produces a fresh record; trackers replace the previous
// snapshot wholesale and never mutate one in place.
type JobRecord struct {
	JobID     string
	RecipeID  string
	Status    Status
	Title     string
	Transcript string
	// ErrorCode is set exactly when Status is StatusFailed.
	ErrorCode            ErrorCode
	RecipePayload        json.RawMessage
	OnScreenText         string
	IngredientCandidates []string
	ParseErrors          []string
	LLMError             string
}

// Validate checks the record's internal invariants.
func (r *JobRecord) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return fmt.Errorf("job record missing job id")
	}
	if _, ok := statusSet[r.Status]; !ok {
		return fmt.Errorf("job record %s has unknown status %q", r.JobID, r.Status)
	}
	if r.Status == StatusFailed && r.ErrorCode == "" {
		return fmt.Errorf("job record %s failed without an error code", r.JobID)
	}
	if r.Status != StatusFailed && r.ErrorCode != "" {
		return fmt.Errorf("job record %s carries error code %q while not failed", r.JobID, r.ErrorCode)
	}
	return nil
}

// Clone returns a deep copy safe to hand to observers.
func (r *JobRecord) Clone() *JobRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.RecipePayload != nil {
		cp.RecipePayload = append(json.RawMessage(nil), r.RecipePayload...)
	}
	if r.IngredientCandidates != nil {
		cp.IngredientCandidates = append([]string(nil), r.IngredientCandidates...)
	}
	if r.ParseErrors != nil {
		cp.ParseErrors = append([]string(nil), r.ParseErrors...)
	}
	return &cp
}

// SubmitResult is the gateway's response to a job submission.
type SubmitResult struct {
	JobID    string
	RecipeID string
	Status   Status
	Message  string
}
