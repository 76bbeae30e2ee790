package ingest

import "strings"

// Status represents the lifecycle of a remote ingest job.
type Status string

const (
	StatusQueued                Status = "queued"
	StatusDownloading           Status = "downloading"
	StatusExtracting            Status = "extracting"
	StatusTranscribing          Status = "transcribing"
	StatusDraftTranscribed      Status = "draft_transcribed"
	StatusOCRing                Status = "ocring"
	StatusOCRDone               Status = "ocr_done"
	StatusLLMRefining           Status = "llm_refining"
	StatusDraftParsed           Status = "draft_parsed"
	StatusDraftParsedWithErrors Status = "draft_parsed_with_errors"
	StatusCompleted             Status = "completed"
	StatusFailed                Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusDownloading,
	StatusExtracting,
	StatusTranscribing,
	StatusDraftTranscribed,
	StatusOCRing,
	StatusOCRDone,
	StatusLLMRefining,
	StatusDraftParsed,
	StatusDraftParsedWithErrors,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further status changes can occur.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsError reports whether the status represents a failed job.
func (s Status) IsError() bool {
	return s == StatusFailed
}

// TotalSteps is the number of user-facing progress slots a job moves through.
const TotalSteps = 10

// StepInfo describes the progress slot a status occupies.
type StepInfo struct {
	Step        int
	Title       string
	Description string
}

// StepFor maps a status onto its progress slot. Every known status has an
// entry; the status_test totality check fails when a new status is added
// without one. Both draft_parsed variants share step 9 with distinct titles.
func StepFor(status Status) StepInfo {
	switch status {
	case StatusQueued:
		return StepInfo{Step: 1, Title: "Queued", Description: "Waiting for a worker to pick up the job"}
	case StatusDownloading:
		return StepInfo{Step: 2, Title: "Downloading", Description: "Fetching the source video"}
	case StatusExtracting:
		return StepInfo{Step: 3, Title: "Extracting Audio", Description: "Separating the audio track"}
	case StatusTranscribing:
		return StepInfo{Step: 4, Title: "Transcribing", Description: "Converting speech to text"}
	case StatusDraftTranscribed:
		return StepInfo{Step: 5, Title: "Transcript Ready", Description: "Speech transcription finished"}
	case StatusOCRing:
		return StepInfo{Step: 6, Title: "Reading On-Screen Text", Description: "Scanning video frames for text"}
	case StatusOCRDone:
		return StepInfo{Step: 7, Title: "Text Captured", Description: "On-screen text extraction finished"}
	case StatusLLMRefining:
		return StepInfo{Step: 8, Title: "Refining Recipe", Description: "Structuring the recipe draft"}
	case StatusDraftParsed:
		return StepInfo{Step: 9, Title: "Draft Ready", Description: "Recipe draft parsed cleanly"}
	case StatusDraftParsedWithErrors:
		return StepInfo{Step: 9, Title: "Draft Needs Review", Description: "Recipe draft parsed with some issues"}
	case StatusCompleted:
		return StepInfo{Step: 10, Title: "Complete", Description: "Recipe is ready"}
	case StatusFailed:
		return StepInfo{Step: 0, Title: "Failed", Description: "The job stopped before completing"}
	default:
		return StepInfo{}
	}
}
