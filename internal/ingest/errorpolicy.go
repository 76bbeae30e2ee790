package ingest

import "strings"

// ErrorCode identifies which pipeline stage a job failed in.
type ErrorCode string

const (
	ErrorUnknown          ErrorCode = "unknown_error"
	ErrorVideoUnavailable ErrorCode = "video_unavailable"
	ErrorASRFailed        ErrorCode = "asr_failed"
	ErrorOCRFailed        ErrorCode = "ocr_failed"
	ErrorLLMFailed        ErrorCode = "llm_failed"
	ErrorPersistFailed    ErrorCode = "persist_failed"
)

var allErrorCodes = []ErrorCode{
	ErrorUnknown,
	ErrorVideoUnavailable,
	ErrorASRFailed,
	ErrorOCRFailed,
	ErrorLLMFailed,
	ErrorPersistFailed,
}

// AllErrorCodes returns the ordered list of known error codes.
func AllErrorCodes() []ErrorCode {
	cp := make([]ErrorCode, len(allErrorCodes))
	copy(cp, allErrorCodes)
	return cp
}

// ParseErrorCode converts a string into a known ErrorCode. Unrecognized
// values fall back to ErrorUnknown so that a new server-side code degrades
// to generic messaging rather than an empty one.
func ParseErrorCode(value string) (ErrorCode, bool) {
	normalized := ErrorCode(strings.ToLower(strings.TrimSpace(value)))
	for _, code := range allErrorCodes {
		if code == normalized {
			return code, true
		}
	}
	return ErrorUnknown, false
}

// ErrorInfo carries the user-facing description of a job failure.
// RetryLabel is non-empty exactly when Recoverable is true.
type ErrorInfo struct {
	Message     string
	Summary     string
	Recoverable bool
	RetryLabel  string
}

// DescribeError maps an error code to its user-facing description.
// Summaries stay under 30 characters for compact status surfaces.
// VideoUnavailable is the only non-recoverable code: the source video is
// gone and re-running the pipeline cannot bring it back.
func DescribeError(code ErrorCode) ErrorInfo {
	switch code {
	case ErrorVideoUnavailable:
		return ErrorInfo{
			Message: "The source video could not be downloaded. It may have been removed or made private.",
			Summary: "Video unavailable",
		}
	case ErrorASRFailed:
		return ErrorInfo{
			Message:     "Audio transcription failed. The audio track may be too noisy or too quiet.",
			Summary:     "Transcription failed",
			Recoverable: true,
			RetryLabel:  "Retry Audio Processing",
		}
	case ErrorOCRFailed:
		return ErrorInfo{
			Message:     "Reading on-screen text from the video failed.",
			Summary:     "Text reading failed",
			Recoverable: true,
			RetryLabel:  "Retry Text Reading",
		}
	case ErrorLLMFailed:
		return ErrorInfo{
			Message:     "Turning the transcript into a structured recipe failed.",
			Summary:     "AI processing failed",
			Recoverable: true,
			RetryLabel:  "Retry AI Processing",
		}
	case ErrorPersistFailed:
		return ErrorInfo{
			Message:     "The finished recipe could not be saved.",
			Summary:     "Save failed",
			Recoverable: true,
			RetryLabel:  "Retry Save",
		}
	default:
		return ErrorInfo{
			Message:     "Something went wrong while processing this video.",
			Summary:     "Processing failed",
			Recoverable: true,
			RetryLabel:  "Try Again",
		}
	}
}

// Recoverable reports whether retrying the same job may succeed.
func (c ErrorCode) Recoverable() bool {
	return DescribeError(c).Recoverable
}
