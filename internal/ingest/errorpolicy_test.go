package ingest_test

import (
	"testing"

	"ladle/internal/ingest"
)

func TestDescribeErrorCoversAllCodes(t *testing.T) {
	for _, code := range ingest.AllErrorCodes() {
		info := ingest.DescribeError(code)
		if info.Message == "" {
			t.Fatalf("code %q has no message", code)
		}
		if info.Summary == "" || len(info.Summary) >= 30 {
			t.Fatalf("code %q summary %q must be non-empty and under 30 chars", code, info.Summary)
		}
		if info.Recoverable && info.RetryLabel == "" {
			t.Fatalf("recoverable code %q has no retry label", code)
		}
		if !info.Recoverable && info.RetryLabel != "" {
			t.Fatalf("non-recoverable code %q carries retry label %q", code, info.RetryLabel)
		}
	}
}

func TestOnlyVideoUnavailableIsNonRecoverable(t *testing.T) {
	for _, code := range ingest.AllErrorCodes() {
		wantRecoverable := code != ingest.ErrorVideoUnavailable
		if got := code.Recoverable(); got != wantRecoverable {
			t.Fatalf("code %q: Recoverable=%t, expected %t", code, got, wantRecoverable)
		}
	}
}

func TestRetryLabelsAreStageSpecific(t *testing.T) {
	expected := map[ingest.ErrorCode]string{
		ingest.ErrorUnknown:       "Try Again",
		ingest.ErrorASRFailed:     "Retry Audio Processing",
		ingest.ErrorOCRFailed:     "Retry Text Reading",
		ingest.ErrorLLMFailed:     "Retry AI Processing",
		ingest.ErrorPersistFailed: "Retry Save",
	}
	for code, label := range expected {
		if got := ingest.DescribeError(code).RetryLabel; got != label {
			t.Fatalf("code %q: expected retry label %q, got %q", code, label, got)
		}
	}
}

func TestParseErrorCodeFallsBackToUnknown(t *testing.T) {
	if code, ok := ingest.ParseErrorCode("ASR_FAILED"); !ok || code != ingest.ErrorASRFailed {
		t.Fatalf("expected asr_failed, got %q ok=%t", code, ok)
	}
	code, ok := ingest.ParseErrorCode("subspace_rupture")
	if ok {
		t.Fatal("expected unrecognized code to report !ok")
	}
	if code != ingest.ErrorUnknown {
		t.Fatalf("expected fallback to unknown_error, got %q", code)
	}
}
