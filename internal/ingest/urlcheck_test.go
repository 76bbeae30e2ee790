package ingest_test

import (
	"testing"

	"ladle/internal/ingest"
)

func TestValidIngestURL(t *testing.T) {
	cases := []struct {
		input string
		valid bool
	}{
		{"https://www.tiktok.com/@cook/video/123", true},
		{"https://vm.tiktok.com/ZMabc123/", true},
		{"http://m.tiktok.com/v/123", true},
		{"tiktok.com/@cook/video/123", true},
		{"https://tiktok.com.evil.example/video", false},
		{"https://www.youtube.com/watch?v=abc", false},
		{"ftp://www.tiktok.com/video", false},
		{"not a url", false},
		{"", false},
		{"   ", false},
	}
	for _, tc := range cases {
		if got := ingest.ValidIngestURL(tc.input); got != tc.valid {
			t.Fatalf("ValidIngestURL(%q) = %t, expected %t", tc.input, got, tc.valid)
		}
	}
}
