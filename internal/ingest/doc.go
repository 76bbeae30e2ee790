// Package ingest tracks remote video-ingest jobs from submission to a
// terminal state. It owns the closed status and error-code enumerations,
// the status-to-progress-step mapping, and the Tracker, which polls the
// job gateway and publishes an observable session state.
package ingest
