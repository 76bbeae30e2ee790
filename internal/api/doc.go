// Package api implements the HTTP gateways the client core depends on:
// ingest job submission, job polling, active-job listing, and like
// toggling against the recipe service backend.
package api
