// Package journal persists a local history of ingest jobs submitted by
// this client so later CLI invocations can list them and re-attach to
// in-flight work. It is an audit record, not a cache: live job state
// always comes from the server.
package journal
