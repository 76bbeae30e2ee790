// Package likes keeps an optimistic, server-reconciled view of recipe like
// state. The Coordinator applies toggles locally before any network call,
// collapses rapid repeated toggles into one request per recipe, and rolls
// the view back when the server rejects the change.
package likes
