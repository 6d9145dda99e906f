// Package app is the composition root for the snapwatch client.
//
// Run loads configuration, opens the file logger, builds the HTTP client, the
// cache invalidation bus and the poller, then hands them to the UI. When a
// snapshot id is given the bootstrap lookup runs before the first frame so the
// detail view starts from the looked-up data, or from its 404 state.
//
// Fatal errors (returned from Run):
//   - Configuration file invalid
//   - Log file cannot be opened
//   - API address cannot be parsed
//
// Everything else (a failed bootstrap, failed polls, failed deletes) is
// logged and surfaced in the UI.
package app
