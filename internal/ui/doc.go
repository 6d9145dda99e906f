// Package ui provides the Bubble Tea interface for snapwatch.
//
// # Screens
//
// The listing shows every snapshot the store knows about. It is read through
// the shared bus under bus.KeySnapshots, so a delete elsewhere marks it stale
// and the next visit refetches it.
//
// The detail view is opened by a one-shot bootstrap lookup. A missing id
// renders the 404 state and never starts polling. A found id subscribes to the
// poller with the bootstrap result as seed, then re-renders on every published
// view: a spinner while the snapshot is processing, its stats once ready, and
// a caveat when the last poll failed. Leaving the view closes the
// subscription, which stops polling for that id.
//
// # Key Bindings
//
//   - j/k or arrows: move in the listing
//   - enter: open the selected snapshot
//   - esc: back to the listing
//   - d: delete (asks for confirmation, y to confirm, n to cancel)
//   - r: refresh now
//   - T: cycle theme
//   - q or Ctrl+C: quit
package ui
