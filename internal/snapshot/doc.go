// Package snapshot provides the Snapshot model and an HTTP client for the
// snapshot store API.
//
// # Overview
//
// A Snapshot is an asynchronously produced archive of a web page. The store
// creates the record immediately with Ready=false and flips Ready to true
// once the artifact is finalized. Files and Size only carry meaning after
// that point; use Snapshot.Stats rather than reading them directly.
//
// # Client Usage
//
//	client, err := snapshot.NewClient("127.0.0.1:7488")
//	if err != nil {
//		return err
//	}
//
//	snap, err := client.FetchSnapshot(ctx, id)
//	switch {
//	case errors.Is(err, snapshot.ErrNotFound):
//		// render the 404 state
//	case err != nil:
//		// transient, try again on the next tick
//	}
//
// # API Endpoints
//
//   - GET  /api/snapshot/{id}: one snapshot, 404 when unknown
//   - GET  /api/snapshots: the "all snapshots" collection
//   - POST /api/action/delete: body {"uuid": id}, replies {"message": ...}
//
// # Error Handling
//
//   - Lookups answer 404 with ErrNotFound (wrapped; use errors.Is).
//   - Other HTTP or transport failures are plain wrapped errors. Callers that
//     poll treat them as transient.
//   - DeleteSnapshot failures are always *MutationError. UserMessage returns
//     the server's message or DefaultDeleteFailure.
//
// # Encoding
//
// Encode and Decode define the transport form used to seed a client cache
// from a one-shot lookup. CreatedAt survives the round trip with nanosecond
// precision and its zone offset.
package snapshot
