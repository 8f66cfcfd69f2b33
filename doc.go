// Package authstate manages a client-held authentication session: a bearer
// token, its user profile, and the state derived from them. It keeps that
// state consistent across process restarts (hydration from a durable store),
// across concurrently running contexts sharing the same store (a change-feed
// synchronizer), and against the token's own embedded expiry (an automatic
// logout timer).
//
// The package is the public surface. It exposes [Manager], [Builder],
// [Config], and value types (Profile, Snapshot, audit sinks, metrics
// snapshots). Coordination — the expiry scheduler, audit dispatch, counters —
// lives under internal/ and is never exported. Store backends live under
// store/ (redis, file, memory) behind the contracts in package store.
//
// # What this package must NOT do
//
//   - Verify token signatures or claims. Tokens are decoded and trusted; the
//     issuing server is the authority. A malformed token behaves exactly like
//     no token.
//   - Obtain tokens. Transport, credentials, and token issuance are the
//     caller's collaborators, not part of session state.
//   - Crash on corrupted storage. Anything unreadable in the store — the
//     token, the profile blob, even the literal text "undefined" — degrades
//     to an unauthenticated session, never to a panic or an error.
//
// # Consistency contract
//
// Login writes to the store before touching memory; a failed write aborts the
// whole operation. Changes observed from other contexts are mirrored into
// memory without being written back, so two contexts never feed each other
// notification loops. Derived reads (IsAuthenticated, DisplayName) are
// recomputed on every access against the current clock; they are never cached.
package authstate
