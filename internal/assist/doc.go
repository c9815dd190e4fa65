// Package assist is the client side of the assessment and practice helpers.
//
// A Client talks to a running eMINDy server: it fetches per-action nonces
// (keeping the session cookie in a jar), requests signed result links, asks
// for summary emails, and sends analytics events. It satisfies both
// assessment.Helpers and player.Tracker, so the CLI injects one Client into
// the scorer and the player instead of relying on shared globals.
package assist
