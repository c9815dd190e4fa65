// Package ratelimit caps how often an action may succeed per key within a
// rolling window.
//
// Successful actions are recorded in a Ledger. Actions still running count
// against the cap too, so concurrent requests cannot overshoot it. Failed
// actions are not recorded.
package ratelimit
