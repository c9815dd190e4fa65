// Package analytics validates and records lightweight usage events.
//
// Events are insert-only. Recording is best effort: Track swallows failures
// after logging them, because a lost event must never disturb the practice
// or the assessment that produced it.
package analytics
