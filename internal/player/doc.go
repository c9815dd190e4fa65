// Package player sequences the timed steps of a guided practice.
//
// A Player is a small state machine (idle, playing, paused, completed) driven
// by transport controls and by frame callbacks from a Scheduler. Countdown is
// measured against an injected Clock and corrected for drift: each decrement
// advances the anchor by exactly one second, so irregular frames never speed
// up or slow down the timer.
//
// Progress is written to a Store on every pause-equivalent event and restored
// silently on construction. Views receive snapshots and announcements after
// the player's lock is released, so they may call back into the player.
package player
