// Package nonce issues short-lived request tokens bound to an action and a
// session.
//
// Nonces are stateless. Time is cut into ticks of half the lifetime and a
// nonce is the truncated HMAC of the tick, action, and session. A nonce is
// accepted during the tick it was issued in and the one after, so it lives
// between half and the whole of the lifetime.
package nonce
