// Package resultsig issues and checks tamper-evident assessment result links.
//
// A link carries the questionnaire kind, the score, and an HMAC-SHA256
// signature over "kind|score". Verification re-derives everything from the
// three query values and the secret; no other state is read. Every failure
// is reported as ErrInvalidResult so callers cannot learn which check failed.
package resultsig
