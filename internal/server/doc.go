// Package server exposes the assessment and practice helpers over HTTP.
//
// Endpoints:
//
//	GET  /api/nonce?action=   issue a nonce, setting the session cookie
//	POST /api/sign            signed result link for {type, score, nonce}
//	POST /api/email           email a summary {kind, summary, email, nonce}
//	POST /api/track           record an analytics event (always 204)
//	GET  /api/practices[/id]  practice catalog and normalized step feeds
//	GET  /api/stats           analytics counts (bearer token when configured)
//	GET  /api/health          liveness
//	GET  /result              HTML result page for a signed link
//	GET  /metrics             Prometheus metrics
package server
