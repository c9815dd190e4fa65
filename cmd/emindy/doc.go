// Package main hosts the eMINDy CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the HTTP server, plays guided practices
// in the terminal, scores PHQ-9 and GAD-7 questionnaires, signs and verifies
// result links, and scaffolds configuration. It centralizes configuration
// resolution and logger setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
