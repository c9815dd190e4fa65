// Package preflight provides readiness checks for the filesystem paths,
// secrets, and services eMINDy depends on.
//
// These checks run in two contexts:
//   - The "emindy preflight" command runs RunAll and exits non-zero when any
//     check fails.
//   - The same command with --server checks a running server via CheckServer.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
