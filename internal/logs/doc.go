// Package logs reads the server log for `emindy logs`.
//
// Tail returns the last lines of a file with bounded memory. Follow polls for
// appended lines and starts over when the file is replaced, which happens
// each time the server starts and re-points emindy.log at a new run file.
// Filter narrows lines by level, component, or request correlation ID and
// understands both the console and the JSON log formats.
package logs
