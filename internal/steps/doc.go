// Package steps parses and formats the timed steps of a guided practice.
//
// Step feeds arrive as loosely typed JSON or YAML records. Normalize turns
// them into validated Step values: entries without a label are dropped,
// durations that are missing, non-numeric, or not positive become zero, and
// tips default to the empty string. Business logic only ever sees Step.
package steps
