// Package playerstate persists guided practice progress on disk.
//
// All entities share one JSON file holding a map of entity ID to State. Each
// write re-reads the file under an advisory lock, applies the single-entity
// change, and swaps the file atomically, so two players writing different
// entities never lose each other's progress. For the same entity the last
// write wins.
//
// A corrupt or unreadable file is treated as empty. Callers decide whether a
// write error matters; the player logs it and carries on.
package playerstate
