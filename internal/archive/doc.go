// Package archive stores teleport snapshots in a local SQLite database so
// a timeline can be captured on one machine and replayed later or
// elsewhere. Records are keyed by UUIDv7, which makes listings
// creation-ordered, and each row carries the canonical hash for integrity
// checks on load.
package archive
