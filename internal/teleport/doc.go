// Package teleport implements the portable-state serialization protocol:
// snapshotting a Story into a transport-neutral value tree and rebuilding
// an equivalent Story in a different execution context.
//
// A snapshot carries everything a receiving process with no browser DOM
// needs to replay the timeline: scene selectors, markup and computed style,
// full animation declarations with task parameters (normalized through the
// TELEPORT dispatch stage), and global variables. Function references are
// never serialized; task handlers are registered by name on both sides and
// re-bound through the registry on rebuild.
//
// Round-trip property: rebuilding a snapshot yields a Story with identical
// observable scheduling behavior (frame counts, per-animation task
// parameters), verified by canonical hash equality.
package teleport
