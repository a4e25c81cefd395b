// Package timeline implements the frame scheduler at the heart of stagecast:
// the Story render-stage state machine, Scene frame-range resolution, the
// task dispatch protocol and the cooperative wait queue.
//
// Scheduling is single-threaded and cooperative. There is no parallel
// execution inside a render; concurrency is simulated entirely through
// explicit suspension points (the schedule stage of the state machine, and
// any task handler registering a WaitEntry). A Story is owned by its caller
// and all process-wide registration goes through an explicit Registry passed
// at construction; nothing here is ambient global state.
package timeline
