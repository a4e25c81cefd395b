// Package agent implements the capture-agent command channel: a
// line-oriented protocol over any reader/writer pair through which an
// external capture process paces the render loop frame by frame.
//
// Each message is one line, "@stagecast COMMAND" optionally followed by
// " :: VALUE". The core consumes READY, RENDER, RENDER_DONE and EXIT, and
// produces SET_FPS, SET_FRAME_COUNT, FRAME_RENDERED, RENDER_FINISHED, the
// LOG_* family and TELEPORT. The channel is entirely optional; without an
// agent the scheduler self-paces from the frame rate.
package agent
