package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "@stagecast READY", Message{Command: CmdReady}.Encode())
	assert.Equal(t, "@stagecast SET_FPS :: 30", Message{Command: CmdSetFPS, Value: "30"}.Encode())
}

func TestDecode(t *testing.T) {
	msg, ok := Decode("@stagecast RENDER_DONE")
	assert.True(t, ok)
	assert.Equal(t, CmdRenderDone, msg.Command)
	assert.Empty(t, msg.Value)

	msg, ok = Decode("@stagecast SET_FRAME_COUNT :: 120")
	assert.True(t, ok)
	assert.Equal(t, CmdSetFrameCount, msg.Command)
	assert.Equal(t, "120", msg.Value)
}

func TestDecodeKeepsSeparatorInValue(t *testing.T) {
	msg, ok := Decode(`@stagecast TELEPORT :: {"a":" :: "}`)
	assert.True(t, ok)
	assert.Equal(t, CmdTeleport, msg.Command)
	assert.Equal(t, `{"a":" :: "}`, msg.Value)
}

func TestDecodeIgnoresForeignLines(t *testing.T) {
	for _, line := range []string{
		"",
		"plain log output",
		"@stagecast",
		"@stagecast ",
		"stagecast READY",
	} {
		_, ok := Decode(line)
		assert.False(t, ok, "line %q should not decode", line)
	}
}

func TestDecodeTrimsCarriageReturn(t *testing.T) {
	msg, ok := Decode("@stagecast EXIT\r")
	assert.True(t, ok)
	assert.Equal(t, CmdExit, msg.Command)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Message{Command: CmdFrameRendered, Value: "42"}
	out, ok := Decode(in.Encode())
	assert.True(t, ok)
	assert.Equal(t, in, out)
}
