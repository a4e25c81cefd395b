package agent

import "strings"

// Prefix marks protocol lines. Anything else on the channel is ignored,
// which lets the agent process share its stdout with ordinary logging.
const Prefix = "@stagecast"

// Sep separates a command from its value.
const Sep = " :: "

// Command is a protocol verb.
type Command string

// Commands consumed by the core.
const (
	CmdReady      Command = "READY"
	CmdRender     Command = "RENDER"
	CmdRenderDone Command = "RENDER_DONE"
	CmdExit       Command = "EXIT"
)

// Commands produced by the core.
const (
	CmdSetFPS         Command = "SET_FPS"
	CmdSetFrameCount  Command = "SET_FRAME_COUNT"
	CmdFrameRendered  Command = "FRAME_RENDERED"
	CmdRenderFinished Command = "RENDER_FINISHED"
	CmdLogMsg         Command = "LOG_MSG"
	CmdLogWarn        Command = "LOG_WARN"
	CmdLogError       Command = "LOG_ERROR"
	CmdTeleport       Command = "TELEPORT"
)

// Message is one protocol line. Values must not contain newlines; multi-line
// payloads (teleport snapshots) are encoded compact before transmission.
type Message struct {
	Command Command
	Value   string
}

// Encode renders the message as a single protocol line without the trailing
// newline.
func (m Message) Encode() string {
	if m.Value == "" {
		return Prefix + " " + string(m.Command)
	}
	return Prefix + " " + string(m.Command) + Sep + m.Value
}

// Decode parses a protocol line. Lines without the prefix report ok=false
// and are skipped by the session loop.
func Decode(line string) (Message, bool) {
	rest, ok := strings.CutPrefix(strings.TrimRight(line, "\r"), Prefix+" ")
	if !ok {
		return Message{}, false
	}
	cmd, value, _ := strings.Cut(rest, Sep)
	if cmd == "" {
		return Message{}, false
	}
	return Message{Command: Command(cmd), Value: value}, true
}
