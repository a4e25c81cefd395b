package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Logger returns a slog.Logger whose records travel over the channel as
// LOG_MSG, LOG_WARN or LOG_ERROR lines. Attaching it to the story (via
// timeline.WithLogger) gives the agent the engine's diagnostics without a
// second transport. Debug records stay local.
func (s *Session) Logger() *slog.Logger {
	return slog.New(&bridgeHandler{sess: s})
}

// bridgeHandler renders slog records into single protocol lines.
type bridgeHandler struct {
	sess  *Session
	attrs []slog.Attr
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *bridgeHandler) Handle(_ context.Context, rec slog.Record) error {
	var b strings.Builder
	b.WriteString(rec.Message)
	emit := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		emit(a)
	}
	rec.Attrs(emit)

	cmd := CmdLogMsg
	switch {
	case rec.Level >= slog.LevelError:
		cmd = CmdLogError
	case rec.Level >= slog.LevelWarn:
		cmd = CmdLogWarn
	}
	// Values must stay single-line on the wire.
	return h.sess.SendLog(cmd, strings.ReplaceAll(b.String(), "\n", " "))
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &bridgeHandler{sess: h.sess, attrs: merged}
}

func (h *bridgeHandler) WithGroup(string) slog.Handler {
	return h
}
