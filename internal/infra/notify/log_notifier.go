package notify

import (
	"context"

	"github.com/rs/zerolog"

	"remo-checkout/internal/domain/ports/adapter"
)

var _ adapter.UINotifier = (*LogNotifier)(nil)

// LogNotifier renders lifecycle notifications as structured log lines.
// Useful on its own in dev mode and as a tee alongside the API recorder.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, c adapter.StateChange) {
	n.log.Info().
		Str("session_id", c.SessionID).
		Str("state", string(c.State)).
		Str("plan", string(c.Plan)).
		Str("reference", c.Reference).
		Str("message", c.Message).
		Msg("checkout state")
}
