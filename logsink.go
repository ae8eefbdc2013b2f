package casegraph

import "log/slog"

// Sink receives run summaries out of band, for example to post them to an
// external dashboard.
type Sink func(event map[string]any) error

// NotifyAsync delivers an event to a sink on a fresh goroutine. Delivery
// is strictly best effort: errors are logged at debug and panics are
// recovered, so a broken sink can never touch control flow.
func NotifyAsync(sink Sink, event map[string]any) {
	if sink == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Debug("log sink panicked", "panic", r)
			}
		}()
		if err := sink(event); err != nil {
			slog.Debug("log sink delivery failed", "err", err)
		}
	}()
}
