package notify

import (
	"context"
	"log/slog"
	"sort"
)

// AttachLogger writes every notification and status event to logger.
// The returned function detaches it.
func AttachLogger(bus *Bus, logger *slog.Logger) (cancel func()) {
	if logger == nil {
		logger = slog.Default()
	}

	stopNotes := bus.Notifications.Subscribe(func(n Notification) {
		args := make([]any, 0, 2*len(n.Context)+2)
		args = append(args, "kind", string(n.Kind))
		keys := make([]string, 0, len(n.Context))
		for k := range n.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, k, n.Context[k])
		}
		logger.Log(context.Background(), levelFor(n.Kind), n.Message, args...)
	})

	stopStatus := bus.EndpointStatus.Subscribe(func(ev StatusEvent) {
		args := []any{"url", ev.URL, "type", ev.Type, "from", ev.From, "to", ev.To}
		if ev.Error != "" {
			args = append(args, "error", ev.Error)
		}
		logger.Debug("Endpoint status changed", args...)
	})

	return func() {
		stopNotes()
		stopStatus()
	}
}

func levelFor(kind Kind) slog.Level {
	switch kind {
	case KindError:
		return slog.LevelError
	case KindWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
