package bus

import (
	"context"
	"log/slog"
	"time"

	"aromabot/pkg/logger"
)

// Observe logs every event until ctx ends or the bus closes.
func Observe(ctx context.Context, mb *MessageBus, log *slog.Logger) {
	log = logger.Component(log, "bus.events")
	events, unsubscribe := mb.SubscribeEvents(ctx, 32)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			logEvent(log, event)
		}
	}
}

func logEvent(log *slog.Logger, event Event) {
	attrs := []any{
		"event_type", event.Type,
		"request_id", event.RequestID,
		"channel", event.Channel,
		"chat_id", event.ChatID,
		"timestamp", event.At.UTC().Format(time.RFC3339Nano),
	}
	if event.Category != "" {
		attrs = append(attrs, "category", event.Category)
	}
	if len(event.Payload) > 0 {
		attrs = append(attrs, "payload", event.Payload)
	}

	switch event.Type {
	case EventReplyFailed, EventNotificationFailed:
		log.Error("Bot event", append(attrs, "error", event.Error)...)
	case EventRequestClassified, EventNotificationSent:
		log.Info("Bot event", attrs...)
	default:
		log.Debug("Bot event", attrs...)
	}
}
