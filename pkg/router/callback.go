package router

import "time"

const callbackTextPrefix = "callback:"

// AdaptCallback turns a button press into a CallbackQuery result. Payloads
// are identifiers chosen by whoever rendered the button, so they are never
// keyword-classified.
func AdaptCallback(event CallbackEvent, at time.Time) Result {
	return Result{
		OriginalText:    callbackTextPrefix + event.Payload,
		Category:        CategoryCallbackQuery,
		ChatID:          event.ChatID,
		UserID:          event.UserID,
		UserDisplayName: displayName(event.UserDisplayName),
		Metadata: Metadata{
			CallbackPayload: event.Payload,
			CallbackID:      event.CallbackID,
		},
		Timestamp: at,
	}
}
