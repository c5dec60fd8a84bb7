package router

// InboundEvent is one parsed update from a messaging channel. It is either a
// TextMessage or a CallbackEvent; channel adapters build it once per update.
type InboundEvent interface {
	inboundEvent()
}

// TextMessage is free text typed by a user.
type TextMessage struct {
	ChatID          string `json:"chat_id"`
	UserID          string `json:"user_id"`
	UserDisplayName string `json:"user_display_name"`
	Text            string `json:"text"`
}

// CallbackEvent is an inline keyboard button press. Payload is the opaque
// identifier assigned to the button when it was rendered.
type CallbackEvent struct {
	ChatID          string `json:"chat_id"`
	UserID          string `json:"user_id"`
	UserDisplayName string `json:"user_display_name"`
	CallbackID      string `json:"callback_id"`
	Payload         string `json:"payload"`
}

func (TextMessage) inboundEvent()   {}
func (CallbackEvent) inboundEvent() {}
