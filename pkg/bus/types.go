package bus

// ParseModeMarkdown asks the channel to render Telegram legacy Markdown.
const ParseModeMarkdown = "Markdown"

// CallbackMainMenu is the payload of the "home" button present on most replies.
const CallbackMainMenu = "main_menu"

// Button is one inline keyboard button. Data is the callback payload sent
// back when the button is pressed.
type Button struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// Keyboard is an inline keyboard laid out as rows of buttons.
type Keyboard [][]Button

// MainMenuButton returns the shared "home" button.
func MainMenuButton() Button {
	return Button{Text: "🏠 Главное меню", Data: CallbackMainMenu}
}

// MainMenuKeyboard is a keyboard holding only the home button.
func MainMenuKeyboard() Keyboard {
	return Keyboard{{MainMenuButton()}}
}

// Empty reports whether the keyboard has no buttons at all.
func (k Keyboard) Empty() bool {
	for _, row := range k {
		if len(row) > 0 {
			return false
		}
	}
	return true
}

// OutboundMessage is one reply for a channel to deliver.
type OutboundMessage struct {
	Channel   string   `json:"channel,omitempty"`
	ChatID    string   `json:"chat_id"`
	Text      string   `json:"text"`
	ParseMode string   `json:"parse_mode,omitempty"`
	Keyboard  Keyboard `json:"keyboard,omitempty"`
	// AnswerCallbackID is set when the reply answers a button press.
	AnswerCallbackID string `json:"answer_callback_id,omitempty"`
}
