package router

// Category is the intent assigned to one inbound event.
type Category string

const (
	CategoryStartCommand             Category = "start_command"
	CategoryHelpCommand              Category = "help_command"
	CategoryMenuCommand              Category = "menu_command"
	CategoryOilSearch                Category = "oil_search"
	CategoryMoodRequest              Category = "mood_request"
	CategorySubscriptionInquiry      Category = "subscription_inquiry"
	CategorySubscriptionConfirmation Category = "subscription_confirmation"
	CategoryMusicRequest             Category = "music_request"
	CategoryGreeting                 Category = "greeting"
	CategoryCallbackQuery            Category = "callback_query"
	CategoryUnknownCommand           Category = "unknown_command"
	CategoryUnknown                  Category = "unknown"
	CategoryError                    Category = "error"
)

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{
		CategoryStartCommand,
		CategoryHelpCommand,
		CategoryMenuCommand,
		CategoryOilSearch,
		CategoryMoodRequest,
		CategorySubscriptionInquiry,
		CategorySubscriptionConfirmation,
		CategoryMusicRequest,
		CategoryGreeting,
		CategoryCallbackQuery,
		CategoryUnknownCommand,
		CategoryUnknown,
		CategoryError,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}

	return false
}

func (c Category) String() string {
	return string(c)
}
