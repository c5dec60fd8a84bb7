package dispatch

import (
	"fmt"

	"aromabot/pkg/bus"
	"aromabot/pkg/subscription"
)

// Menu callback payloads.
const (
	CallbackHelp            = "help"
	CallbackSearchOil       = "search_oil"
	CallbackMusic           = "music"
	CallbackSelectOilPrefix = "select_oil:"
)

const defaultMusicRequest = "музыка для ароматерапии и расслабления"

func startReply(name string) bus.OutboundMessage {
	return markdown(fmt.Sprintf(`🌿 **Привет, %s! Я твой Арома-помощник!** 🌿

✨ **Что я умею:**

🔍 **Рассказать про любое масло:**
- Просто напиши: "мята", "лаванда", "лимон"
- Или: "расскажи про эвкалипт"

🤖 **Дать научные рекомендации:**
- "нужна энергия" → рекомендации с исследованиями
- "хочу расслабиться" → советы экспертов
- "простуда" → актуальные данные о лечении

Просто напиши что тебя интересует! 😊`, name), bus.MainMenuKeyboard())
}

func helpReply() bus.OutboundMessage {
	return markdown(`🌿 **Помощь по использованию бота**

🔍 **Поиск масел:**
• Название масла: "лаванда", "мята", "лимон"
• Описание эффекта: "нужна энергия", "хочу расслабиться"
• Симптомы: "головная боль", "простуда", "стресс"

🎵 **Музыкальные рекомендации:**
• "музыка для расслабления"
• "что послушать с лавандой"

📱 **Подписка на советы:**
• "подписаться" - ежедневные рекомендации
• "настройки" - изменить время уведомлений

💡 **Примеры запросов:**
• "расскажи про эвкалипт"
• "нужна энергия"
• "музыка на сегодня"
• "подписаться на советы"`, nil)
}

func mainMenuReply() bus.OutboundMessage {
	return markdown(`🏠 **Главное меню**

Выберите, что вас интересует:`, bus.Keyboard{
		{
			{Text: "🌿 Поиск масла", Data: CallbackSearchOil},
			{Text: "🎵 Музыка", Data: CallbackMusic},
		},
		{
			{Text: "📱 Подписаться", Data: subscription.CallbackSubscribe},
			{Text: "❓ Помощь", Data: CallbackHelp},
		},
	})
}

func searchOilReply() bus.OutboundMessage {
	return markdown(`🔍 **Поиск масла**

Напишите название масла, например: "лаванда", "мята" или "расскажи про эвкалипт".`, bus.MainMenuKeyboard())
}

func greetingReply(name string) bus.OutboundMessage {
	return plain(fmt.Sprintf(`Привет, %s! 😊

Я твой Арома-помощник! Просто напиши мне, что тебя интересует:
• Название масла: "лаванда", "мята"
• Твое настроение: "нужна энергия", "хочу расслабиться"
• Или просто спроси: "что ты умеешь?"`, name))
}

func unknownReply(text string) bus.OutboundMessage {
	return plain(fmt.Sprintf(`🤔 Не совсем понял ваш запрос: "%s"

💡 **Попробуйте:**
• Название масла: "лаванда", "мята", "лимон"
• Описание проблемы: "нужна энергия", "стресс"
• Команду: /help - для получения справки

Или просто напишите "помощь" для получения подробной информации! 😊`, text))
}

func unknownCallbackReply(payload string) bus.OutboundMessage {
	return plain(fmt.Sprintf(`🤔 Неизвестная команда: %s

Попробуйте использовать кнопки меню или напишите "помощь" для получения справки.`, payload))
}

func errorReply() bus.OutboundMessage {
	return markdown(`❌ **Произошла ошибка**

Попробуйте еще раз или напишите "помощь" для получения справки.`, nil)
}

func markdown(text string, keyboard bus.Keyboard) bus.OutboundMessage {
	return bus.OutboundMessage{Text: text, ParseMode: bus.ParseModeMarkdown, Keyboard: keyboard}
}

func plain(text string) bus.OutboundMessage {
	return bus.OutboundMessage{Text: text}
}
