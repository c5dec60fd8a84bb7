// Package subscription manages daily tip subscriptions: the button-driven
// conversation and the scheduler that delivers tips.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"aromabot/pkg/bus"
	"aromabot/pkg/config"
	"aromabot/pkg/logger"
	"aromabot/pkg/store"
)

// Callback payloads rendered on subscription keyboards.
const (
	CallbackSubscribe        = "subscribe"
	CallbackSubscribeConfirm = "subscribe_confirm"
	CallbackUnsubscribe      = "unsubscribe"
	CallbackChangeTime       = "change_time"
	CallbackStatistics       = "statistics"
	CallbackSetTimePrefix    = "set_time:"
)

const timeOptionsPerRow = 3

// IsCallback reports whether payload belongs to the subscription flow.
func IsCallback(payload string) bool {
	switch payload {
	case CallbackUnsubscribe, CallbackChangeTime, CallbackStatistics:
		return true
	}
	return strings.HasPrefix(payload, CallbackSubscribe) || strings.HasPrefix(payload, CallbackSetTimePrefix)
}

// Store is the persistence the conversation needs.
type Store interface {
	GetSubscription(ctx context.Context, chatID string) (*store.Subscription, error)
	UpsertSubscription(ctx context.Context, sub store.Subscription) (*store.Subscription, error)
	SetSubscriptionActive(ctx context.Context, chatID string, active bool) error
	SetNotificationTime(ctx context.Context, chatID string, clock string) error
}

// User identifies who pressed a button.
type User struct {
	ID          string
	Username    string
	DisplayName string
}

func (u User) name() string {
	if u.Username != "" {
		return u.Username
	}
	return u.DisplayName
}

// Reply is the text and keyboard to send back.
type Reply struct {
	Text     string
	Keyboard bus.Keyboard
}

// Service renders the subscription conversation.
type Service struct {
	repo        Store
	defaultTime string
	timeOptions []string
	now         func() time.Time
	log         *slog.Logger
}

// NewService builds the conversation over repo using the configured times.
func NewService(repo Store, cfg config.SubscriptionsConfig, log *slog.Logger) *Service {
	defaultTime := cfg.DefaultTime
	if defaultTime == "" {
		defaultTime = config.DefaultNotifyTime
	}
	options := cfg.TimeOptions
	if len(options) == 0 {
		options = config.DefaultTimeOptions
	}

	return &Service{
		repo:        repo,
		defaultTime: defaultTime,
		timeOptions: slices.Clone(options),
		now:         time.Now,
		log:         logger.Component(log, "subscription"),
	}
}

// Inquiry shows the current subscription or offers one.
func (s *Service) Inquiry(ctx context.Context, chatID string) (Reply, error) {
	sub, err := s.repo.GetSubscription(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return s.offerReply(), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("load subscription: %w", err)
	}

	return s.statusReply(sub), nil
}

// HandleCallback applies one subscription button press.
func (s *Service) HandleCallback(ctx context.Context, chatID string, user User, payload string) (Reply, error) {
	switch {
	case payload == CallbackSubscribeConfirm:
		return s.subscribe(ctx, chatID, user)
	case payload == CallbackSubscribe:
		return s.Inquiry(ctx, chatID)
	case payload == CallbackUnsubscribe:
		return s.unsubscribe(ctx, chatID)
	case payload == CallbackChangeTime:
		return s.timeOptionsReply(), nil
	case strings.HasPrefix(payload, CallbackSetTimePrefix):
		return s.setTime(ctx, chatID, strings.TrimPrefix(payload, CallbackSetTimePrefix))
	case payload == CallbackStatistics:
		return s.statistics(ctx, chatID)
	default:
		s.log.Warn("unknown subscription callback", "chat_id", chatID, "payload", payload)
		return menuReply("❌ Неизвестная команда"), nil
	}
}

func (s *Service) subscribe(ctx context.Context, chatID string, user User) (Reply, error) {
	clock := s.defaultTime
	existing, err := s.repo.GetSubscription(ctx, chatID)
	switch {
	case err == nil && existing.NotificationTime != "":
		clock = existing.NotificationTime
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return Reply{}, fmt.Errorf("load subscription: %w", err)
	}

	sub, err := s.repo.UpsertSubscription(ctx, store.Subscription{
		ChatID:           chatID,
		UserID:           user.ID,
		Username:         user.name(),
		Active:           true,
		NotificationTime: clock,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("subscribe: %w", err)
	}
	s.log.Info("subscription activated", "chat_id", chatID, "notification_time", sub.NotificationTime)

	return menuReply(fmt.Sprintf(`✅ **Подписка оформлена!**

🌿 Теперь вы будете получать ежедневные арома-советы в %s.

💡 **Первая рекомендация:**
Попробуйте **лаванду** для расслабления вечером или **мяту** для энергии утром!

📱 Управление подпиской доступно в главном меню.`, sub.NotificationTime)), nil
}

func (s *Service) unsubscribe(ctx context.Context, chatID string) (Reply, error) {
	err := s.repo.SetSubscriptionActive(ctx, chatID, false)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundReply(), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("unsubscribe: %w", err)
	}
	s.log.Info("subscription deactivated", "chat_id", chatID)

	return menuReply(`🔕 **Подписка отключена**

Вы больше не будете получать ежедневные уведомления.

💡 Можете в любой момент подписаться снова через главное меню!`), nil
}

func (s *Service) setTime(ctx context.Context, chatID string, clock string) (Reply, error) {
	if !slices.Contains(s.timeOptions, clock) {
		s.log.Warn("rejected notification time", "chat_id", chatID, "time", clock)
		return menuReply("❌ Неизвестная команда"), nil
	}

	err := s.repo.SetNotificationTime(ctx, chatID, clock)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundReply(), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("set notification time: %w", err)
	}
	s.log.Info("notification time changed", "chat_id", chatID, "notification_time", clock)

	return menuReply(fmt.Sprintf(`⏰ **Время уведомлений обновлено**

Теперь арома-советы будут приходить в %s.`, clock)), nil
}

func (s *Service) statistics(ctx context.Context, chatID string) (Reply, error) {
	sub, err := s.repo.GetSubscription(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundReply(), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("load subscription: %w", err)
	}

	days := max(int(s.now().Sub(sub.CreatedAt)/(24*time.Hour)), 0)

	return menuReply(fmt.Sprintf(`📊 **Ваша статистика**

📅 Подписаны: %d дней
⏰ Время уведомлений: %s
📱 Статус: %s

💡 Продолжайте использовать ароматерапию для здоровья и хорошего настроения!`, days, sub.NotificationTime, statusLabel(sub.Active))), nil
}

func (s *Service) statusReply(sub *store.Subscription) Reply {
	clock := sub.NotificationTime
	if clock == "" {
		clock = s.defaultTime
	}

	return Reply{
		Text: fmt.Sprintf(`📱 **Ваша подписка активна!**

⏰ Время уведомлений: %s
📅 Статус: %s

💡 **Управление подпиской:**
• "отписаться" - отключить уведомления
• "изменить время" - настроить время уведомлений
• "статистика" - посмотреть историю рекомендаций`, clock, statusLabel(sub.Active)),
		Keyboard: bus.Keyboard{
			{
				{Text: "🔕 Отписаться", Data: CallbackUnsubscribe},
				{Text: "⏰ Изменить время", Data: CallbackChangeTime},
			},
			{
				{Text: "📊 Статистика", Data: CallbackStatistics},
				bus.MainMenuButton(),
			},
		},
	}
}

func (s *Service) offerReply() Reply {
	return Reply{
		Text: fmt.Sprintf(`📱 **Подписка на арома-советы**

Получайте ежедневные рекомендации по эфирным маслам!

✨ **Что включено:**
• Ежедневные советы по ароматерапии
• Рекомендации по настроению
• Новости о маслах
• Сезонные советы

⏰ **Время уведомлений:** %s (по умолчанию)

Хотите подписаться?`, s.defaultTime),
		Keyboard: bus.Keyboard{
			{
				{Text: "✅ Подписаться", Data: CallbackSubscribeConfirm},
				{Text: "❌ Отмена", Data: bus.CallbackMainMenu},
			},
		},
	}
}

func (s *Service) timeOptionsReply() Reply {
	keyboard := make(bus.Keyboard, 0, len(s.timeOptions)/timeOptionsPerRow+2)
	for chunk := range slices.Chunk(s.timeOptions, timeOptionsPerRow) {
		row := make([]bus.Button, 0, len(chunk))
		for _, clock := range chunk {
			row = append(row, bus.Button{Text: clock, Data: CallbackSetTimePrefix + clock})
		}
		keyboard = append(keyboard, row)
	}
	keyboard = append(keyboard, []bus.Button{bus.MainMenuButton()})

	return Reply{
		Text: `⏰ **Выберите время уведомлений**

В какое время вы хотите получать ежедневные арома-советы?`,
		Keyboard: keyboard,
	}
}

func statusLabel(active bool) string {
	if active {
		return "Активна"
	}
	return "Неактивна"
}

func menuReply(text string) Reply {
	return Reply{Text: text, Keyboard: bus.MainMenuKeyboard()}
}

func notFoundReply() Reply {
	return menuReply("❌ Подписка не найдена")
}
