package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"aromabot/pkg/bus"
	"aromabot/pkg/channel"
	"aromabot/pkg/config"
	"aromabot/pkg/logger"
	"aromabot/pkg/router"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"
const messagePreviewLimit = 240
const typingRefreshInterval = 4 * time.Second
const maxConcurrentUpdates = 8
const defaultDisplayName = "User"

// botAPI is the subset of the Telegram Bot API the adapter calls.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendChatAction(ctx context.Context, params *telego.SendChatActionParams) error
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
}

// Adapter bridges Telegram updates into router events and delivers replies.
type Adapter struct {
	cfg       config.TelegramConfig
	allowFrom map[string]struct{}
	bot       *telego.Bot
	api       botAPI
	log       *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	log = logger.Component(log, "channel.telegram")

	options := []telego.BotOption{telego.WithLogger(telegoLogger{log: log, token: token})}
	if proxy := strings.TrimSpace(cfg.Proxy); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse channels.telegram.proxy: %w", err)
		}
		options = append(options, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}))
	}

	bot, err := telego.NewBot(token, options...)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: allowFromSet(cfg.AllowFrom),
		bot:       bot,
		api:       bot,
		log:       log,
	}, nil
}

// Name returns the channel identifier used in events and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and forwards updates through handler.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	queue := newChatQueue(maxConcurrentUpdates, func(ctx context.Context, update telego.Update) {
		a.handleUpdate(ctx, update, handler)
	})
	defer queue.wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			queue.push(ctx, update)
		}
	}
}

func (a *Adapter) handleUpdate(ctx context.Context, update telego.Update, handler channel.Handler) {
	switch {
	case update.Message != nil:
		event, ok := textEvent(update.Message)
		if !ok {
			return
		}
		if !a.senderAllowed(event.UserID) {
			a.log.Debug("Ignoring message from unauthorized sender", "sender_id", event.UserID)
			return
		}
		a.log.Info("Received message", "chat_id", event.ChatID, "sender_id", event.UserID, "content", previewText(event.Text))

		stopTyping := a.startTypingIndicator(ctx, update.Message.Chat.ID)
		outbound, err := handler(ctx, event)
		stopTyping()
		a.deliver(ctx, outbound, err)

	case update.CallbackQuery != nil:
		event := callbackEvent(update.CallbackQuery)
		if !a.senderAllowed(event.UserID) {
			a.log.Debug("Ignoring callback from unauthorized sender", "sender_id", event.UserID)
			a.answerCallback(ctx, event.CallbackID)
			return
		}
		a.log.Info("Received callback", "chat_id", event.ChatID, "sender_id", event.UserID, "payload", event.Payload)

		outbound, err := handler(ctx, event)
		if outbound.AnswerCallbackID == "" {
			outbound.AnswerCallbackID = event.CallbackID
		}
		a.deliver(ctx, outbound, err)
	}
}

func (a *Adapter) deliver(ctx context.Context, outbound bus.OutboundMessage, handleErr error) {
	if handleErr != nil {
		a.log.Error("Failed to process inbound event", "error", handleErr)
	}

	if strings.TrimSpace(outbound.Text) != "" && outbound.ChatID != router.UnknownChatID {
		if err := a.Send(ctx, outbound); err != nil {
			a.log.Error("Failed to send telegram message", "chat_id", outbound.ChatID, "error", err)
		}
	}

	a.answerCallback(ctx, outbound.AnswerCallbackID)
}

// Send delivers msg, retrying once as plain text when Telegram rejects the
// parse mode. It also serves scheduled tip delivery.
func (a *Adapter) Send(ctx context.Context, msg bus.OutboundMessage) error {
	params, err := sendParams(msg)
	if err != nil {
		return err
	}
	a.log.Info("Sending message", "chat_id", msg.ChatID, "content", previewText(msg.Text))

	if _, err := a.api.SendMessage(ctx, params); err != nil {
		if params.ParseMode == "" {
			return fmt.Errorf("send message: %w", err)
		}
		a.log.Warn("Markdown send failed, retrying as plain text", "chat_id", msg.ChatID, "error", err)
		params.ParseMode = ""
		if _, retryErr := a.api.SendMessage(ctx, params); retryErr != nil {
			return fmt.Errorf("send message: %w", errors.Join(err, retryErr))
		}
	}

	return nil
}

func (a *Adapter) answerCallback(ctx context.Context, callbackID string) {
	if callbackID == "" {
		return
	}
	if err := a.api.AnswerCallbackQuery(ctx, tu.CallbackQuery(callbackID)); err != nil {
		a.log.Debug("Failed to answer callback query", "callback_id", callbackID, "error", err)
	}
}

// textEvent converts a Telegram message; non-text messages and messages
// without a sender are skipped.
func textEvent(message *telego.Message) (router.TextMessage, bool) {
	if message == nil || message.From == nil || strings.TrimSpace(message.Text) == "" {
		return router.TextMessage{}, false
	}

	return router.TextMessage{
		ChatID:          strconv.FormatInt(message.Chat.ID, 10),
		UserID:          strconv.FormatInt(message.From.ID, 10),
		UserDisplayName: displayName(*message.From),
		Text:            message.Text,
	}, true
}

// callbackEvent converts a button press. Presses on messages Telegram no
// longer returns carry no chat id; the router reports those as errors.
func callbackEvent(query *telego.CallbackQuery) router.CallbackEvent {
	event := router.CallbackEvent{
		UserID:          strconv.FormatInt(query.From.ID, 10),
		UserDisplayName: displayName(query.From),
		CallbackID:      query.ID,
		Payload:         query.Data,
	}
	if query.Message != nil {
		if chatID := query.Message.GetChat().ID; chatID != 0 {
			event.ChatID = strconv.FormatInt(chatID, 10)
		}
	}
	return event
}

func displayName(user telego.User) string {
	if name := strings.TrimSpace(user.FirstName); name != "" {
		return name
	}
	if name := strings.TrimSpace(user.Username); name != "" {
		return name
	}
	return defaultDisplayName
}

func sendParams(msg bus.OutboundMessage) (*telego.SendMessageParams, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(msg.ChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", msg.ChatID, err)
	}

	params := tu.Message(tu.ID(chatID), msg.Text)
	if msg.ParseMode != "" {
		params = params.WithParseMode(msg.ParseMode)
	}
	if markup := inlineKeyboard(msg.Keyboard); markup != nil {
		params = params.WithReplyMarkup(markup)
	}
	return params, nil
}

func inlineKeyboard(keyboard bus.Keyboard) *telego.InlineKeyboardMarkup {
	if keyboard.Empty() {
		return nil
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		if len(row) == 0 {
			continue
		}
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(button.Text).WithCallbackData(button.Data))
		}
		rows = append(rows, tu.InlineKeyboardRow(buttons...))
	}
	return tu.InlineKeyboard(rows...)
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= messagePreviewLimit {
		return trimmed
	}

	return string(runes[:messagePreviewLimit]) + "..."
}

// startTypingIndicator sends an initial typing action and refreshes it periodically
// until the returned cancel function is called.
func (a *Adapter) startTypingIndicator(ctx context.Context, chatID int64) context.CancelFunc {
	typingCtx, cancel := context.WithCancel(ctx)

	sendTyping := func() {
		if err := a.api.SendChatAction(typingCtx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping)); err != nil && typingCtx.Err() == nil {
			a.log.Debug("Failed to send typing indicator", "chat_id", chatID, "error", err)
		}
	}

	sendTyping()

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				sendTyping()
			}
		}
	}()

	return cancel
}

// telegoLogger routes telego's internal logs to slog with the bot token masked.
type telegoLogger struct {
	log   *slog.Logger
	token string
}

func (l telegoLogger) Debugf(format string, args ...any) {
	l.log.Debug(l.mask(fmt.Sprintf(format, args...)))
}

func (l telegoLogger) Errorf(format string, args ...any) {
	l.log.Error(l.mask(fmt.Sprintf(format, args...)))
}

func (l telegoLogger) mask(text string) string {
	if l.token == "" {
		return text
	}
	return strings.ReplaceAll(text, l.token, "BOT_TOKEN")
}
