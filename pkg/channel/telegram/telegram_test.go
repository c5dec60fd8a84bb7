package telegram

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"aromabot/pkg/bus"
	"aromabot/pkg/router"

	"github.com/mymmrac/telego"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []*telego.SendMessageParams
	answered []string
	actions  int
	failMode map[string]bool
}

func (f *fakeAPI) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *params
	f.sent = append(f.sent, &copied)
	if f.failMode[params.ParseMode] {
		return nil, errors.New("Bad Request: can't parse entities")
	}
	return &telego.Message{}, nil
}

func (f *fakeAPI) SendChatAction(context.Context, *telego.SendChatActionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions++
	return nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, params *telego.AnswerCallbackQueryParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, params.CallbackQueryID)
	return nil
}

func newTestAdapter(api *fakeAPI) *Adapter {
	return &Adapter{api: api, log: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}
}

func TestAllowFromSet(t *testing.T) {
	allowed := allowFromSet([]string{" 123 ", "", "456", "123"})
	if len(allowed) != 2 {
		t.Fatalf("allowFromSet len = %d, want 2", len(allowed))
	}
	if _, ok := allowed["123"]; !ok {
		t.Fatal("allowFromSet missing 123")
	}
	if _, ok := allowed["456"]; !ok {
		t.Fatal("allowFromSet missing 456")
	}
	if allowFromSet([]string{" ", ""}) != nil {
		t.Fatal("expected nil set for blank entries")
	}
}

func TestSenderAllowed(t *testing.T) {
	adapter := &Adapter{allowFrom: map[string]struct{}{"1": {}}}
	if !adapter.senderAllowed("1") {
		t.Fatal("expected sender 1 to be allowed")
	}
	if adapter.senderAllowed("2") {
		t.Fatal("expected sender 2 to be denied")
	}

	adapter.allowFrom = nil
	if !adapter.senderAllowed("any") {
		t.Fatal("expected sender to be allowed when allowlist empty")
	}
}

func TestPreviewText(t *testing.T) {
	short := " привет "
	if got := previewText(short); got != "привет" {
		t.Fatalf("previewText short = %q, want %q", got, "привет")
	}

	long := strings.Repeat("я", messagePreviewLimit+20)
	got := previewText(long)
	if n := len([]rune(got)); n != messagePreviewLimit+3 {
		t.Fatalf("previewText long rune len = %d, want %d", n, messagePreviewLimit+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("previewText long = %q, want ellipsis suffix", got)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		user telego.User
		want string
	}{
		{user: telego.User{FirstName: "Анна", Username: "anna"}, want: "Анна"},
		{user: telego.User{Username: "anna"}, want: "anna"},
		{user: telego.User{}, want: "User"},
	}

	for _, tt := range tests {
		if got := displayName(tt.user); got != tt.want {
			t.Fatalf("displayName(%+v) = %q, want %q", tt.user, got, tt.want)
		}
	}
}

func TestTextEvent(t *testing.T) {
	message := &telego.Message{
		Chat: telego.Chat{ID: -100},
		From: &telego.User{ID: 7, FirstName: "Анна"},
		Text: "лаванда",
	}

	event, ok := textEvent(message)
	if !ok {
		t.Fatal("expected text event")
	}
	want := router.TextMessage{ChatID: "-100", UserID: "7", UserDisplayName: "Анна", Text: "лаванда"}
	if event != want {
		t.Fatalf("textEvent = %+v, want %+v", event, want)
	}

	if _, ok := textEvent(&telego.Message{Chat: telego.Chat{ID: 1}, Text: "hi"}); ok {
		t.Fatal("expected message without sender to be skipped")
	}
	if _, ok := textEvent(&telego.Message{Chat: telego.Chat{ID: 1}, From: &telego.User{ID: 1}, Text: "  "}); ok {
		t.Fatal("expected blank message to be skipped")
	}
}

func TestCallbackEvent(t *testing.T) {
	query := &telego.CallbackQuery{
		ID:      "cb-1",
		From:    telego.User{ID: 7, Username: "anna"},
		Message: &telego.Message{Chat: telego.Chat{ID: 42}},
		Data:    "main_menu",
	}

	got := callbackEvent(query)
	want := router.CallbackEvent{ChatID: "42", UserID: "7", UserDisplayName: "anna", CallbackID: "cb-1", Payload: "main_menu"}
	if got != want {
		t.Fatalf("callbackEvent = %+v, want %+v", got, want)
	}

	query.Message = nil
	if got := callbackEvent(query); got.ChatID != "" {
		t.Fatalf("callbackEvent without message chat = %q, want empty", got.ChatID)
	}
}

func TestSendParamsKeyboard(t *testing.T) {
	params, err := sendParams(bus.OutboundMessage{
		ChatID:    "42",
		Text:      "hello",
		ParseMode: bus.ParseModeMarkdown,
		Keyboard: bus.Keyboard{
			{{Text: "A", Data: "a"}, {Text: "B", Data: "b"}},
			{},
			{bus.MainMenuButton()},
		},
	})
	if err != nil {
		t.Fatalf("sendParams: %v", err)
	}
	if params.ParseMode != telego.ModeMarkdown {
		t.Fatalf("parse mode = %q, want %q", params.ParseMode, telego.ModeMarkdown)
	}

	markup, ok := params.ReplyMarkup.(*telego.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("reply markup type = %T", params.ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 2 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected keyboard layout: %+v", markup.InlineKeyboard)
	}
	if markup.InlineKeyboard[1][0].CallbackData != bus.CallbackMainMenu {
		t.Fatalf("callback data = %q", markup.InlineKeyboard[1][0].CallbackData)
	}

	if _, err := sendParams(bus.OutboundMessage{ChatID: "unknown", Text: "x"}); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}

	plain, err := sendParams(bus.OutboundMessage{ChatID: "1", Text: "x"})
	if err != nil {
		t.Fatalf("sendParams plain: %v", err)
	}
	if plain.ReplyMarkup != nil || plain.ParseMode != "" {
		t.Fatalf("expected plain params, got %+v", plain)
	}
}

func TestSendRetriesWithoutMarkdown(t *testing.T) {
	api := &fakeAPI{failMode: map[string]bool{telego.ModeMarkdown: true}}
	adapter := newTestAdapter(api)

	err := adapter.Send(context.Background(), bus.OutboundMessage{ChatID: "42", Text: "*broken", ParseMode: bus.ParseModeMarkdown})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(api.sent) != 2 {
		t.Fatalf("send attempts = %d, want 2", len(api.sent))
	}
	if api.sent[1].ParseMode != "" {
		t.Fatalf("retry parse mode = %q, want empty", api.sent[1].ParseMode)
	}
}

func TestSendPlainFailureIsNotRetried(t *testing.T) {
	api := &fakeAPI{failMode: map[string]bool{"": true}}
	adapter := newTestAdapter(api)

	if err := adapter.Send(context.Background(), bus.OutboundMessage{ChatID: "42", Text: "x"}); err == nil {
		t.Fatal("expected send error")
	}
	if len(api.sent) != 1 {
		t.Fatalf("send attempts = %d, want 1", len(api.sent))
	}
}

func TestHandleCallbackUpdateAnswersQuery(t *testing.T) {
	api := &fakeAPI{}
	adapter := newTestAdapter(api)

	update := telego.Update{CallbackQuery: &telego.CallbackQuery{
		ID:      "cb-9",
		From:    telego.User{ID: 7},
		Message: &telego.Message{Chat: telego.Chat{ID: 42}},
		Data:    "main_menu",
	}}
	handler := func(_ context.Context, event router.InboundEvent) (bus.OutboundMessage, error) {
		cb, ok := event.(router.CallbackEvent)
		if !ok {
			t.Fatalf("event type = %T, want CallbackEvent", event)
		}
		return bus.OutboundMessage{ChatID: cb.ChatID, Text: "menu"}, nil
	}

	adapter.handleUpdate(context.Background(), update, handler)

	if len(api.sent) != 1 || api.sent[0].Text != "menu" {
		t.Fatalf("unexpected sends: %+v", api.sent)
	}
	if len(api.answered) != 1 || api.answered[0] != "cb-9" {
		t.Fatalf("answered = %v, want [cb-9]", api.answered)
	}
}

func TestHandleTextUpdateSkipsUnknownChat(t *testing.T) {
	api := &fakeAPI{}
	adapter := newTestAdapter(api)

	update := telego.Update{Message: &telego.Message{
		Chat: telego.Chat{ID: 42},
		From: &telego.User{ID: 7},
		Text: "привет",
	}}
	handler := func(context.Context, router.InboundEvent) (bus.OutboundMessage, error) {
		return bus.OutboundMessage{ChatID: router.UnknownChatID, Text: "error"}, nil
	}

	adapter.handleUpdate(context.Background(), update, handler)

	if len(api.sent) != 0 {
		t.Fatalf("expected no sends, got %d", len(api.sent))
	}
	if api.actions == 0 {
		t.Fatal("expected typing indicator")
	}
}

func TestHandleUpdateRespectsAllowList(t *testing.T) {
	api := &fakeAPI{}
	adapter := newTestAdapter(api)
	adapter.allowFrom = map[string]struct{}{"1": {}}

	called := false
	handler := func(context.Context, router.InboundEvent) (bus.OutboundMessage, error) {
		called = true
		return bus.OutboundMessage{}, nil
	}

	adapter.handleUpdate(context.Background(), telego.Update{Message: &telego.Message{
		Chat: telego.Chat{ID: 42}, From: &telego.User{ID: 7}, Text: "привет",
	}}, handler)
	adapter.handleUpdate(context.Background(), telego.Update{CallbackQuery: &telego.CallbackQuery{
		ID: "cb-1", From: telego.User{ID: 7}, Data: "main_menu",
	}}, handler)

	if called {
		t.Fatal("handler must not run for senders outside the allow list")
	}
	if len(api.answered) != 1 {
		t.Fatalf("denied callback should still be answered, got %v", api.answered)
	}
}

func TestTelegoLoggerMasksToken(t *testing.T) {
	var out bytes.Buffer
	l := telegoLogger{log: slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})), token: "123:secret"}

	l.Debugf("calling https://api.telegram.org/bot%s/getMe", "123:secret")

	if strings.Contains(out.String(), "secret") {
		t.Fatalf("token leaked: %s", out.String())
	}
	if !strings.Contains(out.String(), "BOT_TOKEN") {
		t.Fatalf("expected masked token: %s", out.String())
	}
}
