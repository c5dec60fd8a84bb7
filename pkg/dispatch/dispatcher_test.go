package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"aromabot/pkg/advisor"
	"aromabot/pkg/bus"
	"aromabot/pkg/router"
	"aromabot/pkg/store"
	"aromabot/pkg/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	oils []store.Oil
	err  error
}

func (f *fakeCatalog) Lookup(_ context.Context, name string) (*store.Oil, error) {
	if f.err != nil {
		return nil, f.err
	}
	needle := strings.ToLower(name)
	for i := range f.oils {
		if strings.Contains(strings.ToLower(f.oils[i].Name), needle) {
			return &f.oils[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) AllOils(context.Context) ([]store.Oil, error) {
	return f.oils, f.err
}

type fakeAdvisor struct {
	mu       sync.Mutex
	moods    []string
	keywords [][]string
	music    []string
}

func (f *fakeAdvisor) MoodRecommendation(_ context.Context, mood string, oils []store.Oil, keywords []string) advisor.Recommendation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moods = append(f.moods, mood)
	f.keywords = append(f.keywords, keywords)
	return advisor.Recommendation{Text: "mood advice for " + mood}
}

func (f *fakeAdvisor) MusicRecommendation(_ context.Context, request string) advisor.Recommendation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.music = append(f.music, request)
	return advisor.Recommendation{Text: "music advice"}
}

type fakeSubscriptions struct {
	payloads []string
	users    []subscription.User
	err      error
}

func (f *fakeSubscriptions) Inquiry(_ context.Context, chatID string) (subscription.Reply, error) {
	if f.err != nil {
		return subscription.Reply{}, f.err
	}
	return subscription.Reply{Text: "inquiry " + chatID, Keyboard: bus.MainMenuKeyboard()}, nil
}

func (f *fakeSubscriptions) HandleCallback(_ context.Context, _ string, user subscription.User, payload string) (subscription.Reply, error) {
	f.payloads = append(f.payloads, payload)
	f.users = append(f.users, user)
	if f.err != nil {
		return subscription.Reply{}, f.err
	}
	return subscription.Reply{Text: "handled " + payload}, nil
}

type fakeRecorder struct {
	interactions []store.Interaction
	err          error
}

func (f *fakeRecorder) RecordInteraction(_ context.Context, interaction store.Interaction) error {
	f.interactions = append(f.interactions, interaction)
	return f.err
}

type fixture struct {
	dispatcher *Dispatcher
	catalog    *fakeCatalog
	advisor    *fakeAdvisor
	subs       *fakeSubscriptions
	recorder   *fakeRecorder
	events     *bus.MessageBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		catalog: &fakeCatalog{oils: []store.Oil{
			{Name: "Лаванда", Description: "Успокаивает"},
			{Name: "Мята перечная", Description: "Бодрит"},
		}},
		advisor:  &fakeAdvisor{},
		subs:     &fakeSubscriptions{},
		recorder: &fakeRecorder{},
		events:   bus.NewMessageBus(),
	}
	t.Cleanup(f.events.Close)

	d, err := New(Deps{
		Router:        router.New(nil),
		Catalog:       f.catalog,
		Advisor:       f.advisor,
		Subscriptions: f.subs,
		Interactions:  f.recorder,
		Events:        f.events,
	})
	require.NoError(t, err)
	d.newRequestID = func() string { return "req-1" }
	f.dispatcher = d
	return f
}

func text(body string) router.TextMessage {
	return router.TextMessage{ChatID: "42", UserID: "7", UserDisplayName: "Анна", Text: body}
}

func press(payload string) router.CallbackEvent {
	return router.CallbackEvent{ChatID: "42", UserID: "7", UserDisplayName: "Анна", CallbackID: "cb-1", Payload: payload}
}

func buttonPayloads(k bus.Keyboard) []string {
	var out []string
	for _, row := range k {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "router, catalog, advisor, subscriptions")
}

func TestCommandReplies(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		prefix    string
		parseMode string
		buttons   []string
	}{
		{name: "start", input: "/start", prefix: "🌿 **Привет, Анна! Я твой Арома-помощник!** 🌿", parseMode: bus.ParseModeMarkdown, buttons: []string{bus.CallbackMainMenu}},
		{name: "help", input: "/help", prefix: "🌿 **Помощь по использованию бота**", parseMode: bus.ParseModeMarkdown},
		{name: "menu", input: "/menu", prefix: "🏠 **Главное меню**", parseMode: bus.ParseModeMarkdown, buttons: []string{CallbackSearchOil, CallbackMusic, subscription.CallbackSubscribe, CallbackHelp}},
		{name: "greeting", input: "Привет!", prefix: "Привет, Анна! 😊"},
		{name: "unknown command", input: "/foo bar", prefix: `🤔 Не совсем понял ваш запрос: "/foo bar"`},
		{name: "unknown", input: "qwertyuiop123", prefix: `🤔 Не совсем понял ваш запрос: "qwertyuiop123"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			msg, err := f.dispatcher.Handle(context.Background(), text(tt.input))
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(msg.Text, tt.prefix), msg.Text)
			assert.Equal(t, tt.parseMode, msg.ParseMode)
			assert.Equal(t, tt.buttons, buttonPayloads(msg.Keyboard))
			assert.Equal(t, "42", msg.ChatID)
			assert.Equal(t, "telegram", msg.Channel)
			assert.Empty(t, msg.AnswerCallbackID)
		})
	}
}

func TestOilSearchFound(t *testing.T) {
	f := newFixture(t)

	msg, err := f.dispatcher.Handle(context.Background(), text("Мята перечная: что это?"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg.Text, "🌿 **Мята перечная**"), msg.Text)
	assert.Equal(t, bus.MainMenuKeyboard(), msg.Keyboard)
	assert.Equal(t, bus.ParseModeMarkdown, msg.ParseMode)
}

func TestOilSearchNotFound(t *testing.T) {
	f := newFixture(t)

	msg, err := f.dispatcher.Handle(context.Background(), text("есть пачули?"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg.Text, `🔍 Не нашел масло "пачули".`), msg.Text)
	assert.Contains(t, msg.Text, "💡 Возможно, ты искал:")
	assert.Nil(t, msg.Keyboard)
}

func TestOilBeatsMood(t *testing.T) {
	f := newFixture(t)

	msg, err := f.dispatcher.Handle(context.Background(), text("лаванда от стресса"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg.Text, "🌿 **Лаванда**"))
	assert.Empty(t, f.advisor.moods)
}

func TestMoodRequestUsesVerbatimMood(t *testing.T) {
	f := newFixture(t)

	msg, err := f.dispatcher.Handle(context.Background(), text("Нужна энергия!"))
	require.NoError(t, err)

	assert.Equal(t, "mood advice for Нужна энергия!", msg.Text)
	require.Equal(t, []string{"Нужна энергия!"}, f.advisor.moods)
	assert.Equal(t, []string{"настроение", "эмоции"}, f.advisor.keywords[0])
	assert.Equal(t, bus.MainMenuKeyboard(), msg.Keyboard)
}

func TestMusicRequestPassesOriginalText(t *testing.T) {
	f := newFixture(t)

	msg, err := f.dispatcher.Handle(context.Background(), text("Что послушать вечером"))
	require.NoError(t, err)

	assert.Equal(t, "music advice", msg.Text)
	assert.Equal(t, []string{"Что послушать вечером"}, f.advisor.music)
}

func TestSubscriptionInquiry(t *testing.T) {
	f := newFixture(t)

	msg, err := f.dispatcher.Handle(context.Background(), text("хочу подписаться"))
	require.NoError(t, err)

	assert.Equal(t, "inquiry 42", msg.Text)
	assert.Equal(t, bus.ParseModeMarkdown, msg.ParseMode)
}

func TestCallbacks(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		prefix  string
	}{
		{name: "main menu", payload: bus.CallbackMainMenu, prefix: "🏠 **Главное меню**"},
		{name: "help", payload: CallbackHelp, prefix: "🌿 **Помощь по использованию бота**"},
		{name: "search", payload: CallbackSearchOil, prefix: "🔍 **Поиск масла**"},
		{name: "music", payload: CallbackMusic, prefix: "music advice"},
		{name: "select oil", payload: "select_oil:лаванда", prefix: "🌿 **Лаванда**"},
		{name: "subscription", payload: "set_time:09:00", prefix: "handled set_time:09:00"},
		{name: "unknown", payload: "лаванда", prefix: "🤔 Неизвестная команда: лаванда"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			msg, err := f.dispatcher.Handle(context.Background(), press(tt.payload))
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(msg.Text, tt.prefix), msg.Text)
			assert.Equal(t, "cb-1", msg.AnswerCallbackID)
			assert.Equal(t, "42", msg.ChatID)
		})
	}
}

func TestSubscriptionCallbackCarriesUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Handle(context.Background(), press(subscription.CallbackSubscribeConfirm))
	require.NoError(t, err)

	require.Equal(t, []string{subscription.CallbackSubscribeConfirm}, f.subs.payloads)
	assert.Equal(t, subscription.User{ID: "7", DisplayName: "Анна"}, f.subs.users[0])
}

func TestCollaboratorFailureBecomesErrorReply(t *testing.T) {
	f := newFixture(t)
	f.catalog.err = errors.New("database is locked")

	events, unsubscribe := f.events.SubscribeEvents(context.Background(), 4)
	defer unsubscribe()

	msg, err := f.dispatcher.Handle(context.Background(), text("лаванда"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.Text, "❌ **Произошла ошибка**"))

	var types []bus.EventType
	timeout := time.After(time.Second)
	for len(types) < 2 {
		select {
		case event := <-events:
			types = append(types, event.Type)
			if event.Type == bus.EventReplyFailed {
				assert.Contains(t, event.Error, "database is locked")
				assert.Equal(t, "req-1", event.RequestID)
			}
		case <-timeout:
			t.Fatalf("expected two events, got %v", types)
		}
	}
	assert.Equal(t, []bus.EventType{bus.EventRequestClassified, bus.EventReplyFailed}, types)
}

func TestSubscriptionFailureOnCallbackStillAnswers(t *testing.T) {
	f := newFixture(t)
	f.subs.err = errors.New("boom")

	msg, err := f.dispatcher.Handle(context.Background(), press(subscription.CallbackUnsubscribe))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg.Text, "❌ **Произошла ошибка**"))
	assert.Equal(t, "cb-1", msg.AnswerCallbackID)
}

func TestBlankTextIsErrorReplyWithoutInteraction(t *testing.T) {
	f := newFixture(t)

	msg, err := f.dispatcher.Handle(context.Background(), text("   "))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg.Text, "❌ **Произошла ошибка**"))
	assert.Empty(t, f.recorder.interactions)
}

func TestInteractionsRecorded(t *testing.T) {
	f := newFixture(t)
	f.recorder.err = errors.New("disk full")

	_, err := f.dispatcher.Handle(context.Background(), text("/start"))
	require.NoError(t, err)
	_, err = f.dispatcher.Handle(context.Background(), press(bus.CallbackMainMenu))
	require.NoError(t, err)

	assert.Equal(t, []store.Interaction{
		{ChatID: "42", UserID: "7", RequestType: "start_command"},
		{ChatID: "42", UserID: "7", RequestType: "callback_query"},
	}, f.recorder.interactions)
}

func TestClassifiedEventPayload(t *testing.T) {
	f := newFixture(t)

	events, unsubscribe := f.events.SubscribeEvents(context.Background(), 4)
	defer unsubscribe()

	_, err := f.dispatcher.Handle(context.Background(), text("мята"))
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, bus.EventRequestClassified, event.Type)
		assert.Equal(t, "oil_search", event.Category)
		assert.Equal(t, "telegram", event.Channel)
		assert.Equal(t, "мята", event.Payload["oil_name"])
		assert.Equal(t, "7", event.Payload["user_id"])
	case <-time.After(time.Second):
		t.Fatal("expected classified event")
	}
}

type stubAnalyzer struct{ result router.Result }

func (s stubAnalyzer) Analyze(router.InboundEvent) router.Result { return s.result }

func TestUnhandledCategoryIsReturnedAsError(t *testing.T) {
	d, err := New(Deps{
		Router:        stubAnalyzer{result: router.Result{Category: "bogus", ChatID: "42"}},
		Catalog:       &fakeCatalog{},
		Advisor:       &fakeAdvisor{},
		Subscriptions: &fakeSubscriptions{},
	})
	require.NoError(t, err)

	_, err = d.Handle(context.Background(), text("x"))
	var unhandled *UnhandledCategoryError
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, router.Category("bogus"), unhandled.Category)
}
