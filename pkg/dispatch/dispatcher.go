// Package dispatch turns a classified request into the reply a channel
// sends back, calling the catalog, advisor and subscription services.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"aromabot/pkg/advisor"
	"aromabot/pkg/bus"
	"aromabot/pkg/logger"
	"aromabot/pkg/oils"
	"aromabot/pkg/router"
	"aromabot/pkg/store"
	"aromabot/pkg/subscription"
)

// Analyzer classifies inbound events.
type Analyzer interface {
	Analyze(event router.InboundEvent) router.Result
}

// Catalog answers oil questions.
type Catalog interface {
	Lookup(ctx context.Context, name string) (*store.Oil, error)
	AllOils(ctx context.Context) ([]store.Oil, error)
}

// Advisor produces AI recommendations.
type Advisor interface {
	MoodRecommendation(ctx context.Context, mood string, oils []store.Oil, keywords []string) advisor.Recommendation
	MusicRecommendation(ctx context.Context, request string) advisor.Recommendation
}

// Subscriptions runs the subscription conversation.
type Subscriptions interface {
	Inquiry(ctx context.Context, chatID string) (subscription.Reply, error)
	HandleCallback(ctx context.Context, chatID string, user subscription.User, payload string) (subscription.Reply, error)
}

// InteractionRecorder stores one row per handled request.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, interaction store.Interaction) error
}

// Deps wires a Dispatcher. Interactions and Events are optional.
type Deps struct {
	Channel       string
	Router        Analyzer
	Catalog       Catalog
	Advisor       Advisor
	Subscriptions Subscriptions
	Interactions  InteractionRecorder
	Events        *bus.MessageBus
	Logger        *slog.Logger
}

// Dispatcher routes classified requests to their handlers.
type Dispatcher struct {
	channel       string
	router        Analyzer
	catalog       Catalog
	advisor       Advisor
	subscriptions Subscriptions
	interactions  InteractionRecorder
	events        *bus.MessageBus
	newRequestID  func() string
	log           *slog.Logger
}

// New validates deps and returns a dispatcher.
func New(deps Deps) (*Dispatcher, error) {
	var missing []string
	if deps.Router == nil {
		missing = append(missing, "router")
	}
	if deps.Catalog == nil {
		missing = append(missing, "catalog")
	}
	if deps.Advisor == nil {
		missing = append(missing, "advisor")
	}
	if deps.Subscriptions == nil {
		missing = append(missing, "subscriptions")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dispatcher missing dependencies: %s", strings.Join(missing, ", "))
	}

	channel := deps.Channel
	if channel == "" {
		channel = "telegram"
	}

	return &Dispatcher{
		channel:       channel,
		router:        deps.Router,
		catalog:       deps.Catalog,
		advisor:       deps.Advisor,
		subscriptions: deps.Subscriptions,
		interactions:  deps.Interactions,
		events:        deps.Events,
		newRequestID:  uuid.NewString,
		log:           logger.Component(deps.Logger, "dispatch"),
	}, nil
}

// Handle classifies event and builds the reply. Collaborator failures become
// the generic error reply; the returned error only reports a category the
// dispatcher has no handler for.
func (d *Dispatcher) Handle(ctx context.Context, event router.InboundEvent) (bus.OutboundMessage, error) {
	started := time.Now()
	requestID := d.newRequestID()
	result := d.router.Analyze(event)

	log := d.log.With("request_id", requestID, "chat_id", result.ChatID, "category", result.Category)
	if result.Category == router.CategoryError {
		log.Warn("request rejected", "reason", result.Reason)
	}

	d.record(ctx, log, result)
	d.publish(ctx, bus.Event{
		Type:      bus.EventRequestClassified,
		ChatID:    result.ChatID,
		RequestID: requestID,
		Category:  result.Category.String(),
		Payload:   eventPayload(result),
	})

	msg, err := d.route(ctx, result)
	if err != nil {
		var unhandled *UnhandledCategoryError
		if errors.As(err, &unhandled) {
			return bus.OutboundMessage{}, err
		}
		log.Error("request failed", "error", err)
		d.publish(ctx, bus.Event{
			Type:      bus.EventReplyFailed,
			ChatID:    result.ChatID,
			RequestID: requestID,
			Category:  result.Category.String(),
			Error:     err.Error(),
		})
		msg = errorReply()
	}

	msg.Channel = d.channel
	msg.ChatID = result.ChatID
	if result.Category == router.CategoryCallbackQuery {
		msg.AnswerCallbackID = result.Metadata.CallbackID
	}

	log.Debug("request handled", "duration_ms", time.Since(started).Milliseconds())
	return msg, nil
}

// UnhandledCategoryError reports a classification with no reply handler.
type UnhandledCategoryError struct {
	Category router.Category
}

func (e *UnhandledCategoryError) Error() string {
	return fmt.Sprintf("no handler for category %q", e.Category)
}

func (d *Dispatcher) route(ctx context.Context, result router.Result) (bus.OutboundMessage, error) {
	switch result.Category {
	case router.CategoryStartCommand:
		return startReply(result.UserDisplayName), nil
	case router.CategoryHelpCommand:
		return helpReply(), nil
	case router.CategoryMenuCommand:
		return mainMenuReply(), nil
	case router.CategoryGreeting:
		return greetingReply(result.UserDisplayName), nil
	case router.CategoryUnknown, router.CategoryUnknownCommand:
		return unknownReply(result.OriginalText), nil
	case router.CategoryError:
		return errorReply(), nil
	case router.CategoryOilSearch:
		return d.oilSearch(ctx, result.Metadata.OilName)
	case router.CategoryMoodRequest:
		return d.moodRequest(ctx, result.Metadata.Mood, result.Metadata.Keywords)
	case router.CategorySubscriptionInquiry, router.CategorySubscriptionConfirmation:
		reply, err := d.subscriptions.Inquiry(ctx, result.ChatID)
		if err != nil {
			return bus.OutboundMessage{}, fmt.Errorf("subscription inquiry: %w", err)
		}
		return markdown(reply.Text, reply.Keyboard), nil
	case router.CategoryMusicRequest:
		return d.musicRequest(ctx, result.OriginalText), nil
	case router.CategoryCallbackQuery:
		return d.callback(ctx, result)
	default:
		return bus.OutboundMessage{}, &UnhandledCategoryError{Category: result.Category}
	}
}

func (d *Dispatcher) callback(ctx context.Context, result router.Result) (bus.OutboundMessage, error) {
	payload := result.Metadata.CallbackPayload

	switch {
	case payload == bus.CallbackMainMenu:
		return mainMenuReply(), nil
	case payload == CallbackHelp:
		return helpReply(), nil
	case payload == CallbackSearchOil:
		return searchOilReply(), nil
	case payload == CallbackMusic:
		return d.musicRequest(ctx, defaultMusicRequest), nil
	case strings.HasPrefix(payload, CallbackSelectOilPrefix):
		return d.oilSearch(ctx, strings.TrimPrefix(payload, CallbackSelectOilPrefix))
	case subscription.IsCallback(payload):
		user := subscription.User{ID: result.UserID, DisplayName: result.UserDisplayName}
		reply, err := d.subscriptions.HandleCallback(ctx, result.ChatID, user, payload)
		if err != nil {
			return bus.OutboundMessage{}, fmt.Errorf("subscription callback %q: %w", payload, err)
		}
		return markdown(reply.Text, reply.Keyboard), nil
	default:
		d.log.Warn("unknown callback", "chat_id", result.ChatID, "payload", payload)
		return unknownCallbackReply(payload), nil
	}
}

func (d *Dispatcher) oilSearch(ctx context.Context, name string) (bus.OutboundMessage, error) {
	oil, err := d.catalog.Lookup(ctx, name)
	if err != nil {
		return bus.OutboundMessage{}, err
	}
	if oil == nil {
		return markdown(oils.FormatNotFound(name, oils.Suggestions(name)), nil), nil
	}
	return markdown(oils.FormatInfo(oil), bus.MainMenuKeyboard()), nil
}

func (d *Dispatcher) moodRequest(ctx context.Context, mood string, keywords []string) (bus.OutboundMessage, error) {
	catalog, err := d.catalog.AllOils(ctx)
	if err != nil {
		return bus.OutboundMessage{}, err
	}

	rec := d.advisor.MoodRecommendation(ctx, mood, catalog, keywords)
	return markdown(rec.Text, bus.MainMenuKeyboard()), nil
}

func (d *Dispatcher) musicRequest(ctx context.Context, request string) bus.OutboundMessage {
	rec := d.advisor.MusicRecommendation(ctx, request)
	return markdown(rec.Text, bus.MainMenuKeyboard())
}

func (d *Dispatcher) record(ctx context.Context, log *slog.Logger, result router.Result) {
	if d.interactions == nil || result.Category == router.CategoryError {
		return
	}

	err := d.interactions.RecordInteraction(ctx, store.Interaction{
		ChatID:      result.ChatID,
		UserID:      result.UserID,
		RequestType: result.Category.String(),
	})
	if err != nil {
		log.Warn("record interaction failed", "error", err)
	}
}

func (d *Dispatcher) publish(ctx context.Context, event bus.Event) {
	if d.events == nil {
		return
	}
	event.Channel = d.channel
	_ = d.events.PublishEvent(ctx, event)
}

func eventPayload(result router.Result) map[string]string {
	payload := map[string]string{}
	if result.UserID != "" {
		payload["user_id"] = result.UserID
	}
	if result.Metadata.OilName != "" {
		payload["oil_name"] = result.Metadata.OilName
	}
	if result.Metadata.CallbackPayload != "" {
		payload["callback"] = result.Metadata.CallbackPayload
	}
	if result.Reason != "" {
		payload["reason"] = result.Reason
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}
