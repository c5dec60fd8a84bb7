package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"aromabot/pkg/bus"
	"aromabot/pkg/config"
	"aromabot/pkg/logger"
	"aromabot/pkg/oils"
	"aromabot/pkg/store"
)

var (
	ErrNotRunning     = errors.New("scheduler is not running")
	ErrAlreadyRunning = errors.New("scheduler is already running")
)

const (
	clockLayout = "15:04"
	dayLayout   = "2006-01-02"
)

// Notifier delivers a proactive message to a chat.
type Notifier interface {
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// DueStore finds and marks subscriptions that are due.
type DueStore interface {
	DueSubscriptions(ctx context.Context, clock string, day string) ([]store.Subscription, error)
	MarkNotified(ctx context.Context, chatID string, day string) error
}

// TipSource picks the oil featured in a tip.
type TipSource interface {
	RandomOil(ctx context.Context) (*store.Oil, error)
}

// Scheduler sends the daily tip to every subscription whose local
// notification time has come.
type Scheduler struct {
	repo     DueStore
	tips     TipSource
	notifier Notifier
	events   *bus.MessageBus

	schedule cron.Schedule
	spec     string
	location *time.Location
	now      func() time.Time
	log      *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewScheduler validates the cron spec and timezone from cfg.
func NewScheduler(cfg config.SubscriptionsConfig, repo DueStore, tips TipSource, notifier Notifier, events *bus.MessageBus, log *slog.Logger) (*Scheduler, error) {
	if repo == nil || tips == nil || notifier == nil {
		return nil, errors.New("scheduler requires a store, a tip source and a notifier")
	}

	spec := strings.TrimSpace(cfg.Schedule)
	if spec == "" {
		spec = config.DefaultNotifySchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	zone := cfg.Timezone
	if zone == "" {
		zone = config.DefaultTimezone
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}

	return &Scheduler{
		repo:     repo,
		tips:     tips,
		notifier: notifier,
		events:   events,
		schedule: schedule,
		spec:     spec,
		location: location,
		now:      time.Now,
		log:      logger.Component(log, "subscription.scheduler"),
	}, nil
}

// Start runs deliveries on the cron schedule until Stop or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cronLogger{log: s.log}),
		cron.WithChain(s.jobWrappers()...),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.RunOnce(runCtx); err != nil {
			s.log.Error("tip delivery failed", "error", err)
		}
	}))
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.running = true

	go func() {
		<-runCtx.Done()
		_ = s.stop(c)
	}()

	s.log.Info("scheduler started", "schedule", s.spec, "timezone", s.location.String())
	return nil
}

// jobWrappers recovers panicking deliveries and skips a tick while the
// previous one is still running.
func (s *Scheduler) jobWrappers() []cron.JobWrapper {
	log := cronLogger{log: s.log}
	return []cron.JobWrapper{cron.Recover(log), cron.SkipIfStillRunning(log)}
}

// Stop halts the cron runner and waits for an in-flight delivery.
func (s *Scheduler) Stop() error {
	return s.stop(nil)
}

// stop halts the runner. When only is set, any other runner is left alone.
func (s *Scheduler) stop(only *cron.Cron) error {
	s.mu.Lock()
	if !s.running || (only != nil && s.cron != only) {
		s.mu.Unlock()
		return ErrNotRunning
	}
	c := s.cron
	cancel := s.cancel
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	<-c.Stop().Done()
	cancel()
	s.log.Info("scheduler stopped")
	return nil
}

// Running reports whether the cron runner is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce delivers tips for the current minute and returns how many were
// sent. A failed send is logged and left unmarked so a later tick in the
// same minute can retry it.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.now().In(s.location)
	clock := now.Format(clockLayout)
	day := now.Format(dayLayout)

	due, err := s.repo.DueSubscriptions(ctx, clock, day)
	if err != nil {
		return 0, fmt.Errorf("load due subscriptions: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	oil, err := s.tips.RandomOil(ctx)
	if err != nil {
		return 0, fmt.Errorf("pick tip oil: %w", err)
	}
	text := FormatTip(oil)

	sent := 0
	for _, sub := range due {
		msg := bus.OutboundMessage{
			ChatID:    sub.ChatID,
			Text:      text,
			ParseMode: bus.ParseModeMarkdown,
			Keyboard:  bus.MainMenuKeyboard(),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.log.Warn("tip send failed", "chat_id", sub.ChatID, "error", err)
			s.publish(ctx, bus.Event{Type: bus.EventNotificationFailed, ChatID: sub.ChatID, Error: err.Error()})
			continue
		}
		if err := s.repo.MarkNotified(ctx, sub.ChatID, day); err != nil {
			s.log.Error("mark notified failed", "chat_id", sub.ChatID, "error", err)
		}
		s.publish(ctx, bus.Event{
			Type:    bus.EventNotificationSent,
			ChatID:  sub.ChatID,
			Payload: map[string]string{"oil": oil.Name, "time": clock},
		})
		sent++
	}

	s.log.Info("tips delivered", "time", clock, "due", len(due), "sent", sent)
	return sent, nil
}

func (s *Scheduler) publish(ctx context.Context, event bus.Event) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishEvent(ctx, event)
}

// FormatTip renders the daily tip message for oil.
func FormatTip(oil *store.Oil) string {
	return "☀️ **Арома-совет дня**\n\n" + oils.FormatInfo(oil)
}

// cronLogger routes cron runtime messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron "+msg, append(keysAndValues, "error", err)...)
}
