package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"aromabot/pkg/bus"
	"aromabot/pkg/channel"
	"aromabot/pkg/config"
	"aromabot/pkg/logger"
)

const (
	serviceName           = "aromabot"
	providerCheckInterval = 30 * time.Second
	storeCheckTimeout     = 3 * time.Second
)

// HealthChecker reports whether the AI provider answers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// StoreChecker is the store surface used by readiness and store-check.
type StoreChecker interface {
	Ping(ctx context.Context) error
	CountOils(ctx context.Context) (int, error)
}

// Scheduler delivers subscription tips in the background.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// Deps wires a Service. Provider, Scheduler and Events are optional.
type Deps struct {
	Config    *config.Config
	Adapters  []channel.Adapter
	Handler   channel.Handler
	Provider  HealthChecker
	Store     StoreChecker
	Scheduler Scheduler
	Events    *bus.MessageBus
	Logger    *slog.Logger
}

// Service runs channel adapters, the tip scheduler and the status server.
type Service struct {
	cfg       *config.Config
	log       *slog.Logger
	provider  HealthChecker
	store     StoreChecker
	scheduler Scheduler
	events    *bus.MessageBus
	channels  []channel.Adapter
	handler   channel.Handler

	mu               sync.RWMutex
	startedAt        time.Time
	providerLastOKAt time.Time
	providerLastErr  string
	channelStates    map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status           string                  `json:"status"`
	Service          string                  `json:"service"`
	Environment      string                  `json:"environment,omitempty"`
	Timestamp        string                  `json:"timestamp"`
	UptimeSeconds    int64                   `json:"uptime_seconds"`
	ProviderLastOKAt string                  `json:"provider_last_ok_at,omitempty"`
	ProviderLastErr  string                  `json:"provider_last_error,omitempty"`
	StoreError       string                  `json:"store_error,omitempty"`
	Channels         map[string]channelState `json:"channels"`
}

type indexResponse struct {
	Service   string   `json:"service"`
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
	Endpoints []string `json:"endpoints"`
}

type storeCheckResponse struct {
	Status string `json:"status"`
	Oils   int    `json:"oils"`
	Error  string `json:"error,omitempty"`
}

// NewService validates deps and returns a gateway service.
func NewService(deps Deps) (*Service, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if len(deps.Adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if deps.Handler == nil {
		return nil, errors.New("handler is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}

	channelStates := make(map[string]channelState, len(deps.Adapters))
	for _, adapter := range deps.Adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           deps.Config,
		log:           logger.Component(deps.Logger, "gateway.service"),
		provider:      deps.Provider,
		store:         deps.Store,
		scheduler:     deps.Scheduler,
		events:        deps.Events,
		channels:      deps.Adapters,
		handler:       newChatLanes().wrap(deps.Handler),
		channelStates: channelStates,
	}, nil
}

// Run blocks until ctx ends or a channel or the status server fails. It
// returns only after every adapter has stopped, so in-flight replies finish
// before the caller releases shared resources.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	var adapters sync.WaitGroup
	defer func() {
		cancel()
		adapters.Wait()
	}()

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.checkProviderHealth(ctx); err != nil {
		s.log.Warn("AI provider unavailable, replies will use fallback text", "error", err)
	}

	if s.events != nil {
		go bus.Observe(ctx, s.events, s.log)
	}

	serverErrors := make(chan error, 1)
	go s.runHealthServer(ctx, serverErrors)

	if s.provider != nil {
		ticker := time.NewTicker(providerCheckInterval)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := s.checkProviderHealth(ctx); err != nil && ctx.Err() == nil {
						s.log.Warn("Provider health check failed", "error", err)
					}
				}
			}
		}()
	}

	if s.scheduler != nil {
		if err := s.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start subscription scheduler: %w", err)
		}
		defer func() { _ = s.scheduler.Stop() }()
	}

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		adapters.Add(1)
		go func() {
			defer adapters.Done()
			err := adapter.Run(ctx, s.handler)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

// Routes returns the status HTTP handler.
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/store-check", s.handleStoreCheck)
	return mux
}

func (s *Service) runHealthServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = config.DefaultGatewayHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = config.DefaultGatewayPort
	}

	addr := host + ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, indexResponse{
		Service:   serviceName,
		Status:    "running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Endpoints: []string{"/health", "/healthz", "/readyz", "/api/store-check"},
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currentStatus("OK", ""))
}

func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	storeErr := s.pingStore(r.Context())

	statusCode := http.StatusOK
	status := "ready"
	if storeErr != "" || !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.writeJSON(w, statusCode, s.currentStatus(status, storeErr))
}

func (s *Service) handleStoreCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeCheckTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, storeCheckResponse{Status: "error", Error: err.Error()})
		return
	}
	count, err := s.store.CountOils(ctx)
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, storeCheckResponse{Status: "error", Error: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, storeCheckResponse{Status: "ok", Oils: count})
}

func (s *Service) pingStore(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, storeCheckTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		return err.Error()
	}
	return ""
}

func (s *Service) writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string, storeErr string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	providerLastOK := ""
	if !s.providerLastOKAt.IsZero() {
		providerLastOK = s.providerLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:           status,
		Service:          serviceName,
		Environment:      s.cfg.Environment,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:    uptime,
		ProviderLastOKAt: providerLastOK,
		ProviderLastErr:  s.providerLastErr,
		StoreError:       storeErr,
		Channels:         channels,
	}
}

// isReady requires a running channel and, when a provider is configured, a
// passing provider health check.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anyRunning := false
	for _, state := range s.channelStates {
		if state.Running {
			anyRunning = true
			break
		}
	}
	if !anyRunning {
		return false
	}

	if s.provider == nil {
		return true
	}

	return !s.providerLastOKAt.IsZero() && s.providerLastErr == ""
}

func (s *Service) checkProviderHealth(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}

	if err := s.provider.Health(ctx); err != nil {
		s.mu.Lock()
		s.providerLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("provider health check failed: %w", err)
	}

	s.mu.Lock()
	s.providerLastErr = ""
	s.providerLastOKAt = time.Now().UTC()
	s.mu.Unlock()

	return nil
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
