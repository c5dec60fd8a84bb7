package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aromabot/pkg/bus"
	"aromabot/pkg/channel"
	"aromabot/pkg/config"
	"aromabot/pkg/router"
)

type staticStore struct {
	pingErr  error
	count    int
	countErr error
}

func (s staticStore) Ping(context.Context) error { return s.pingErr }

func (s staticStore) CountOils(context.Context) (int, error) { return s.count, s.countErr }

type nopHealth struct{ err error }

func (h nopHealth) Health(context.Context) error { return h.err }

func TestIsReady(t *testing.T) {
	t.Parallel()

	svc := &Service{
		provider:      nopHealth{},
		channelStates: map[string]channelState{"telegram": {Running: true}},
	}
	if svc.isReady() {
		t.Fatal("expected not ready without provider health")
	}

	svc.providerLastOKAt = time.Now().UTC()
	if !svc.isReady() {
		t.Fatal("expected ready with running channel and healthy provider")
	}

	svc.providerLastErr = "boom"
	if svc.isReady() {
		t.Fatal("expected not ready when provider has error")
	}

	svc.channelStates["telegram"] = channelState{Running: false}
	svc.providerLastErr = ""
	if svc.isReady() {
		t.Fatal("expected not ready without a running channel")
	}
}

func TestIsReadyWithoutProvider(t *testing.T) {
	t.Parallel()

	svc := &Service{channelStates: map[string]channelState{"console": {Running: true}}}
	if !svc.isReady() {
		t.Fatal("expected ready when no provider is configured")
	}
}

func TestNewServiceValidatesDeps(t *testing.T) {
	t.Parallel()

	handler := func(context.Context, router.InboundEvent) (bus.OutboundMessage, error) {
		return bus.OutboundMessage{}, nil
	}
	adapter := &scriptedAdapter{name: "telegram", done: make(chan struct{})}

	tests := []struct {
		name string
		deps Deps
	}{
		{name: "config", deps: Deps{Adapters: []channel.Adapter{adapter}, Handler: handler, Store: staticStore{}}},
		{name: "adapters", deps: Deps{Config: config.Default(), Handler: handler, Store: staticStore{}}},
		{name: "handler", deps: Deps{Config: config.Default(), Adapters: []channel.Adapter{adapter}, Store: staticStore{}}},
		{name: "store", deps: Deps{Config: config.Default(), Adapters: []channel.Adapter{adapter}, Handler: handler}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(tt.deps); err == nil {
				t.Fatalf("expected error when %s is missing", tt.name)
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	newSvc := func(store StoreChecker) *Service {
		svc, err := NewService(Deps{
			Config:   &config.Config{Environment: "test"},
			Adapters: []channel.Adapter{&scriptedAdapter{name: "telegram", done: make(chan struct{})}},
			Handler: func(context.Context, router.InboundEvent) (bus.OutboundMessage, error) {
				return bus.OutboundMessage{}, nil
			},
			Store: store,
		})
		if err != nil {
			t.Fatalf("NewService() error = %v", err)
		}
		return svc
	}

	tests := []struct {
		name       string
		store      StoreChecker
		running    bool
		path       string
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "health",
			store:      staticStore{},
			path:       "/health",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["status"] != "OK" || body["service"] != "aromabot" || body["environment"] != "test" {
					t.Fatalf("unexpected health body %v", body)
				}
			},
		},
		{
			name:       "healthz alias",
			store:      staticStore{},
			path:       "/healthz",
			wantStatus: http.StatusOK,
		},
		{
			name:       "readyz before channels run",
			store:      staticStore{},
			path:       "/readyz",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "readyz with running channel",
			store:      staticStore{},
			running:    true,
			path:       "/readyz",
			wantStatus: http.StatusOK,
		},
		{
			name:       "readyz with broken store",
			store:      staticStore{pingErr: errors.New("disk gone")},
			running:    true,
			path:       "/readyz",
			wantStatus: http.StatusServiceUnavailable,
			check: func(t *testing.T, body map[string]any) {
				if body["store_error"] != "disk gone" {
					t.Fatalf("store_error = %v, want disk gone", body["store_error"])
				}
			},
		},
		{
			name:       "index",
			store:      staticStore{},
			path:       "/",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["status"] != "running" {
					t.Fatalf("status = %v, want running", body["status"])
				}
			},
		},
		{
			name:       "store check",
			store:      staticStore{count: 12},
			path:       "/api/store-check",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["oils"] != float64(12) {
					t.Fatalf("oils = %v, want 12", body["oils"])
				}
			},
		},
		{
			name:       "store check count failure",
			store:      staticStore{countErr: errors.New("no table")},
			path:       "/api/store-check",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unknown path",
			store:      staticStore{},
			path:       "/missing",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newSvc(tt.store)
			if tt.running {
				svc.setChannelState("telegram", channelState{Running: true})
			}

			recorder := httptest.NewRecorder()
			svc.Routes().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if recorder.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}
			if tt.check == nil {
				return
			}

			var body map[string]any
			if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			tt.check(t, body)
		})
	}
}
