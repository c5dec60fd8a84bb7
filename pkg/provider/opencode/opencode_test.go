package opencode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"aromabot/pkg/config"

	sdk "github.com/sst/opencode-sdk-go"
)

func TestNewRequiresBaseURL(t *testing.T) {
	cfg := &config.Config{}

	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected error when base_url is missing")
	}
}

func TestParseModelRef(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantOK     bool
		wantProvID string
		wantModel  string
	}{
		{name: "valid", input: "openai/gpt-4o-mini", wantOK: true, wantProvID: "openai", wantModel: "gpt-4o-mini"},
		{name: "missing slash", input: "gpt-4o-mini", wantOK: false},
		{name: "empty provider", input: "/gpt-4o-mini", wantOK: false},
		{name: "empty model", input: "openai/", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provID, modelID, ok := parseModelRef(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if provID != tt.wantProvID {
				t.Fatalf("providerID = %q, want %q", provID, tt.wantProvID)
			}
			if modelID != tt.wantModel {
				t.Fatalf("modelID = %q, want %q", modelID, tt.wantModel)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	parts := []sdk.Part{
		{Type: sdk.PartTypeReasoning, Text: "should be ignored"},
		{Type: sdk.PartTypeText, Text: "  first line  "},
		{Type: sdk.PartTypeText, Text: ""},
		{Type: sdk.PartTypeText, Text: "second line"},
	}

	got := extractText(parts)
	if got != "first line\nsecond line" {
		t.Fatalf("extractText() = %q", got)
	}
}

func TestBuildBasicAuthHeader(t *testing.T) {
	t.Setenv("TEST_OPENCODE_PASSWORD", "secret")

	header, ok := buildBasicAuthHeader(config.OpenCodeProviderConfig{
		Username:    "opencode",
		PasswordEnv: "TEST_OPENCODE_PASSWORD",
	})
	if !ok {
		t.Fatal("expected basic auth header")
	}
	if !strings.HasPrefix(header, "Basic ") {
		t.Fatalf("unexpected header prefix: %q", header)
	}
}

func TestBuildBasicAuthHeaderMissingEnvValue(t *testing.T) {
	t.Setenv("TEST_OPENCODE_PASSWORD_EMPTY", "")

	_, ok := buildBasicAuthHeader(config.OpenCodeProviderConfig{
		PasswordEnv: "TEST_OPENCODE_PASSWORD_EMPTY",
	})
	if ok {
		t.Fatal("expected no basic auth header")
	}
}

func TestPromptPartsLeadWithSystemPrompt(t *testing.T) {
	parts := promptParts("  system  ", "question")
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}

	first, ok := parts[0].(sdk.TextPartInputParam)
	if !ok || first.Text.Value != "system" {
		t.Fatalf("first part = %#v", parts[0])
	}

	if got := promptParts("", "question"); len(got) != 1 {
		t.Fatalf("parts without system prompt = %d, want 1", len(got))
	}
}

func TestHealth(t *testing.T) {
	var unhealthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/global/health" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if !unhealthy.Load() {
			_, _ = io.WriteString(w, `{"healthy":true,"version":"1.0.0"}`)
			return
		}
		_, _ = io.WriteString(w, `{"healthy":false}`)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Providers.OpenCode.BaseURL = server.URL

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health error: %v", err)
	}

	unhealthy.Store(true)
	if err := client.Health(context.Background()); err == nil {
		t.Fatal("expected unhealthy error")
	}
}
