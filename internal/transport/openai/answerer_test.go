package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/domain"
)

func newTestAnswerer(url string) *Answerer {
	return NewAnswerer(&Config{
		APIKey:    "test-key",
		BaseURL:   url,
		Model:     "test-model",
		MaxTokens: 256,
		Logger:    zap.NewNop(),
	})
}

func TestAnswerer_Answer(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1", "object": "chat.completion", "model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Use firewall-cmd."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 50, "completion_tokens": 5, "total_tokens": 55}
		}`))
	}))
	defer server.Close()

	answer, err := newTestAnswerer(server.URL).Answer(context.Background(), "How do I open a port?", "[1] Firewalld\nbody")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "Use firewall-cmd." {
		t.Errorf("answer = %q", answer)
	}
	if got.Model != "test-model" || got.MaxTokens != 256 || len(got.Messages) != 2 {
		t.Fatalf("request = %+v", got)
	}
	if got.Messages[0].Role != openai.ChatMessageRoleSystem || !strings.HasPrefix(got.Messages[0].Content, "You are a Red Hat expert.") {
		t.Errorf("system message = %+v", got.Messages[0])
	}
	want := "Documentation excerpts:\n\n[1] Firewalld\nbody\n\nQuestion: How do I open a port?"
	if got.Messages[1].Content != want {
		t.Errorf("user message = %q", got.Messages[1].Content)
	}
}

func TestMessages_EmptyContext(t *testing.T) {
	msgs := Messages("q", "  ")
	if !strings.Contains(msgs[1].Content, "No documentation found.") {
		t.Errorf("user message = %q", msgs[1].Content)
	}
}

func TestAnswerer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestAnswerer(server.URL).Answer(context.Background(), "q", "ctx")
	if !errors.Is(err, domain.ErrAnswerProvider) {
		t.Fatalf("expected ErrAnswerProvider, got %v", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestAnswerer_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "c1", "choices": []}`))
	}))
	defer server.Close()

	if _, err := newTestAnswerer(server.URL).Answer(context.Background(), "q", "ctx"); !errors.Is(err, domain.ErrAnswerProvider) {
		t.Errorf("expected ErrAnswerProvider, got %v", err)
	}
}

func TestAnswerer_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "list", "data": []}`))
	}))
	defer server.Close()

	if err := newTestAnswerer(server.URL).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail": "quota exceeded"}`)); got != "quota exceeded" {
		t.Errorf("got %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("got %q", got)
	}
}
