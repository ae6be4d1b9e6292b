package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.mistral.ai/v1", "test-key", "mistral-small-latest")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.Model != "mistral-small-latest" {
		t.Errorf("Model = %q, want mistral-small-latest", client.Model)
	}
}

func TestClient_Complete(t *testing.T) {
	tests := []struct {
		name       string
		messages   []Message
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantAnswer string
		wantErr    bool
	}{
		{
			name: "successful completion",
			messages: []Message{
				{Role: RoleSystem, Content: "Answer using only the provided context."},
				{Role: RoleUser, Content: "What color is the sky?"},
			},
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
					t.Errorf("expected /chat/completions path, got %s", r.URL.Path)
				}
				if !strings.Contains(r.Header.Get("Authorization"), "Bearer") {
					t.Error("missing Authorization header")
				}

				var req struct {
					Model    string `json:"model"`
					Messages []struct {
						Role    string `json:"role"`
						Content string `json:"content"`
					} `json:"messages"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("failed to decode request: %v", err)
				}
				if len(req.Messages) != 2 {
					t.Errorf("expected 2 messages, got %d", len(req.Messages))
				}

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"The sky is blue."},"finish_reason":"stop"}]}`))
			},
			wantAnswer: "The sky is blue.",
		},
		{
			name:     "no choices returned",
			messages: []Message{{Role: RoleUser, Content: "hi"}},
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			wantErr: true,
		},
		{
			name:     "server error",
			messages: []Message{{Role: RoleUser, Content: "hi"}},
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "test-model")
			answer, err := client.Complete(context.Background(), tt.messages, ChatParams{Temperature: 0.2})

			if tt.wantErr {
				if err == nil {
					t.Error("Complete() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if answer != tt.wantAnswer {
				t.Errorf("Complete() = %q, want %q", answer, tt.wantAnswer)
			}
		})
	}
}
