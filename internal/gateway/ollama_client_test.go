package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

func TestOllamaClientExplain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var payload struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
			Format string `json:"format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload.Stream {
			t.Fatal("expected streaming to be disabled")
		}
		if payload.Format != "json" {
			t.Fatalf("expected JSON mode, got %q", payload.Format)
		}
		if !strings.Contains(payload.Prompt, "Once in a blue moon") {
			t.Fatalf("prompt missing item text: %s", payload.Prompt)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"{\"meaning\":\"Very rarely.\",\"background\":\"Lunar calendar quirk.\",\"examples\":[\"I eat out once in a blue moon.\"]}","done":true}`))
	}))
	defer server.Close()

	client := &ollamaClient{
		host:   server.URL,
		model:  "ministral-3:latest",
		client: server.Client(),
		pace:   newLimiter(0),
	}

	detail, err := client.Explain(context.Background(), "Once in a blue moon", "English", phrase.KindIdiom)
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if detail.Meaning != "Very rarely." || len(detail.Examples) != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestOllamaClientRelatedClampsToFive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"[\"a\",\"b\",\"c\",\"d\",\"e\",\"f\",\"g\"]","done":true}`))
	}))
	defer server.Close()

	client := &ollamaClient{
		host:   server.URL,
		model:  "ministral-3:latest",
		client: server.Client(),
		pace:   newLimiter(0),
	}

	related, err := client.Related(context.Background(), "Break the ice", "English", phrase.KindIdiom)
	if err != nil {
		t.Fatalf("Related() error = %v", err)
	}
	if len(related) != 5 {
		t.Fatalf("expected the list clamped to five, got %d", len(related))
	}
}

func TestOllamaClientSynthesizeIsNoAudio(t *testing.T) {
	client := &ollamaClient{host: "http://localhost:1", model: "m", client: http.DefaultClient, pace: newLimiter(0)}
	_, err := client.Synthesize(context.Background(), "anything")
	if FailureReason(err) != ReasonNoAudio {
		t.Fatalf("expected NoAudio failure, got %v", err)
	}
}
