package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

type ollamaClient struct {
	host   string
	model  string
	client *http.Client
	pace   *rate.Limiter
}

func (c *ollamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s)", c.model)
}

func (c *ollamaClient) Explain(ctx context.Context, text, language string, kind phrase.Kind) (phrase.Detail, error) {
	if strings.TrimSpace(text) == "" {
		return phrase.Detail{}, failf(ReasonMalformed, "item text cannot be empty")
	}
	raw, err := c.generate(ctx, buildExplainPrompt(text, language, kind))
	if err != nil {
		return phrase.Detail{}, err
	}
	return parseDetail(raw)
}

func (c *ollamaClient) Related(ctx context.Context, text, language string, kind phrase.Kind) ([]string, error) {
	raw, err := c.generate(ctx, buildRelatedPrompt(text, language, kind))
	if err != nil {
		return nil, err
	}
	return parseStringList(raw, maxRelated)
}

func (c *ollamaClient) Equivalents(ctx context.Context, text, source string, targets []string, kind phrase.Kind) (phrase.Equivalents, error) {
	if len(targets) == 0 {
		return phrase.Equivalents{}, nil
	}
	raw, err := c.generate(ctx, buildEquivalentsPrompt(text, source, targets, kind))
	if err != nil {
		return nil, err
	}
	return parseEquivalents(raw, targets)
}

func (c *ollamaClient) Search(ctx context.Context, query string, languages []string, kind phrase.Kind) ([]phrase.Item, error) {
	if strings.TrimSpace(query) == "" {
		return nil, failf(ReasonMalformed, "query cannot be empty")
	}
	raw, err := c.generate(ctx, buildSearchPrompt(query, languages, kind))
	if err != nil {
		return nil, err
	}
	return parseSearchResults(raw, languages, kind)
}

// Synthesize is unsupported: Ollama serves text models only. Callers treat
// NoAudio as "pronunciation unavailable", never as a blocking error.
func (c *ollamaClient) Synthesize(ctx context.Context, text string) (string, error) {
	return "", failf(ReasonNoAudio, "%s cannot synthesize speech", c.Name())
}

func (c *ollamaClient) generate(ctx context.Context, prompt string) (string, error) {
	if err := c.pace.Wait(ctx); err != nil {
		return "", failf(ReasonNetwork, "rate limiter: %v", err)
	}

	payload := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", failf(ReasonMalformed, "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(buf))
	if err != nil {
		return "", failf(ReasonNetwork, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", failf(ReasonNetwork, "generate request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failf(ReasonNetwork, "read generate response: %v", err)
	}
	if resp.StatusCode >= 400 {
		return "", failStatus(resp.StatusCode, string(body))
	}

	var parsed struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", failf(ReasonMalformed, "decode generate response: %v", err)
	}
	if parsed.Response == "" {
		return "", failf(ReasonMalformed, "model returned an empty response")
	}
	return strings.TrimSpace(parsed.Response), nil
}
