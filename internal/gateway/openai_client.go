package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

type openAIClient struct {
	apiKey      string
	model       string
	speechModel string
	voice       string
	base        string
	client      *http.Client
	pace        *rate.Limiter
}

func (c *openAIClient) Name() string {
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

func (c *openAIClient) Explain(ctx context.Context, text, language string, kind phrase.Kind) (phrase.Detail, error) {
	if strings.TrimSpace(text) == "" {
		return phrase.Detail{}, failf(ReasonMalformed, "item text cannot be empty")
	}
	raw, err := c.chat(ctx, buildExplainPrompt(text, language, kind))
	if err != nil {
		return phrase.Detail{}, err
	}
	return parseDetail(raw)
}

func (c *openAIClient) Related(ctx context.Context, text, language string, kind phrase.Kind) ([]string, error) {
	raw, err := c.chat(ctx, buildRelatedPrompt(text, language, kind))
	if err != nil {
		return nil, err
	}
	return parseStringList(raw, maxRelated)
}

func (c *openAIClient) Equivalents(ctx context.Context, text, source string, targets []string, kind phrase.Kind) (phrase.Equivalents, error) {
	if len(targets) == 0 {
		return phrase.Equivalents{}, nil
	}
	raw, err := c.chat(ctx, buildEquivalentsPrompt(text, source, targets, kind))
	if err != nil {
		return nil, err
	}
	return parseEquivalents(raw, targets)
}

func (c *openAIClient) Search(ctx context.Context, query string, languages []string, kind phrase.Kind) ([]phrase.Item, error) {
	if strings.TrimSpace(query) == "" {
		return nil, failf(ReasonMalformed, "query cannot be empty")
	}
	raw, err := c.chat(ctx, buildSearchPrompt(query, languages, kind))
	if err != nil {
		return nil, err
	}
	return parseSearchResults(raw, languages, kind)
}

// Synthesize asks the speech endpoint for raw PCM and hands it back base64
// encoded, matching what the decode pipeline expects.
func (c *openAIClient) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", failf(ReasonNoAudio, "nothing to speak")
	}
	if err := c.pace.Wait(ctx); err != nil {
		return "", failf(ReasonNetwork, "rate limiter: %v", err)
	}

	payload := map[string]any{
		"model":           c.speechModel,
		"voice":           c.voice,
		"input":           clipText(text, maxPhraseChars),
		"response_format": "pcm",
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", failf(ReasonNoAudio, "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/audio/speech", bytes.NewReader(buf))
	if err != nil {
		return "", failf(ReasonNoAudio, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", failf(ReasonNetwork, "speech request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failf(ReasonNetwork, "read speech response: %v", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", failStatus(resp.StatusCode, string(body))
	}
	if resp.StatusCode >= 400 {
		return "", &Failure{Reason: ReasonNoAudio, Status: resp.StatusCode, msg: strings.TrimSpace(string(body))}
	}
	if len(body) == 0 {
		return "", failf(ReasonNoAudio, "speech endpoint returned no samples")
	}
	return base64.StdEncoding.EncodeToString(body), nil
}

func (c *openAIClient) chat(ctx context.Context, prompt string) (string, error) {
	if err := c.pace.Wait(ctx); err != nil {
		return "", failf(ReasonNetwork, "rate limiter: %v", err)
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are a precise language teacher. Answer with JSON only."},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.4,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", failf(ReasonMalformed, "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return "", failf(ReasonNetwork, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", failf(ReasonNetwork, "chat request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failf(ReasonNetwork, "read chat response: %v", err)
	}
	if resp.StatusCode >= 400 {
		return "", failStatus(resp.StatusCode, string(body))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", failf(ReasonMalformed, "decode chat response: %v", err)
	}
	if len(parsed.Choices) == 0 {
		return "", failf(ReasonMalformed, "chat response carried no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
