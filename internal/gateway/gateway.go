package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

const (
	defaultOllamaModel = "ministral-3:latest"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultSpeechModel = "tts-1"
	defaultSpeechVoice = "alloy"

	// Generative speech endpoints answer with 24kHz mono s16le PCM.
	SampleRate = 24000
	Channels   = 1

	// Prompts carry a single phrase plus instructions; these caps only guard
	// against pathological input from search boxes or catalog files.
	maxPhraseChars = 200
	maxQueryChars  = 200

	maxRelated = 5
	maxResults = 5
)

const defaultGatewayHTTPTimeout = 2 * time.Minute

// Requests beyond this pace queue on the limiter instead of hitting the
// provider's quota wall.
const defaultRequestsPerMinute = 30

// Config describes how to build a gateway client.
type Config struct {
	Provider          string
	Model             string
	SpeechModel       string
	Voice             string
	Endpoint          string
	APIKey            string
	RequestsPerMinute int
	HTTPClient        *http.Client
}

// Client supplies item explanations, related items, cross-language
// equivalents, search results, and speech audio.
type Client interface {
	Explain(ctx context.Context, text, language string, kind phrase.Kind) (phrase.Detail, error)
	Related(ctx context.Context, text, language string, kind phrase.Kind) ([]string, error)
	Equivalents(ctx context.Context, text, source string, targets []string, kind phrase.Kind) (phrase.Equivalents, error)
	Search(ctx context.Context, query string, languages []string, kind phrase.Kind) ([]phrase.Item, error)
	Synthesize(ctx context.Context, text string) (string, error)
	Name() string
}

// Reason classifies a gateway failure.
type Reason string

const (
	ReasonNotFound    Reason = "not_found"
	ReasonRateLimited Reason = "rate_limited"
	ReasonNetwork     Reason = "network"
	ReasonMalformed   Reason = "malformed"
	ReasonNoAudio     Reason = "no_audio"
)

// Failure is the typed error every gateway operation returns. Callers branch
// on Reason; no retry happens at this layer.
type Failure struct {
	Reason Reason
	Status int
	msg    string
}

func (f *Failure) Error() string {
	if f.Status > 0 {
		return fmt.Sprintf("gateway %s (HTTP %d): %s", f.Reason, f.Status, f.msg)
	}
	return fmt.Sprintf("gateway %s: %s", f.Reason, f.msg)
}

func failf(reason Reason, format string, args ...any) *Failure {
	return &Failure{Reason: reason, msg: fmt.Sprintf(format, args...)}
}

func failStatus(status int, body string) *Failure {
	reason := ReasonNetwork
	switch {
	case status == http.StatusNotFound:
		reason = ReasonNotFound
	case status == http.StatusTooManyRequests:
		reason = ReasonRateLimited
	}
	return &Failure{Reason: reason, Status: status, msg: strings.TrimSpace(body)}
}

// FailureReason extracts the typed reason from err, or "" when err is not a
// gateway failure.
func FailureReason(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}

// New builds a client for the configured provider. With no explicit provider
// it picks OpenAI when an API key is available and falls back to a local
// Ollama otherwise, so the app works offline-ish out of the box.
func New(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		if cfg.APIKey != "" || os.Getenv("OPENAI_API_KEY") != "" {
			provider = "openai"
		} else {
			provider = "ollama"
		}
	}

	pace := newLimiter(cfg.RequestsPerMinute)
	httpClient := pickHTTPClient(cfg.HTTPClient)

	switch provider {
	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openai provider selected but no API key configured")
		}
		base := strings.TrimRight(cfg.Endpoint, "/")
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		speech := cfg.SpeechModel
		if speech == "" {
			speech = defaultSpeechModel
		}
		voice := cfg.Voice
		if voice == "" {
			voice = defaultSpeechVoice
		}
		return &openAIClient{
			apiKey:      key,
			model:       model,
			speechModel: speech,
			voice:       voice,
			base:        base,
			client:      httpClient,
			pace:        pace,
		}, nil
	case "ollama":
		host := strings.TrimRight(cfg.Endpoint, "/")
		if host == "" {
			if env := os.Getenv("OLLAMA_HOST"); env != "" {
				host = strings.TrimRight(env, "/")
			} else {
				host = "http://localhost:11434"
			}
		}
		model := cfg.Model
		if model == "" {
			if env := os.Getenv("OLLAMA_MODEL"); env != "" {
				model = env
			} else {
				model = defaultOllamaModel
			}
		}
		return &ollamaClient{
			host:   host,
			model:  model,
			client: httpClient,
			pace:   pace,
		}, nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Generations can run long; the caller's context handles cancellation.
	return &http.Client{Timeout: defaultGatewayHTTPTimeout}
}
