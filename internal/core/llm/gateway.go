package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// ErrRateLimited is returned once every credential has been tried and
// all of them hit the provider's quota.
var ErrRateLimited = errors.New("all credentials rate limited")

// ErrNoCredentials is returned when the gateway has no API keys at all.
var ErrNoCredentials = errors.New("no completion credentials configured")

// Error type labels surfaced in turn metadata.
const (
	ErrorTypeRateLimit = "rate_limit"
	ErrorTypeUnknown   = "unknown"
)

// Meta describes how a reply was produced, for traces and dashboards.
type Meta struct {
	ModelUsed string
	KeyIndex  int
	ErrorType string
}

// Gateway invokes the language model while isolating callers from
// transient provider failures. It holds an ordered credential list plus
// a primary and fallback model. Rotation state is scoped per call; the
// gateway itself is stateless and safe for concurrent use.
type Gateway struct {
	clients       []Completer
	primaryModel  string
	fallbackModel string
}

// NewGateway builds a gateway with one Groq client per API key.
func NewGateway(apiKeys []string, primaryModel, fallbackModel string) *Gateway {
	clients := make([]Completer, 0, len(apiKeys))
	for _, key := range apiKeys {
		clients = append(clients, NewGroqClient(key))
	}
	return &Gateway{
		clients:       clients,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
	}
}

// NewGatewayWithClients wires explicit completers (for testing).
func NewGatewayWithClients(clients []Completer, primaryModel, fallbackModel string) *Gateway {
	return &Gateway{clients: clients, primaryModel: primaryModel, fallbackModel: fallbackModel}
}

func (g *Gateway) PrimaryModel() string { return g.primaryModel }

// Complete calls the model, rotating to the next credential on
// rate-limit errors. Any other error propagates immediately: failures
// unrelated to quota are assumed to affect all credentials equally.
// The returned index reports which credential produced the reply.
func (g *Gateway) Complete(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (string, int, error) {
	if len(g.clients) == 0 {
		return "", 0, ErrNoCredentials
	}
	for i, client := range g.clients {
		text, err := client.Complete(ctx, model, messages)
		if err == nil {
			return text, i, nil
		}
		if !IsRateLimited(err) {
			return "", i, err
		}
		if i < len(g.clients)-1 {
			log.Warn().Int("key_index", i).Str("model", model).Msg("credential rate limited, rotating to next key")
		}
	}
	return "", len(g.clients) - 1, fmt.Errorf("%d credentials exhausted: %w", len(g.clients), ErrRateLimited)
}

// GenerateReply runs the orchestrator-level policy: primary model
// first, one retry with the fallback model when the primary was rate
// limited across all credentials. The escalation is visible in Meta.
func (g *Gateway) GenerateReply(ctx context.Context, messages []openai.ChatCompletionMessage) (string, Meta, error) {
	text, keyIndex, err := g.Complete(ctx, g.primaryModel, messages)
	if err == nil {
		return text, Meta{ModelUsed: g.primaryModel, KeyIndex: keyIndex}, nil
	}

	meta := Meta{ModelUsed: g.primaryModel, KeyIndex: keyIndex, ErrorType: ErrorTypeUnknown}
	if errors.Is(err, ErrRateLimited) {
		meta.ErrorType = ErrorTypeRateLimit
		if g.fallbackModel != "" {
			log.Warn().Str("fallback_model", g.fallbackModel).Msg("primary model rate limited, retrying with fallback")
			text, keyIndex, ferr := g.Complete(ctx, g.fallbackModel, messages)
			if ferr == nil {
				return text, Meta{ModelUsed: g.fallbackModel, KeyIndex: keyIndex, ErrorType: ErrorTypeRateLimit}, nil
			}
		}
	}
	return "", meta, err
}

// IsRateLimited reports whether err is a provider quota error.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit_exceeded") || strings.Contains(msg, "Rate limit reached")
}
