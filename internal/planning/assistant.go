// Package planning turns model replies into recommendations and itineraries.
package planning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripplanner/internal/domain"
	"tripplanner/internal/observability"
	"tripplanner/internal/planning/llm"
)

// ErrCompletionFailed wraps any failure of the completion service. The
// reply returned alongside it is the fixed apology and is safe to show.
var ErrCompletionFailed = errors.New("completion failed")

// Completion purposes, used for limits, prompts and metrics.
const (
	PurposeChat      = "chat"
	PurposeItinerary = "itinerary"
)

const recommendationsOnlyMessage = "Here are my recommendations."

// Assistant turns trip context and transcript into completion requests and
// post-processes the replies.
type Assistant struct {
	provider  llm.Provider
	extractor *Extractor
	logger    observability.Logger
	metrics   *observability.Metrics
}

// NewAssistant creates an assistant. A nil extractor gets a default one; a
// nil logger gets the default logger. Metrics may be nil.
func NewAssistant(provider llm.Provider, extractor *Extractor, logger observability.Logger, metrics *observability.Metrics) *Assistant {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	if extractor == nil {
		extractor = NewExtractor(WithExtractorLogger(logger))
	}
	return &Assistant{
		provider:  provider,
		extractor: extractor,
		logger:    logger.WithComponent("assistant"),
		metrics:   metrics,
	}
}

// Available returns true if the completion provider is configured.
func (a *Assistant) Available() bool {
	return a.provider != nil && a.provider.Available()
}

// ProviderName returns the configured provider name, or "none".
func (a *Assistant) ProviderName() string {
	if a.provider == nil {
		return "none"
	}
	return a.provider.Name()
}

// Extractor returns the extractor used for replies.
func (a *Assistant) Extractor() *Extractor {
	return a.extractor
}

// Respond produces the assistant reply to userText given the transcript so
// far. On failure the reply holds the chat apology and the error wraps
// ErrCompletionFailed; the reply is usable either way.
func (a *Assistant) Respond(ctx context.Context, trip domain.TripParameters, history []domain.ChatMessage, userText string) (domain.AssistantReply, error) {
	messages := buildMessages(chatSystemPrompt(trip), history, userText)
	opts := llm.Options{MaxTokens: chatMaxTokens, Temperature: completionTemperature}
	return a.complete(ctx, PurposeChat, messages, opts, ChatFallbackMessage)
}

// GenerateItinerary asks for a full day-by-day plan based on the trip and
// the conversation. Failure behaves as in Respond with the itinerary
// apology.
func (a *Assistant) GenerateItinerary(ctx context.Context, trip domain.TripParameters, history []domain.ChatMessage) (domain.AssistantReply, error) {
	messages := buildMessages(itinerarySystemPrompt(trip), history, itineraryRequest)
	opts := llm.Options{MaxTokens: itineraryMaxTokens, Temperature: completionTemperature}
	return a.complete(ctx, PurposeItinerary, messages, opts, ItineraryFallbackMessage)
}

func (a *Assistant) complete(ctx context.Context, purpose string, messages []llm.Message, opts llm.Options, fallback string) (domain.AssistantReply, error) {
	if !a.Available() {
		a.metrics.RecordCompletion(purpose, "error", 0, 0, 0)
		a.logger.WarnContext(ctx, "completion provider unavailable", "purpose", purpose, "provider", a.ProviderName())
		return domain.AssistantReply{Message: fallback}, fmt.Errorf("%w: %w", ErrCompletionFailed, llm.ErrNotConfigured)
	}

	start := time.Now()
	resp, err := a.provider.Complete(ctx, messages, opts)
	elapsed := time.Since(start)
	if err != nil {
		a.metrics.RecordCompletion(purpose, "error", elapsed, 0, 0)
		a.logger.WarnContext(ctx, "completion failed",
			"purpose", purpose,
			"provider", a.provider.Name(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return domain.AssistantReply{Message: fallback}, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	a.metrics.RecordCompletion(purpose, "ok", elapsed, resp.PromptTokens, resp.OutputTokens)

	reply := a.process(resp.Content)
	reply.PromptTokens = resp.PromptTokens
	reply.OutputTokens = resp.OutputTokens

	a.logger.InfoContext(ctx, "completion received",
		"purpose", purpose,
		"provider", a.provider.Name(),
		"duration_ms", elapsed.Milliseconds(),
		"finish_reason", resp.FinishReason,
		"recommendations", len(reply.Recommendations),
	)
	return reply, nil
}

// process extracts recommendations from a raw reply and cleans its prose.
func (a *Assistant) process(raw string) domain.AssistantReply {
	if strings.TrimSpace(raw) == "" {
		return domain.AssistantReply{Message: EmptyReplyMessage, Recommendations: []domain.Recommendation{}}
	}

	ex := a.extractor.ExtractDetailed(raw)
	a.metrics.RecordExtraction(ex.Strategy, len(ex.Recommendations), ex.Skipped)

	msg := Clean(raw)
	if msg == "" {
		if len(ex.Recommendations) > 0 {
			msg = recommendationsOnlyMessage
		} else {
			msg = EmptyReplyMessage
		}
	}
	return domain.AssistantReply{
		Message:         msg,
		Raw:             raw,
		Recommendations: ex.Recommendations,
	}
}

// buildMessages assembles system instructions, prior transcript and the new
// user message.
func buildMessages(system string, history []domain.ChatMessage, userText string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == domain.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userText})
	return messages
}
