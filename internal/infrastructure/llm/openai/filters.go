package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
)

var errEmptyCompletion = errors.New("empty completion")

type FilterExtractor struct {
	client *Client
}

func NewFilterExtractor(client *Client) *FilterExtractor {
	return &FilterExtractor{client: client}
}

// ExtractFilters asks the model for category filters. It makes one attempt
// and never returns an error: provider failures and unparseable output both
// yield the empty filter set with FilterSourceFallback.
func (e *FilterExtractor) ExtractFilters(ctx context.Context, query string) domain.FilterExtraction {
	var content string
	err := e.client.executor.ExecuteOnce(ctx, "openai.extract_filters", func(callCtx context.Context) error {
		resp, err := e.client.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: e.client.filterModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: buildFilterPrompt(query)},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errEmptyCompletion
		}
		content = resp.Choices[0].Message.Content
		return nil
	}, classifyOpenAIError)
	if err != nil {
		slog.WarnContext(ctx, "filter_extraction_fallback", "reason", "provider_error", "error", err)
		return domain.FallbackFilters()
	}

	filters, ok := parseFilterSet(content)
	if !ok {
		slog.WarnContext(ctx, "filter_extraction_fallback", "reason", "malformed_output", "content_length", len(content))
		return domain.FallbackFilters()
	}
	return domain.ParsedFilters(filters)
}

// parseFilterSet accepts only a JSON object whose categories are string
// arrays. Missing categories become empty lists.
func parseFilterSet(content string) (domain.FilterSet, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return domain.FilterSet{}, false
	}

	var parsed *domain.FilterSet
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil || parsed == nil {
		return domain.FilterSet{}, false
	}
	return parsed.Normalize(), true
}
