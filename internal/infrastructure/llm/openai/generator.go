package openai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/agrisense-rag/internal/core/domain"
	"github.com/kirillkom/agrisense-rag/internal/core/ports"
)

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

// OpenAnswerStream starts a streaming completion grounded in passages. The
// caller owns the returned stream and must Close it.
func (g *Generator) OpenAnswerStream(ctx context.Context, question string, passages []domain.Passage) (ports.FragmentStream, error) {
	var stream *openai.ChatCompletionStream
	err := g.client.executor.ExecuteOnce(ctx, "openai.chat_stream", func(callCtx context.Context) error {
		s, err := g.client.api.CreateChatCompletionStream(callCtx, openai.ChatCompletionRequest{
			Model: g.client.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: buildAnswerPrompt(question, passages)},
			},
			Stream: true,
		})
		if err != nil {
			return err
		}
		stream = s
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return nil, wrapProviderError("openai chat stream", err)
	}
	return &fragmentStream{stream: stream}, nil
}

type fragmentStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns the next content delta, "" for chunks without content, and
// io.EOF once the provider signals completion.
func (s *fragmentStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *fragmentStream) Close() error {
	return s.stream.Close()
}
