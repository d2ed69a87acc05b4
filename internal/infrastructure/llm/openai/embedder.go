package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := e.client.executor.Execute(ctx, "openai.embed", func(callCtx context.Context) error {
		resp, err := e.client.api.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Input:          []string{text},
			Model:          openai.EmbeddingModel(e.client.embedModel),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		vector = resp.Data[0].Embedding
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return nil, wrapProviderError("openai embed", err)
	}
	return vector, nil
}
