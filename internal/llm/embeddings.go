package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"docchat/internal/contextutil"
)

// EmbeddingsClient is a client for an OpenAI-compatible embeddings API.
type EmbeddingsClient struct {
	Model  string
	client *openai.Client
}

// NewEmbeddingsClient creates a new embeddings client against the given
// base URL.
func NewEmbeddingsClient(baseURL, apiKey, model string) *EmbeddingsClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &EmbeddingsClient{
		Model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// EmbedTexts generates embeddings for the given texts, one vector per input,
// in input order.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(texts) == 0 {
		return nil, fmt.Errorf("embeddings: empty input")
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.Model),
	})
	if err != nil {
		logger.ErrorContext(ctx, "embeddings request failed", "model", c.Model, "count", len(texts), "error", err)
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embeddings: empty vector at index %d", i)
		}
		vectors[i] = d.Embedding
	}

	logger.DebugContext(ctx, "embeddings generated", "model", c.Model, "count", len(vectors), "dimension", len(vectors[0]))
	return vectors, nil
}
