package ai

import (
	"context"

	"github.com/pkoukk/tiktoken-go"
)

// ModelMetrics contains accumulated token usage and timing metrics from
// embedding requests.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// EmbeddingClient defines the embedding operations used by the semantic
// similarity layer. Implementations exist for OpenAI-compatible APIs and
// locally-hosted Ollama models.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}

// TruncateToTokens cuts the text to at most maxTokens tokens of the
// o200k_base encoding, so oversized contact documents never exceed the
// embedding model's context window.
func TruncateToTokens(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		return text, nil
	}
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return "", err
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, nil
	}
	return enc.Decode(tokens[:maxTokens]), nil
}
