package openai

import (
	"sync"

	"github.com/vik9541/super-brain-digital-twin/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// EmbeddingOpenAIClient generates contact embeddings through any
// OpenAI-compatible embeddings API.
//
// An EmbeddingOpenAIClient should be created using NewEmbeddingOpenAIClient.
type EmbeddingOpenAIClient struct {
	embeddingModel string
	timeoutMin     int64

	embeddingLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	EmbeddingClient *openai.Client
}

var _ ai.EmbeddingClient = (*EmbeddingOpenAIClient)(nil)

// NewEmbeddingOpenAIClientParams defines the configuration for creating a
// new EmbeddingOpenAIClient. BaseURL may point at any OpenAI-compatible
// endpoint; an empty BaseURL uses the official API.
type NewEmbeddingOpenAIClientParams struct {
	EmbeddingModel string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
	RequestTimeoutMin     int64
}

// NewEmbeddingOpenAIClient creates a client configured with the provided
// parameters.
func NewEmbeddingOpenAIClient(
	params NewEmbeddingOpenAIClientParams,
) *EmbeddingOpenAIClient {
	options := []option.RequestOption{
		option.WithAPIKey(params.ApiKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	timeoutMin := params.RequestTimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 2
	}

	return &EmbeddingOpenAIClient{
		embeddingModel: params.EmbeddingModel,
		timeoutMin:     timeoutMin,

		embeddingLock: semaphore.NewWeighted(maxConcurrent),

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		EmbeddingClient: &client,
	}
}
