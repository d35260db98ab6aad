// Embedding providers for semantic search.
//
// Information Hiding:
// - Embedding API endpoints and authentication
// - Request/response format per provider
// - Vector dimensionality (callers treat vectors as opaque []float32)

package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Embedder produces a dense vector for a piece of text.
type Embedder interface {
	// Name returns the embedder name (for logging/debugging).
	Name() string

	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Embedding model identifiers.
const (
	// ModelOpenAIEmbed3Small is text-embedding-3-small: cheap, 1536 dims.
	ModelOpenAIEmbed3Small = "text-embedding-3-small"
	// ModelOpenAIEmbed3Large is text-embedding-3-large: higher quality, 3072 dims.
	ModelOpenAIEmbed3Large = "text-embedding-3-large"
	// ModelGeminiEmbed004 is text-embedding-004.
	ModelGeminiEmbed004 = "text-embedding-004"
)

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an OpenAI embedder. Empty model selects
// text-embedding-3-small.
func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	if model == "" {
		model = ModelOpenAIEmbed3Small
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Name returns the embedder name.
func (e *OpenAIEmbedder) Name() string {
	return "openai"
}

// Embed returns the embedding vector for the given text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no vectors")
	}
	return resp.Data[0].Embedding, nil
}

// GeminiEmbedder implements Embedder using the Gemini API.
type GeminiEmbedder struct {
	client  *genai.Client
	model   string
	initErr error
}

// NewGeminiEmbedder creates a Gemini embedder. Empty model selects
// text-embedding-004. If client initialization fails, the error is
// stored and returned on first use.
func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	if model == "" {
		model = ModelGeminiEmbed004
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiEmbedder{
			model:   model,
			initErr: fmt.Errorf("failed to initialize Gemini client: %w", err),
		}
	}
	return &GeminiEmbedder{client: client, model: model}
}

// Name returns the embedder name.
func (e *GeminiEmbedder) Name() string {
	return "gemini"
}

// Embed returns the embedding vector for the given text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("embedding response contained no vectors")
	}
	return resp.Embeddings[0].Values, nil
}

// NewEmbedder creates an embedder for the given provider. Only OpenAI and
// Gemini expose embedding endpoints.
func NewEmbedder(providerType ProviderType, apiKey, model string) (Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key is required", providerType)
	}
	switch providerType {
	case ProviderOpenAI:
		return NewOpenAIEmbedder(apiKey, model), nil
	case ProviderGemini:
		return NewGeminiEmbedder(apiKey, model), nil
	default:
		return nil, fmt.Errorf("provider %s does not support embeddings", providerType)
	}
}

// Verify implementations
var (
	_ Embedder = (*OpenAIEmbedder)(nil)
	_ Embedder = (*GeminiEmbedder)(nil)
)
