// Retry wrappers for providers and embedders.
//
// Information Hiding:
// - Backoff schedule and retry count
// - Classification of transient vs permanent failures
// - Mapping of exhausted retries onto upstream error sentinels

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/richinex/chronica/model"
)

// RetryPolicy controls how upstream calls are retried.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func retryCall[T any](ctx context.Context, policy RetryPolicy, call func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		bo.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		bo.MaxInterval = policy.MaxInterval
	}

	result, err := backoff.Retry(ctx, func() (T, error) {
		out, err := call()
		if err != nil {
			// Cancellation is never transient.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, backoff.Permanent(err)
			}
			return out, err
		}
		return out, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(policy.MaxTries))

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return result, fmt.Errorf("%w: %w", model.ErrUpstreamTimeout, err)
		}
		if errors.Is(err, context.Canceled) {
			return result, err
		}
		return result, fmt.Errorf("%w: %w", model.ErrUpstreamFailure, err)
	}
	return result, nil
}

// RetryingProvider wraps a Provider with retry on transient failures.
type RetryingProvider struct {
	inner  Provider
	policy RetryPolicy
}

// WithRetry wraps a provider with the given retry policy.
func WithRetry(inner Provider, policy RetryPolicy) *RetryingProvider {
	if policy.MaxTries == 0 {
		policy = DefaultRetryPolicy()
	}
	return &RetryingProvider{inner: inner, policy: policy}
}

// Name returns the underlying provider name.
func (p *RetryingProvider) Name() string { return p.inner.Name() }

// Model returns the underlying provider's model.
func (p *RetryingProvider) Model() string { return p.inner.Model() }

// Chat sends a chat completion request with retry.
func (p *RetryingProvider) Chat(ctx context.Context, messages []ChatMessage) (ChatResponse, error) {
	return retryCall(ctx, p.policy, func() (ChatResponse, error) {
		return p.inner.Chat(ctx, messages)
	})
}

// ChatWithTools sends a chat completion request with tools, with retry.
func (p *RetryingProvider) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (ChatResponse, error) {
	return retryCall(ctx, p.policy, func() (ChatResponse, error) {
		return p.inner.ChatWithTools(ctx, messages, tools)
	})
}

// RetryingEmbedder wraps an Embedder with retry on transient failures.
type RetryingEmbedder struct {
	inner  Embedder
	policy RetryPolicy
}

// EmbedderWithRetry wraps an embedder with the given retry policy.
func EmbedderWithRetry(inner Embedder, policy RetryPolicy) *RetryingEmbedder {
	if policy.MaxTries == 0 {
		policy = DefaultRetryPolicy()
	}
	return &RetryingEmbedder{inner: inner, policy: policy}
}

// Name returns the underlying embedder name.
func (e *RetryingEmbedder) Name() string { return e.inner.Name() }

// Embed embeds text with retry.
func (e *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return retryCall(ctx, e.policy, func() ([]float32, error) {
		return e.inner.Embed(ctx, text)
	})
}

var (
	_ Provider = (*RetryingProvider)(nil)
	_ Embedder = (*RetryingEmbedder)(nil)
)
