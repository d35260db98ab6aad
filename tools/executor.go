// Tool Executor with Retry Logic.
//
// Information Hiding:
// - Retry strategy implementation hidden
// - Backoff algorithm hidden
// - Error classification logic hidden

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/richinex/chronica/model"
)

// ExecutorConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s, retries to 3.
type ExecutorConfig struct {
	TimeoutSecs uint64
	MaxRetries  uint32
}

// Timeout returns the configured timeout, defaulting to 30 seconds if zero.
func (c *ExecutorConfig) Timeout() time.Duration {
	if c == nil || c.TimeoutSecs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Retries returns the configured max retries, defaulting to 3 if zero.
func (c *ExecutorConfig) Retries() uint32 {
	if c == nil || c.MaxRetries == 0 {
		return 3
	}
	return c.MaxRetries
}

// Executor provides tool execution with retry and timeout support.
type Executor struct {
	config ExecutorConfig
}

// NewExecutor creates a new tool executor with the given configuration.
func NewExecutor(config ExecutorConfig) *Executor {
	return &Executor{config: config}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return &Executor{}
}

// Execute validates arguments, then runs the tool with retry on transient
// failures. Every attempt runs under the configured timeout; an attempt
// that times out counts as a transient failure while cancellation of the
// caller's context aborts the call. Validation errors and missing cache
// references never retry.
func (e *Executor) Execute(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, error) {
	toolName := tool.Metadata().Name

	if err := tool.Validate(args); err != nil {
		return FailureResult(fmt.Errorf("validation failed: %w", err)), nil
	}

	var lastErr error
	maxRetries := e.config.Retries()

	for attempt := uint32(0); attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ToolResult{}, ctx.Err()
			case <-time.After(retryBackoff(attempt)):
			}
		}

		result, err := e.runAttempt(ctx, tool, args)
		if err != nil {
			if ctx.Err() != nil {
				return ToolResult{}, ctx.Err()
			}
			// Errors from Execute itself mean the call never completed.
			lastErr = err
			continue
		}

		if result.Success() || !retryable(result.Error) {
			return result, nil
		}
		lastErr = result.Error
	}

	errMsg := "unknown error"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	return FailureResultf("tool '%s' failed after %d attempts: %s", toolName, maxRetries, errMsg), nil
}

// runAttempt executes one attempt under the configured timeout. A deadline
// hit on the attempt context, with the caller's context still live, is
// reported as a timeout error.
func (e *Executor) runAttempt(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, error) {
	timeout := e.config.Timeout()
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := tool.Execute(attemptCtx, args)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ToolResult{}, fmt.Errorf("timed out after %s: %w", timeout, err)
	}
	return result, err
}

func retryBackoff(attempt uint32) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 5 * time.Second
	)

	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// retryable classifies a failed result. Bad arguments and dangling cache
// references will fail identically on every attempt.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if model.IsValidation(err) || model.IsNotFound(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
