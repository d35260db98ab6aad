// Bounded reason/act loop implementation.
//
// This is THE canonical implementation of the reasoning loop.
// All conversation turns go through this module.
//
// Information Hiding:
// - Loop internals hidden
// - LLM communication hidden
// - Tool execution coordination hidden
// - Transcript persistence hidden

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/richinex/chronica/internal/jsonutil"
	"github.com/richinex/chronica/llm"
	"github.com/richinex/chronica/model"
	"github.com/richinex/chronica/storage"
	"github.com/richinex/chronica/tools"
)

const defaultSystemPrompt = `You are a careful assistant over a personal timeline of dated entries.

Answer questions about the user's history by retrieving evidence first, never from
assumption. For any question involving dates, periods, or "when" phrasing, call the
retrieve tool with an explicit date range before answering. For purely temporal
questions such as "latest", "yesterday", or "last entry", retrieve with sort
"date_desc" and never use similarity search: the most relevant match is not the
most recent one. Use analyze for patterns, decisions, suggestions, trends, and
correlations, passing the cache_ref from retrieve.

Report low-confidence retrievals and date gaps honestly instead of papering over them.`

// Kernel executes conversation turns using a bounded reason/act loop.
type Kernel struct {
	config    Config
	provider  llm.Provider
	registry  *tools.Registry
	executor  *tools.Executor
	logger    *log.Logger
	store     storage.ConversationStorage
	sessionID string
}

// NewKernel creates a kernel over a provider and tool registry.
func NewKernel(config Config, provider llm.Provider, registry *tools.Registry, logger *log.Logger) *Kernel {
	if logger == nil {
		logger = log.Default()
	}
	return &Kernel{
		config:   config,
		provider: provider,
		registry: registry,
		executor: tools.NewDefaultExecutor(),
		logger:   logger.With("kernel", config.Name),
	}
}

// WithExecutor overrides the tool executor.
func (k *Kernel) WithExecutor(executor *tools.Executor) *Kernel {
	k.executor = executor
	return k
}

// WithStorage enables transcript persistence for a session.
func (k *Kernel) WithStorage(store storage.ConversationStorage, sessionID string) *Kernel {
	k.store = store
	k.sessionID = sessionID
	return k
}

// RunConversationTurn runs one user-visible turn: the user text plus however
// many reason/act iterations it takes, up to the ceiling. Returns the result
// and the extended transcript. Context cancellation aborts the turn with an
// error; a partial answer is never promoted to a final one.
func (k *Kernel) RunConversationTurn(ctx context.Context, userText string, prior []model.ConversationTurn) (TurnResult, []model.ConversationTurn, error) {
	startTime := time.Now()

	transcript := make([]model.ConversationTurn, 0, len(prior)+4)
	transcript = append(transcript, prior...)
	transcript = append(transcript, model.UserTurn(userText))

	var result TurnResult
	maxIterations := k.config.Iterations()

	for iteration := 0; iteration < maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return TurnResult{}, prior, fmt.Errorf("turn cancelled: %w", err)
		}

		messages := k.toMessages(transcript)
		resp, err := k.provider.ChatWithTools(ctx, messages, k.registry.Definitions())
		if err != nil {
			return TurnResult{}, prior, fmt.Errorf("reasoning failed: %w", err)
		}

		result.LLMCalls++
		if resp.Usage != nil {
			result.Usage.PromptTokens += resp.Usage.PromptTokens
			result.Usage.CompletionTokens += resp.Usage.CompletionTokens
			result.Usage.TotalTokens += resp.Usage.TotalTokens
		}

		calls := resp.ToolCalls
		if len(calls) == 0 {
			calls = k.fallbackDirective(resp.Content)
		}

		if len(calls) == 0 {
			// No tool requests: the content is the final answer.
			transcript = append(transcript, model.AssistantTurn(resp.Content))
			result.Answer = resp.Content
			result.Phase = PhaseDone
			result.ElapsedMs = uint64(time.Since(startTime).Milliseconds())
			result.Steps = append(result.Steps, model.Step{
				Iteration: iteration,
				Thought:   resp.Content,
			})
			k.persist(ctx, transcript)
			return result, transcript, nil
		}

		if resp.Content != "" {
			transcript = append(transcript, model.AssistantTurn(resp.Content))
		}
		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = uuid.NewString()
			}
			transcript = append(transcript, model.ToolCallOf(calls[i].ID, calls[i].Name, calls[i].Arguments))
		}

		outcomes := k.act(ctx, calls)
		if err := ctx.Err(); err != nil {
			return TurnResult{}, prior, fmt.Errorf("turn cancelled: %w", err)
		}

		for i, out := range outcomes {
			transcript = append(transcript, out.turn)
			result.ToolsUsed = append(result.ToolsUsed, out.stats)
			if out.confidence != "" {
				if result.Confidence == "" || out.confidence.Weaker(result.Confidence) {
					result.Confidence = out.confidence
				}
			}

			action := calls[i].Name
			observation := out.turn.ToolResult.Content
			result.Steps = append(result.Steps, model.Step{
				Iteration:   iteration,
				Thought:     resp.Content,
				Action:      &action,
				Observation: &observation,
			})
		}
	}

	// Ceiling reached. Produce a degraded answer from what was gathered
	// rather than silently presenting partial work as complete.
	answer := k.degradedAnswer(transcript, maxIterations)
	transcript = append(transcript, model.AssistantTurn(answer))
	result.Answer = answer
	result.Phase = PhaseLimited
	result.ElapsedMs = uint64(time.Since(startTime).Milliseconds())
	k.persist(ctx, transcript)
	k.logger.Warn("iteration ceiling reached", "max", maxIterations, "tools_used", len(result.ToolsUsed))
	return result, transcript, nil
}

// outcome is one executed tool call, in request order.
type outcome struct {
	turn       model.ConversationTurn
	stats      model.ToolCallStats
	confidence model.Confidence
}

// act executes all requested tool calls concurrently and reassembles the
// results in request order. A failing tool yields an error result turn;
// it never aborts the turn.
func (k *Kernel) act(ctx context.Context, calls []llm.ToolCall) []outcome {
	outcomes := make([]outcome, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			outcomes[i] = k.executeCall(ctx, call)
		}(i, call)
	}
	wg.Wait()

	return outcomes
}

func (k *Kernel) executeCall(ctx context.Context, call llm.ToolCall) outcome {
	started := time.Now()
	stats := model.ToolCallStats{
		Name:      call.Name,
		InputSize: len(call.Arguments),
	}

	tool, exists := k.registry.Get(call.Name)
	if !exists {
		stats.DurationMs = uint64(time.Since(started).Milliseconds())
		errText := fmt.Sprintf("unknown tool %q", call.Name)
		k.logger.Warn("tool not found", "tool", call.Name)
		return outcome{
			turn:  model.ToolErrorOf(call.ID, call.Name, errText),
			stats: stats,
		}
	}

	res, err := k.executor.Execute(ctx, tool, call.Arguments)
	stats.DurationMs = uint64(time.Since(started).Milliseconds())

	if err != nil {
		k.logger.Warn("tool execution aborted", "tool", call.Name, "err", err)
		return outcome{
			turn:  model.ToolErrorOf(call.ID, call.Name, err.Error()),
			stats: stats,
		}
	}
	if !res.Success() {
		k.logger.Warn("tool failed", "tool", call.Name, "err", res.Error)
		return outcome{
			turn:  model.ToolErrorOf(call.ID, call.Name, res.Error.Error()),
			stats: stats,
		}
	}

	stats.OutputSize = len(res.Output)
	stats.Success = true
	return outcome{
		turn:       model.ToolResultOf(call.ID, call.Name, res.Output),
		stats:      stats,
		confidence: confidenceOf(res.Output),
	}
}

// fallbackDirective recovers a tool request embedded in prose, for providers
// that ignore the native tool-calling protocol.
func (k *Kernel) fallbackDirective(content string) []llm.ToolCall {
	if !strings.Contains(content, "\"tool\"") {
		return nil
	}
	d, err := jsonutil.ExtractObject[directive](content)
	if err != nil || d.Tool == "" || !k.registry.Has(d.Tool) {
		return nil
	}
	args := d.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return []llm.ToolCall{{ID: uuid.NewString(), Name: d.Tool, Arguments: args}}
}

// degradedAnswer composes the ceiling-reached response from the most recent
// tool observation, if any survived.
func (k *Kernel) degradedAnswer(transcript []model.ConversationTurn, maxIterations int) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		t := transcript[i]
		if t.Kind == model.TurnToolResult && !t.ToolResult.IsError {
			return fmt.Sprintf(
				"I could not finish reasoning within %d steps. Partial evidence gathered so far:\n%s",
				maxIterations, t.ToolResult.Content)
		}
	}
	return fmt.Sprintf("I could not finish reasoning within %d steps and gathered no usable evidence.", maxIterations)
}

// toMessages converts the transcript into provider chat messages. Tool call
// turns fold into the preceding assistant message; a synthetic assistant
// message is created when the model emitted calls without text.
func (k *Kernel) toMessages(transcript []model.ConversationTurn) []llm.ChatMessage {
	messages := []llm.ChatMessage{llm.SystemMessage(k.systemPrompt())}

	for _, turn := range transcript {
		switch turn.Kind {
		case model.TurnUser:
			messages = append(messages, llm.UserMessage(turn.Text))
		case model.TurnAssistant:
			messages = append(messages, llm.AssistantMessage(turn.Text))
		case model.TurnToolCall:
			call := llm.ToolCall{
				ID:        turn.ToolCall.CallID,
				Name:      turn.ToolCall.Name,
				Arguments: turn.ToolCall.Arguments,
			}
			if n := len(messages); n > 0 && messages[n-1].Role == "assistant" && messages[n-1].ToolCallID == "" {
				messages[n-1].ToolCalls = append(messages[n-1].ToolCalls, call)
			} else {
				messages = append(messages, llm.ChatMessage{
					Role:      "assistant",
					ToolCalls: []llm.ToolCall{call},
				})
			}
		case model.TurnToolResult:
			messages = append(messages, llm.ChatMessage{
				Role:       "tool",
				Content:    turn.ToolResult.Content,
				ToolCallID: turn.ToolResult.CallID,
			})
		}
	}
	return messages
}

func (k *Kernel) systemPrompt() string {
	prompt := k.config.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	return fmt.Sprintf("%s\n\nAvailable tools:\n%s\n\nYou have at most %d reasoning steps per turn.",
		prompt, k.registry.Catalog(), k.config.Iterations())
}

func (k *Kernel) persist(ctx context.Context, transcript []model.ConversationTurn) {
	if k.store == nil || k.sessionID == "" {
		return
	}
	if err := k.store.Save(ctx, k.sessionID, transcript); err != nil {
		k.logger.Warn("transcript save failed", "session", k.sessionID, "err", err)
	}
}

// confidenceOf pulls the retrieval confidence out of a tool output, when
// the output carries retrieve metadata.
func confidenceOf(output string) model.Confidence {
	var envelope struct {
		Metadata struct {
			Confidence model.Confidence `json:"confidence"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(output), &envelope); err != nil {
		return ""
	}
	switch envelope.Metadata.Confidence {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
		return envelope.Metadata.Confidence
	default:
		return ""
	}
}
