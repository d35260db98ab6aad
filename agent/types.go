// Package agent runs the bounded reasoning loop over the timeline tools.
//
// Contains the types used for loop state, tool directives, and results.
package agent

import (
	"encoding/json"

	"github.com/richinex/chronica/llm"
	"github.com/richinex/chronica/model"
)

// Phase is the loop state the kernel is in.
type Phase int

const (
	// PhaseReasoning means the model is choosing the next move.
	PhaseReasoning Phase = iota
	// PhaseActing means requested tools are executing.
	PhaseActing
	// PhaseDone means the loop produced a final answer.
	PhaseDone
	// PhaseLimited means the loop hit the iteration ceiling.
	PhaseLimited
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseReasoning:
		return "reasoning"
	case PhaseActing:
		return "acting"
	case PhaseDone:
		return "done"
	case PhaseLimited:
		return "limited"
	default:
		return "unknown"
	}
}

// directive is the fallback tool-call shape parsed out of prose replies
// from providers without native tool calling.
type directive struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// TurnResult is the outcome of one user-visible conversation turn.
type TurnResult struct {
	// Answer is the assistant's final text for this turn. When the loop
	// hit its ceiling this is a degraded summary, flagged by Phase.
	Answer string

	// Phase is PhaseDone or PhaseLimited.
	Phase Phase

	// ToolsUsed lists tool invocations in execution order.
	ToolsUsed []model.ToolCallStats

	// Confidence is the weakest retrieval confidence observed during the
	// turn. Empty when no retrieval ran.
	Confidence model.Confidence

	// Steps traces the loop for debugging.
	Steps []model.Step

	// Usage accumulates token usage across all model calls in the turn.
	Usage llm.TokenUsage

	// LLMCalls counts model round trips.
	LLMCalls int

	// ElapsedMs is wall time for the whole turn.
	ElapsedMs uint64
}

// Limited reports whether the turn ended at the iteration ceiling.
func (r TurnResult) Limited() bool {
	return r.Phase == PhaseLimited
}
