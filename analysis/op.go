// Package analysis routes structured insight operations over retrieved data.
//
// The operation set is a closed enum so that adding an operation is a
// compile-time-checked exhaustive match, not a runtime string lookup.
package analysis

import (
	"github.com/richinex/chronica/budget"
	"github.com/richinex/chronica/model"
)

// Op is one of the supported analysis operations.
type Op int

const (
	OpPatternDetection Op = iota
	OpDecisionSupport
	OpActionSynthesis
	OpTrend
	OpCorrelation
)

// ops maps every Op to its advertised name and budget kind.
var ops = [...]struct {
	name string
	kind budget.OperationKind
}{
	OpPatternDetection: {"pattern_detection", budget.KindPatternScan},
	OpDecisionSupport:  {"decision_support", budget.KindDecisionSupport},
	OpActionSynthesis:  {"action_synthesis", budget.KindSynthesis},
	OpTrend:            {"trend", budget.KindStatistical},
	OpCorrelation:      {"correlation", budget.KindStatistical},
}

// String returns the operation's advertised name.
func (op Op) String() string {
	if int(op) < 0 || int(op) >= len(ops) {
		return "unknown"
	}
	return ops[op].name
}

// BudgetKind returns the token-budget class of the operation.
func (op Op) BudgetKind() budget.OperationKind {
	if int(op) < 0 || int(op) >= len(ops) {
		return budget.KindSynthesis
	}
	return ops[op].kind
}

// OpNames lists the advertised operation names in enum order.
func OpNames() []string {
	names := make([]string, len(ops))
	for i := range ops {
		names[i] = ops[i].name
	}
	return names
}

// ParseOp resolves an advertised name to its operation.
func ParseOp(name string) (Op, error) {
	for i := range ops {
		if ops[i].name == name {
			return Op(i), nil
		}
	}
	return 0, model.Validationf("unknown operation: %q", name)
}

// Memoizable reports whether the operation is purely statistical and may be
// cached by input+config hash. Operations that reach the language model for
// synthesis are never memoized.
func (op Op) Memoizable() bool {
	switch op {
	case OpTrend, OpCorrelation:
		return true
	default:
		return false
	}
}
