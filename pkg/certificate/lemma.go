// Package certificate defines the value types that make up a checked
// certificate tree: PLC lemmas, contradictions, and certificate nodes.
// The tree is a pure ownership tree of plain values held in slices; no
// node is ever shared or cyclic.
package certificate

import (
	"fmt"

	"github.com/operator-framework/unsatcert/pkg/explain"
	"github.com/operator-framework/unsatcert/pkg/plc"
)

// PLCLemma is an immutable record of one piecewise-linear propagation: from
// a bound on one or two causing variables, the constraint forces a
// tightened bound on the affected variable.
type PLCLemma struct {
	CausingVars     []int
	CausingSide     plc.Side
	AffectedVar     int
	AffectedSide    plc.Side
	Bound           float64
	ConstraintKind  plc.ConstraintKind
	Explanations    []explain.Explanation // parallel to CausingVars
}

// expectedCausingVars returns how many causing variables (and parallel
// explanations) a lemma of the given kind must carry. Relu, Sign, and Max
// use one causing bound; AbsoluteValue uses two, the causing variable's
// upper and lower bound.
func expectedCausingVars(kind plc.ConstraintKind) int {
	switch kind {
	case plc.AbsoluteValue:
		return 2
	case plc.Relu, plc.Sign, plc.Max:
		return 1
	default:
		return 0
	}
}

// NewPLCLemma validates arity before constructing a PLCLemma: the number of
// causing variables and of explanations must agree, and must match the
// count the constraint kind requires. Disjunction never carries a lemma:
// it has no propagation rules, only case-split matching.
func NewPLCLemma(causingVars []int, causingSide plc.Side, affectedVar int, affectedSide plc.Side, bound float64, kind plc.ConstraintKind, explanations []explain.Explanation) (*PLCLemma, error) {
	if kind == plc.Disjunction {
		return nil, fmt.Errorf("certificate: disjunction constraints do not carry PLC lemmas")
	}
	if len(causingVars) != len(explanations) {
		return nil, fmt.Errorf("certificate: %d causing vars but %d explanations", len(causingVars), len(explanations))
	}
	if want := expectedCausingVars(kind); len(causingVars) != want {
		return nil, fmt.Errorf("certificate: %s lemma requires %d causing vars, got %d", kind, want, len(causingVars))
	}
	return &PLCLemma{
		CausingVars:    append([]int(nil), causingVars...),
		CausingSide:    causingSide,
		AffectedVar:    affectedVar,
		AffectedSide:   affectedSide,
		Bound:          bound,
		ConstraintKind: kind,
		Explanations:   explanations,
	}, nil
}

// CausingVar returns the lemma's first causing variable; for Relu, Sign,
// and Max lemmas this is the only one. An AbsoluteValue lemma carries two,
// but both name the same variable on opposite sides.
func (l *PLCLemma) CausingVar() int {
	return l.CausingVars[0]
}

// Explanation returns the single causing explanation of a Relu, Sign, or
// Max lemma.
func (l *PLCLemma) Explanation() explain.Explanation {
	return l.Explanations[0]
}
