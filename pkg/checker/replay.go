package checker

import (
	"github.com/operator-framework/unsatcert/pkg/boundkernel"
	"github.com/operator-framework/unsatcert/pkg/certificate"
	"github.com/operator-framework/unsatcert/pkg/constraints"
	"github.com/operator-framework/unsatcert/pkg/plc"
)

// checkReluLemma replays a lemma claimed against a Relu constraint
// f = max(b, 0), aux = f - b, enumerating every bound-propagation rule the
// constraint can fire. An explained bound tighter than the recorded one is
// accepted, and an epsilon-sized error is tolerated. A lemma of the right
// shape also fixes the constraint's phase, mirroring the solver's own
// propagation having implied it.
func (c *Checker) checkReluLemma(lemma *certificate.PLCLemma, constraint *constraints.ReluConstraint) bool {
	causingVar := lemma.CausingVar()
	affectedVar := lemma.AffectedVar
	bound := lemma.Bound
	causingSide := lemma.CausingSide
	affectedSide := lemma.AffectedSide
	eps := c.tolerance

	explained := boundkernel.ComputeBound(causingVar, causingSide, lemma.Explanation(), c.tableau, c.groundUpper, c.groundLower)

	b, f, aux := constraint.B, constraint.F, constraint.Aux

	if (affectedSide == plc.Lower && affectedVar == f && bound > 0) ||
		(affectedSide == plc.Upper && affectedVar == aux && bound == 0) {
		constraint.SetPhase(plc.ReluActive)
	} else if (affectedSide == plc.Lower && affectedVar == aux && bound > 0) ||
		(affectedSide == plc.Upper && affectedVar == f && bound == 0) {
		constraint.SetPhase(plc.ReluInactive)
	}

	switch {
	// If lb of b is non-negative, then ub of aux is 0.
	case causingVar == b && causingSide == plc.Lower && affectedVar == aux && affectedSide == plc.Upper &&
		bound == 0 && explained+eps >= 0:
		return true
	// If lb of f is positive, then ub of aux is 0.
	case causingVar == f && causingSide == plc.Lower && affectedVar == aux && affectedSide == plc.Upper &&
		bound == 0 && explained+eps > 0:
		return true
	// If lb of b is positive x, then ub of aux is -x.
	case causingVar == b && causingSide == plc.Lower && affectedVar == aux && affectedSide == plc.Upper &&
		bound > 0 && explained >= -bound-eps:
		return true
	// If lb of aux is positive, then ub of f is 0.
	case causingVar == aux && causingSide == plc.Lower && affectedVar == f && affectedSide == plc.Upper &&
		bound == 0 && explained+eps > 0:
		return true
	// If lb of f is negative, then it is 0.
	case causingVar == f && causingSide == plc.Lower && affectedVar == f && affectedSide == plc.Lower &&
		bound == 0 && explained-eps < 0:
		return true
	// Propagate ub from f to b.
	case causingVar == f && causingSide == plc.Upper && affectedVar == b && affectedSide == plc.Upper &&
		explained <= bound+eps:
		return true
	// If ub of b is non-positive, then ub of f is 0.
	case causingVar == b && causingSide == plc.Upper && affectedVar == f && affectedSide == plc.Upper &&
		bound == 0 && explained-eps <= 0:
		return true
	// If ub of b is non-positive x, then lb of aux is -x.
	case causingVar == b && causingSide == plc.Upper && affectedVar == aux && affectedSide == plc.Lower &&
		bound > 0 && explained-eps <= 0 && explained <= -bound+eps:
		return true
	// If ub of b is positive, propagate to f.
	case causingVar == b && causingSide == plc.Upper && affectedVar == f && affectedSide == plc.Upper &&
		bound > 0 && explained <= bound+eps:
		return true
	// If ub of aux is x, then lb of b is -x.
	case causingVar == aux && causingSide == plc.Upper && affectedVar == b && affectedSide == plc.Lower &&
		explained <= -bound+eps:
		return true
	default:
		return false
	}
}

// checkSignLemma replays a lemma claimed against a Sign constraint
// f = sign(b), f in {-1, 1}. Every accepted shape is also phase fixing.
func (c *Checker) checkSignLemma(lemma *certificate.PLCLemma, constraint *constraints.SignConstraint) bool {
	causingVar := lemma.CausingVar()
	affectedVar := lemma.AffectedVar
	bound := lemma.Bound
	causingSide := lemma.CausingSide
	affectedSide := lemma.AffectedSide
	eps := c.tolerance

	explained := boundkernel.ComputeBound(causingVar, causingSide, lemma.Explanation(), c.tableau, c.groundUpper, c.groundLower)

	b, f := constraint.B, constraint.F

	if (affectedSide == plc.Lower && affectedVar == f && bound > -1) ||
		(affectedSide == plc.Lower && affectedVar == b && bound >= 0) {
		constraint.SetPhase(plc.SignPositive)
	} else if (affectedSide == plc.Upper && affectedVar == f && bound < 1) ||
		(affectedSide == plc.Upper && affectedVar == b && bound <= 0) {
		constraint.SetPhase(plc.SignNegative)
	}

	switch {
	// If lb of f is > -1, then lb of f is 1.
	case causingVar == f && causingSide == plc.Lower && affectedVar == f && affectedSide == plc.Lower &&
		bound == 1 && explained+eps >= -1:
		return true
	// If lb of f is > -1, then lb of b is 0.
	case causingVar == f && causingSide == plc.Lower && affectedVar == b && affectedSide == plc.Lower &&
		bound == 0 && explained+eps >= -1:
		return true
	// If lb of b is non-negative, then lb of f is 1.
	case causingVar == b && causingSide == plc.Lower && affectedVar == f && affectedSide == plc.Lower &&
		bound == 1 && explained+eps >= 0:
		return true
	// If ub of f is < 1, then ub of f is -1.
	case causingVar == f && causingSide == plc.Upper && affectedVar == f && affectedSide == plc.Upper &&
		bound == -1 && explained-eps <= 1:
		return true
	// If ub of f is < 1, then ub of b is 0.
	case causingVar == f && causingSide == plc.Upper && affectedVar == b && affectedSide == plc.Upper &&
		bound == 0 && explained-eps <= 1:
		return true
	// If ub of b is negative, then ub of f is -1.
	case causingVar == b && causingSide == plc.Upper && affectedVar == f && affectedSide == plc.Upper &&
		bound == -1 && explained-eps < 0:
		return true
	default:
		return false
	}
}

// checkAbsLemma replays a lemma claimed against an AbsoluteValue
// constraint f = |b|. f is always the affected variable; the lemma's two
// explanations justify the causing variable's upper and lower bound in
// turn, and either can license an upper-bound tightening on f. The only
// other accepted shape raises a negative lower bound on f to 0.
func (c *Checker) checkAbsLemma(lemma *certificate.PLCLemma, constraint *constraints.AbsConstraint) bool {
	causingVar := lemma.CausingVar()
	affectedVar := lemma.AffectedVar
	bound := lemma.Bound
	causingSide := lemma.CausingSide
	affectedSide := lemma.AffectedSide
	eps := c.tolerance

	explainedUpper := boundkernel.ComputeBound(causingVar, plc.Upper, lemma.Explanations[0], c.tableau, c.groundUpper, c.groundLower)
	explainedLower := boundkernel.ComputeBound(causingVar, plc.Lower, lemma.Explanations[1], c.tableau, c.groundUpper, c.groundLower)

	b, f := constraint.B, constraint.F

	if affectedVar != f {
		return false
	}

	switch {
	// ub of f can be tightened by either the ub or the -lb of b.
	case causingVar == b && affectedSide == plc.Upper && explainedUpper <= bound+eps:
		return true
	case causingVar == b && affectedSide == plc.Upper && -explainedLower <= bound+eps:
		return true
	// If lb of f is < 0, then it is 0.
	case causingVar == f && causingSide == plc.Lower && affectedSide == plc.Lower &&
		bound == 0 && explainedLower < 0:
		return true
	default:
		return false
	}
}

// checkMaxLemma replays a lemma claimed against a Max constraint
// f = max(elements...). Only one propagation shape exists: an element's
// upper bound (or, if the causing variable is f itself, the best
// eliminated element's recorded value) licenses an upper bound on f. All
// other Max lemma shapes are rejected.
func (c *Checker) checkMaxLemma(lemma *certificate.PLCLemma, constraint *constraints.MaxConstraint) bool {
	causingVar := lemma.CausingVar()
	affectedVar := lemma.AffectedVar
	bound := lemma.Bound
	causingSide := lemma.CausingSide
	affectedSide := lemma.AffectedSide
	eps := c.tolerance

	explained := boundkernel.ComputeBound(causingVar, causingSide, lemma.Explanation(), c.tableau, c.groundUpper, c.groundLower)

	f := constraint.F
	participants := append(append([]int(nil), constraint.Elements...), constraint.EliminatedElements...)
	if !containsVar(participants, causingVar) && causingVar != f {
		return false
	}

	switch {
	case causingSide == plc.Upper && affectedVar == f && causingVar != f && affectedSide == plc.Upper &&
		explained <= bound+eps:
		return true
	case causingSide == plc.Upper && affectedVar == f && causingVar == f && affectedSide == plc.Upper &&
		constraint.MaxValueOfEliminatedPhases() <= bound+eps:
		return true
	default:
		return false
	}
}

func containsVar(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
