package constraints

import "github.com/operator-framework/unsatcert/pkg/plc"

// Registry holds every problem constraint appearing in the certified query
// and matches a node's children's case splits back to the single
// constraint (if any) that was branched on to produce them.
type Registry struct {
	relu         []*ReluConstraint
	sign         []*SignConstraint
	abs          []*AbsConstraint
	max          []*MaxConstraint
	disjunctions []*DisjunctionConstraint
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) AddRelu(c *ReluConstraint)               { r.relu = append(r.relu, c) }
func (r *Registry) AddSign(c *SignConstraint)               { r.sign = append(r.sign, c) }
func (r *Registry) AddAbs(c *AbsConstraint)                 { r.abs = append(r.abs, c) }
func (r *Registry) AddMax(c *MaxConstraint)                 { r.max = append(r.max, c) }
func (r *Registry) AddDisjunction(c *DisjunctionConstraint) { r.disjunctions = append(r.disjunctions, c) }

// Relus, Signs, Abs, Maxes, and Disjunctions expose every registered
// constraint of their kind, in registration order, for callers that need
// to enumerate the whole query's problem constraints (the SMT-LIB export
// path, in particular).
func (r *Registry) Relus() []*ReluConstraint               { return r.relu }
func (r *Registry) Signs() []*SignConstraint               { return r.sign }
func (r *Registry) Abs() []*AbsConstraint                  { return r.abs }
func (r *Registry) Maxes() []*MaxConstraint                { return r.max }
func (r *Registry) Disjunctions() []*DisjunctionConstraint { return r.disjunctions }

// Match attempts to pair childSplits with the one problem constraint whose
// case splits they exactly equal, as a set. Constraint kinds are tried in
// the order Relu, Sign, AbsoluteValue, Max, Disjunction. Relu is the one
// kind matched structurally rather than by set equality, since its active
// split may or may not carry aux's tightening; see ReluConstraint.Matches.
// If no
// constraint matches but childSplits is itself a plain single-variable
// dichotomy (two children, each a single tightening on the same variable,
// opposite sides, equal value), Match reports a successful plain-dichotomy
// match with a nil constraint: such a node carries no PLC lemmas to replay
// and is checked by recursion alone.
func (r *Registry) Match(childSplits []plc.Split) (ProblemConstraint, bool) {
	for _, c := range r.relu {
		if c.Matches(childSplits) {
			return c, true
		}
	}
	for _, c := range r.sign {
		if plc.SplitSetEqual(childSplits, c.CaseSplits()) {
			return c, true
		}
	}
	for _, c := range r.abs {
		if plc.SplitSetEqual(childSplits, c.CaseSplits()) {
			return c, true
		}
	}
	for _, c := range r.max {
		if plc.SplitSetEqual(childSplits, c.CaseSplits()) {
			return c, true
		}
	}
	for _, c := range r.disjunctions {
		if plc.SplitSetEqual(childSplits, c.CaseSplits()) {
			return c, true
		}
	}
	if isSingleVarDichotomy(childSplits) {
		return nil, true
	}
	return nil, false
}

// FindByParticipants returns the last registered constraint that lists
// both causingVar and affectedVar among its participating variables, or
// nil. Disjunction constraints never carry lemmas and are not searched.
func (r *Registry) FindByParticipants(causingVar, affectedVar int) ProblemConstraint {
	all := r.all()
	var found ProblemConstraint
	for _, c := range all {
		p := c.Participants()
		if containsInt(p, causingVar) && containsInt(p, affectedVar) {
			found = c
		}
	}
	return found
}

func (r *Registry) all() []ProblemConstraint {
	var out []ProblemConstraint
	for _, c := range r.relu {
		out = append(out, c)
	}
	for _, c := range r.sign {
		out = append(out, c)
	}
	for _, c := range r.abs {
		out = append(out, c)
	}
	for _, c := range r.max {
		out = append(out, c)
	}
	return out
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// isSingleVarDichotomy reports whether childSplits is exactly two splits,
// each a single tightening on the same variable, one a lower bound and one
// an upper bound of equal value, with no equations. Such a pair is a plain
// case split that was not branched on any piecewise-linear constraint.
func isSingleVarDichotomy(childSplits []plc.Split) bool {
	if len(childSplits) != 2 {
		return false
	}
	a, b := childSplits[0], childSplits[1]
	if len(a.Equations) != 0 || len(b.Equations) != 0 {
		return false
	}
	if len(a.Tightenings) != 1 || len(b.Tightenings) != 1 {
		return false
	}
	ta, tb := a.Tightenings[0], b.Tightenings[0]
	return ta.Variable == tb.Variable && ta.Side != tb.Side && ta.Value == tb.Value
}
