// Package constraints models the closed set of piecewise-linear problem
// constraints (Relu, Sign, AbsoluteValue, Max, Disjunction) and matches a
// list of child case splits back to the problem constraint they were
// branched on. Matching is structural for Relu and set-equality over
// defining case splits for the rest.
package constraints

import (
	"math"

	"github.com/operator-framework/unsatcert/pkg/plc"
)

// ProblemConstraint is satisfied by every piecewise-linear constraint kind
// this checker understands.
type ProblemConstraint interface {
	Kind() plc.ConstraintKind
	Participants() []int
	Phase() plc.PhaseStatus
	SetPhase(plc.PhaseStatus)
}

// CaseSplitter is implemented by constraint kinds that expose their
// defining case splits. Registry.Match compares a node's children's splits
// against them as a set for Sign, AbsoluteValue, Max, and Disjunction;
// Relu is matched by structural inspection of the split shape instead.
type CaseSplitter interface {
	CaseSplits() []plc.Split
}

// ReluConstraint is f = max(b, 0), tracked alongside its auxiliary
// variable aux = f - max(b, 0).
type ReluConstraint struct {
	B, F, Aux int
	phase     plc.PhaseStatus
}

func NewRelu(b, f, aux int) *ReluConstraint { return &ReluConstraint{B: b, F: f, Aux: aux} }

func (r *ReluConstraint) Kind() plc.ConstraintKind   { return plc.Relu }
func (r *ReluConstraint) Participants() []int        { return []int{r.B, r.F, r.Aux} }
func (r *ReluConstraint) Phase() plc.PhaseStatus     { return r.phase }
func (r *ReluConstraint) SetPhase(p plc.PhaseStatus) { r.phase = p }

// CaseSplits returns the constraint's two defining case splits: active
// (b >= 0, aux <= 0, so f = b) and inactive (b <= 0, f <= 0, so f = 0). This
// is the canonical, aux-bearing shape; Matches accepts an active split with
// the aux tightening omitted too, since a solver that eliminated aux before
// producing the certificate never writes it down.
func (r *ReluConstraint) CaseSplits() []plc.Split {
	return []plc.Split{
		plc.NewTighteningSplit(
			plc.Tightening{Variable: r.B, Side: plc.Lower, Value: 0},
			plc.Tightening{Variable: r.Aux, Side: plc.Upper, Value: 0},
		),
		plc.NewTighteningSplit(
			plc.Tightening{Variable: r.B, Side: plc.Upper, Value: 0},
			plc.Tightening{Variable: r.F, Side: plc.Upper, Value: 0},
		),
	}
}

// Matches reports whether childSplits is the pair of case splits produced
// by branching on r: one child is the active split, tightening b's lower
// bound to 0 and optionally aux's upper bound to 0 (aux's tightening is
// absent when aux was eliminated before the certificate was written), and
// the other is the inactive split, tightening both b's and f's upper bounds
// to 0.
func (r *ReluConstraint) Matches(childSplits []plc.Split) bool {
	if len(childSplits) != 2 {
		return false
	}
	active, inactive := childSplits[0], childSplits[1]
	if !r.isActiveSplit(active) {
		active, inactive = childSplits[1], childSplits[0]
		if !r.isActiveSplit(active) {
			return false
		}
	}
	return inactive.Equal(plc.NewTighteningSplit(
		plc.Tightening{Variable: r.B, Side: plc.Upper, Value: 0},
		plc.Tightening{Variable: r.F, Side: plc.Upper, Value: 0},
	))
}

func (r *ReluConstraint) isActiveSplit(s plc.Split) bool {
	if len(s.Equations) != 0 {
		return false
	}
	hasB := false
	for _, t := range s.Tightenings {
		if t.Variable == r.B && t.Side == plc.Lower && t.Value == 0 {
			hasB = true
		}
	}
	if !hasB {
		return false
	}
	switch len(s.Tightenings) {
	case 1:
		return true
	case 2:
		for _, t := range s.Tightenings {
			if t.Variable == r.B {
				continue
			}
			if t.Variable != r.Aux || t.Side != plc.Upper || t.Value != 0 {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// SignConstraint is f = sign(b), with f in {-1, 1}.
type SignConstraint struct {
	B, F  int
	phase plc.PhaseStatus
}

func NewSign(b, f int) *SignConstraint { return &SignConstraint{B: b, F: f} }

func (s *SignConstraint) Kind() plc.ConstraintKind   { return plc.Sign }
func (s *SignConstraint) Participants() []int        { return []int{s.B, s.F} }
func (s *SignConstraint) Phase() plc.PhaseStatus     { return s.phase }
func (s *SignConstraint) SetPhase(p plc.PhaseStatus) { s.phase = p }

// CaseSplits returns the constraint's two defining case splits: positive
// (b >= 0, f = 1) and negative (b <= 0, f = -1).
func (s *SignConstraint) CaseSplits() []plc.Split {
	return []plc.Split{
		plc.NewTighteningSplit(
			plc.Tightening{Variable: s.B, Side: plc.Lower, Value: 0},
			plc.Tightening{Variable: s.F, Side: plc.Lower, Value: 1},
		),
		plc.NewTighteningSplit(
			plc.Tightening{Variable: s.B, Side: plc.Upper, Value: 0},
			plc.Tightening{Variable: s.F, Side: plc.Upper, Value: -1},
		),
	}
}

// AbsConstraint is f = |b|, tracked alongside its positive and negative
// auxiliary variables (posAux = f - b, negAux = f + b, one of which is
// pinned to zero depending on phase).
type AbsConstraint struct {
	B, F, PosAux, NegAux int
	phase                plc.PhaseStatus
}

func NewAbs(b, f, posAux, negAux int) *AbsConstraint {
	return &AbsConstraint{B: b, F: f, PosAux: posAux, NegAux: negAux}
}

func (a *AbsConstraint) Kind() plc.ConstraintKind   { return plc.AbsoluteValue }
func (a *AbsConstraint) Participants() []int        { return []int{a.B, a.F, a.PosAux, a.NegAux} }
func (a *AbsConstraint) Phase() plc.PhaseStatus     { return a.phase }
func (a *AbsConstraint) SetPhase(p plc.PhaseStatus) { a.phase = p }

// CaseSplits returns the constraint's two defining case splits: positive
// (b >= 0, posAux <= 0, so f = b) and negative (b <= 0, negAux <= 0, so
// f = -b).
func (a *AbsConstraint) CaseSplits() []plc.Split {
	return []plc.Split{
		plc.NewTighteningSplit(
			plc.Tightening{Variable: a.B, Side: plc.Lower, Value: 0},
			plc.Tightening{Variable: a.PosAux, Side: plc.Upper, Value: 0},
		),
		plc.NewTighteningSplit(
			plc.Tightening{Variable: a.B, Side: plc.Upper, Value: 0},
			plc.Tightening{Variable: a.NegAux, Side: plc.Upper, Value: 0},
		),
	}
}

// MaxConstraint is f = max(elements...). Some elements may have been
// eliminated by the solver before the certificate was produced; an
// eliminated element no longer participates as a live variable but still
// contributes an implicit (element, 0, Upper) tightening to the
// constraint's defining case splits, and its recorded value still bounds
// f when f itself is the causing variable of a lemma.
type MaxConstraint struct {
	F                  int
	Elements           []int
	EliminatedElements []int
	EliminatedValues   map[int]float64
	phase              plc.PhaseStatus
}

func NewMax(f int, elements []int) *MaxConstraint {
	return &MaxConstraint{F: f, Elements: elements, EliminatedValues: map[int]float64{}}
}

func (m *MaxConstraint) Kind() plc.ConstraintKind { return plc.Max }

// Participants returns every live element with f appended at the back.
func (m *MaxConstraint) Participants() []int {
	return append(append([]int(nil), m.Elements...), m.F)
}
func (m *MaxConstraint) Phase() plc.PhaseStatus     { return m.phase }
func (m *MaxConstraint) SetPhase(p plc.PhaseStatus) { m.phase = p }

// MaxValueOfEliminatedPhases returns the largest recorded value among the
// constraint's eliminated elements, or negative infinity if there are
// none. Used when f itself is the causing variable of a Max lemma: the
// claimed upper bound on f is checked against the best eliminated value
// rather than against a bound recomputed through the kernel.
func (m *MaxConstraint) MaxValueOfEliminatedPhases() float64 {
	best := math.Inf(-1)
	for _, e := range m.EliminatedElements {
		if v, ok := m.EliminatedValues[e]; ok && v > best {
			best = v
		}
	}
	return best
}

// CaseSplits returns the constraint's defining case splits: one split per
// live element, then one per eliminated element, each holding the single
// tightening (element, 0, Upper). A live element's split does not encode
// that the element is the maximum (no f = element equation and no
// comparison against the other elements).
func (m *MaxConstraint) CaseSplits() []plc.Split {
	splits := make([]plc.Split, 0, len(m.Elements)+len(m.EliminatedElements))
	for _, e := range m.Elements {
		splits = append(splits, plc.NewTighteningSplit(plc.Tightening{Variable: e, Side: plc.Upper, Value: 0}))
	}
	for _, e := range m.EliminatedElements {
		splits = append(splits, plc.NewTighteningSplit(plc.Tightening{Variable: e, Side: plc.Upper, Value: 0}))
	}
	return splits
}

// DisjunctionConstraint is a disjunction of disjuncts, each a conjunction
// of tightenings and equations. Some disjuncts may have been removed from
// the feasible set while descending into a sibling branch; matching
// compares against the currently feasible set, and the checker restores it
// on ascent.
type DisjunctionConstraint struct {
	allDisjuncts []plc.Split
	feasible     []plc.Split
}

func NewDisjunction(disjuncts []plc.Split) *DisjunctionConstraint {
	return &DisjunctionConstraint{
		allDisjuncts: disjuncts,
		feasible:     append([]plc.Split(nil), disjuncts...),
	}
}

func (d *DisjunctionConstraint) Kind() plc.ConstraintKind   { return plc.Disjunction }
func (d *DisjunctionConstraint) Participants() []int {
	seen := map[int]struct{}{}
	var out []int
	for _, s := range d.allDisjuncts {
		for _, t := range s.Tightenings {
			if _, ok := seen[t.Variable]; !ok {
				seen[t.Variable] = struct{}{}
				out = append(out, t.Variable)
			}
		}
	}
	return out
}
func (d *DisjunctionConstraint) Phase() plc.PhaseStatus   { return plc.PhaseNotFixed }
func (d *DisjunctionConstraint) SetPhase(plc.PhaseStatus) {}

// CaseSplits returns the currently feasible disjuncts.
func (d *DisjunctionConstraint) CaseSplits() []plc.Split {
	return d.feasible
}

// FeasibleDisjuncts returns the currently feasible disjuncts, for SMT
// export of a delegated leaf.
func (d *DisjunctionConstraint) FeasibleDisjuncts() []plc.Split {
	return d.feasible
}

// RemoveFeasibleDisjunct removes split from the feasible set, used when
// descending into the child branch that takes that disjunct.
func (d *DisjunctionConstraint) RemoveFeasibleDisjunct(split plc.Split) {
	for i, s := range d.feasible {
		if s.Equal(split) {
			d.feasible = append(d.feasible[:i], d.feasible[i+1:]...)
			return
		}
	}
}

// AddFeasibleDisjunct restores split to the feasible set, used on ascent
// out of the child branch that removed it.
func (d *DisjunctionConstraint) AddFeasibleDisjunct(split plc.Split) {
	d.feasible = append(d.feasible, split)
}
