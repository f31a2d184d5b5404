package constraints

import (
	"errors"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/operator-framework/unsatcert/pkg/plc"
)

var errGiniIncomplete = errors.New("constraints: gini returned no definite result")

// SplitCoverage is a diagnostic report on a node's case splits: whether
// every pair is mutually exclusive (no assignment satisfies two splits at
// once) and whether the splits are jointly exhaustive (every assignment
// satisfies at least one). It never participates in the verdict the
// checker returns; it exists to surface a malformed certificate tree
// early, with a sharper complaint than "no lemma matched."
type SplitCoverage struct {
	MutuallyExclusive bool
	Exhaustive        bool
}

// CheckSplitCoverage encodes childSplits' tightenings as boolean atoms
// keyed by (variable, threshold) and asks a SAT solver whether any two
// splits can hold simultaneously, and whether their disjunction is a
// tautology. Equations within a split are not encoded; a split containing
// only equations is treated as always holding (its conjunction is true),
// so it never makes the splits look non-exhaustive, but it does make every
// pair it belongs to look not mutually exclusive.
func CheckSplitCoverage(childSplits []plc.Split) (SplitCoverage, error) {
	c := logic.NewC()
	atoms := map[atomKey]z.Lit{}

	splitLits := make([]z.Lit, len(childSplits))
	for i, s := range childSplits {
		lit := c.T
		for _, t := range s.Tightenings {
			lit = c.And(lit, atomLit(c, atoms, t))
		}
		splitLits[i] = lit
	}

	exclusive := true
	for i := 0; i < len(splitLits) && exclusive; i++ {
		for j := i + 1; j < len(splitLits); j++ {
			sat, err := isSatisfiable(c, c.And(splitLits[i], splitLits[j]))
			if err != nil {
				return SplitCoverage{}, err
			}
			if sat {
				exclusive = false
				break
			}
		}
	}

	anyTrue := c.F
	for _, lit := range splitLits {
		anyTrue = c.Or(anyTrue, lit)
	}
	noneTrueSat, err := isSatisfiable(c, anyTrue.Not())
	if err != nil {
		return SplitCoverage{}, err
	}

	return SplitCoverage{MutuallyExclusive: exclusive, Exhaustive: !noneTrueSat}, nil
}

type atomKey struct {
	variable int
	value    float64
}

// atomLit returns the boolean atom for tightening t: a fresh input
// literal the first time (variable, value) is seen, reused (possibly
// negated) afterward. A lower-bound tightening is the atom itself; an
// upper-bound tightening of the same (variable, value) is its negation,
// modeling the two as complementary at the threshold.
func atomLit(c *logic.C, atoms map[atomKey]z.Lit, t plc.Tightening) z.Lit {
	key := atomKey{variable: t.Variable, value: t.Value}
	lit, ok := atoms[key]
	if !ok {
		lit = c.Lit()
		atoms[key] = lit
	}
	if t.Side == plc.Upper {
		return lit.Not()
	}
	return lit
}

func isSatisfiable(c *logic.C, root z.Lit) (bool, error) {
	g := gini.New()
	c.ToCnfFrom(g, root)
	g.Assume(root)
	switch g.Solve() {
	case 1:
		return true, nil
	case -1:
		return false, nil
	default:
		return false, errGiniIncomplete
	}
}
