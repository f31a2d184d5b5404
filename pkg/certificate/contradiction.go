package certificate

import "github.com/operator-framework/unsatcert/pkg/explain"

// Contradiction is attached to a leaf node and comes in two forms: a
// direct contradiction names a variable whose propagated upper bound is
// below its lower bound, and a linear contradiction names an explanation
// vector whose implied upper bound is strictly negative.
type Contradiction struct {
	direct   bool
	variable int
	vector   explain.Explanation
}

// NewDirectContradiction builds a direct contradiction on variable v: its
// current propagated upper bound is claimed to be below its lower bound.
func NewDirectContradiction(v int) *Contradiction {
	return &Contradiction{direct: true, variable: v}
}

// NewLinearContradiction builds a linear contradiction from a
// contradiction vector: the claim is that the corresponding linear
// combination of tableau rows has a strictly negative upper bound under
// the current ground bounds.
func NewLinearContradiction(vector explain.Explanation) *Contradiction {
	return &Contradiction{vector: vector}
}

// IsDirect reports whether this is a direct (variable) contradiction as
// opposed to a linear (explanation-vector) one.
func (c *Contradiction) IsDirect() bool {
	return c.direct
}

// Variable returns the variable a direct contradiction names.
func (c *Contradiction) Variable() int {
	return c.variable
}

// Vector returns the explanation vector a linear contradiction names.
func (c *Contradiction) Vector() explain.Explanation {
	return c.vector
}
