package checker

import (
	"github.com/operator-framework/unsatcert/pkg/boundkernel"
	"github.com/operator-framework/unsatcert/pkg/certificate"
)

// checkContradiction verifies a leaf's recorded contradiction against the
// current ground bounds. A direct contradiction holds iff the named
// variable's upper bound has dropped strictly below its lower bound; a
// linear contradiction holds iff its vector's recomputed upper bound is
// strictly negative.
func (c *Checker) checkContradiction(node *certificate.Node) bool {
	contradiction := node.Contradiction

	if contradiction.IsDirect() {
		v := contradiction.Variable()
		return c.groundUpper[v]-c.groundLower[v] < 0
	}

	bound := boundkernel.ComputeCombinationUpperBound(contradiction.Vector(), c.tableau, c.groundUpper, c.groundLower)
	return bound < 0
}
