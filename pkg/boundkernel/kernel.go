// Package boundkernel implements the pure, deterministic recomputation of
// a derived bound (or a contradiction's derived upper bound) from its
// explanation vector, the original tableau, and the original ground
// bounds. It never looks at anything the solver produced beyond the
// explanation itself.
package boundkernel

import (
	"github.com/operator-framework/unsatcert/pkg/explain"
	"github.com/operator-framework/unsatcert/pkg/plc"
	"github.com/operator-framework/unsatcert/pkg/tableau"
)

// ComputeBound recomputes the bound on (v, side) implied by explanation e
// against the original tableau and ground bounds:
//  1. Empty explanation -> the ground bound.
//  2. Dense row combination r: for each non-zero tableau entry (j, c),
//     r[j] += c * e[row].
//  3. Negate r (the row equation sums to zero).
//  4. Zero out r[v], extracting v from the combination so it cancels.
//  5. Evaluate r against the ground bounds, picking the bound that
//     maximizes (resp. minimizes) each term depending on its sign and on
//     whether an upper or lower bound is being computed.
func ComputeBound(v int, side plc.Side, e explain.Explanation, t *tableau.Tableau, groundUpper, groundLower []float64) float64 {
	if e.IsGround() {
		if side == plc.Upper {
			return groundUpper[v]
		}
		return groundLower[v]
	}

	r := rowCombination(e, t)
	r[v] = 0

	return evaluateCombination(r, side, groundUpper, groundLower)
}

// ComputeCombinationUpperBound recomputes the upper bound on the linear
// combination of rows described by contradiction vector c, without the
// variable-extraction step ComputeBound performs. A linear contradiction's
// vector is, by construction, always non-empty.
func ComputeCombinationUpperBound(c explain.Explanation, t *tableau.Tableau, groundUpper, groundLower []float64) float64 {
	r := rowCombination(c, t)
	return evaluateCombination(r, plc.Upper, groundUpper, groundLower)
}

func rowCombination(e explain.Explanation, t *tableau.Tableau) []float64 {
	n := t.NumColumns()
	r := make([]float64, n)
	for i := 0; i < len(e) && i < t.NumRows(); i++ {
		coeff := e[i]
		if coeff == 0 {
			continue
		}
		for _, entry := range t.Row(i).Entries() {
			r[entry.Column] += entry.Coefficient * coeff
		}
	}
	for j := range r {
		r[j] = -r[j]
	}
	return r
}

func evaluateCombination(r []float64, side plc.Side, groundUpper, groundLower []float64) float64 {
	var bound float64
	for j, coeff := range r {
		if coeff == 0 {
			continue
		}
		upperPicked := coeff > 0
		var picked float64
		switch {
		case side == plc.Upper && upperPicked:
			picked = groundUpper[j]
		case side == plc.Upper && !upperPicked:
			picked = groundLower[j]
		case side == plc.Lower && upperPicked:
			picked = groundLower[j]
		default:
			picked = groundUpper[j]
		}
		bound += coeff * picked
	}
	return bound
}
