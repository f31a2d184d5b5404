package boundkernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/operator-framework/unsatcert/pkg/boundkernel"
	"github.com/operator-framework/unsatcert/pkg/explain"
	"github.com/operator-framework/unsatcert/pkg/plc"
	"github.com/operator-framework/unsatcert/pkg/tableau"
)

func TestComputeBoundGroundExplanationIsIdempotent(t *testing.T) {
	tb := tableau.New(2, nil)
	upper := []float64{5, 7}
	lower := []float64{-5, -7}

	assert.Equal(t, 5.0, boundkernel.ComputeBound(0, plc.Upper, nil, tb, upper, lower))
	assert.Equal(t, -7.0, boundkernel.ComputeBound(1, plc.Lower, nil, tb, upper, lower))
}

func TestComputeBoundFromRow(t *testing.T) {
	// Row: x0 + 2*x1 = 0, explained via the row itself (e = [1]).
	tb := tableau.New(2, []tableau.Row{
		tableau.NewRow(tableau.Entry{Column: 0, Coefficient: 1}, tableau.Entry{Column: 1, Coefficient: 2}),
	})
	upper := []float64{0, 3}
	lower := []float64{0, -3}

	// x0 = -2*x1; upper bound of x0 picks the ground bound that maximizes
	// -2*x1, i.e. the lower bound of x1 (since coefficient is negative).
	got := boundkernel.ComputeBound(0, plc.Upper, explain.Explanation{1}, tb, upper, lower)
	assert.Equal(t, 6.0, got)
}

func TestComputeCombinationUpperBound(t *testing.T) {
	// Row: x0 + x1 = 0, contradiction vector [1].
	tb := tableau.New(2, []tableau.Row{
		tableau.NewRow(tableau.Entry{Column: 0, Coefficient: 1}, tableau.Entry{Column: 1, Coefficient: 1}),
	})
	upper := []float64{1, 1}
	lower := []float64{0, 0}

	got := boundkernel.ComputeCombinationUpperBound(explain.Explanation{1}, tb, upper, lower)
	assert.Equal(t, 0.0, got)
}
