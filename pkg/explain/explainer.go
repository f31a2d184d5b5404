package explain

import "github.com/operator-framework/unsatcert/pkg/plc"

// RowEntry is one coefficient of an equation row's body, keyed by the
// participating variable rather than by column position (the row has
// already been isolated around its left-hand-side variable).
type RowEntry struct {
	Var         int
	Coefficient float64
}

// EquationRow is a tableau row with its left-hand-side variable singled
// out: Var(LHS) == Scalar + Sum(Entries).
type EquationRow struct {
	LHS     int
	Scalar  float64
	Entries []RowEntry
}

// SparseEntry is one non-zero coefficient of a row given in sparse form,
// keyed by variable index, with no designated left-hand side; the caller
// names which variable to isolate when applying the update.
type SparseEntry struct {
	Index int
	Value float64
}

// BoundsExplainer holds, for every variable and side, the current
// explanation of its derived bound. The tableau convention is that the
// last rowsNum variable indices are the slack variables, one per
// original equation.
type BoundsExplainer struct {
	varsNum int
	rowsNum int
	upper   []Explanation
	lower   []Explanation
}

// New returns a BoundsExplainer over varsNum variables and rowsNum rows,
// with every explanation initially ground (equal to the ground bound).
func New(varsNum, rowsNum int) *BoundsExplainer {
	return &BoundsExplainer{
		varsNum: varsNum,
		rowsNum: rowsNum,
		upper:   make([]Explanation, varsNum),
		lower:   make([]Explanation, varsNum),
	}
}

// NumVars returns the number of variables tracked.
func (b *BoundsExplainer) NumVars() int { return b.varsNum }

// NumRows returns the number of tableau rows tracked.
func (b *BoundsExplainer) NumRows() int { return b.rowsNum }

// Get returns the current explanation of (v, side). The returned slice
// must not be mutated by the caller.
func (b *BoundsExplainer) Get(v int, side plc.Side) Explanation {
	if side == plc.Upper {
		return b.upper[v]
	}
	return b.lower[v]
}

func (b *BoundsExplainer) set(v int, side plc.Side, e Explanation) {
	if side == plc.Upper {
		b.upper[v] = e
	} else {
		b.lower[v] = e
	}
}

// Reset empties the explanation of (v, side), meaning it now equals the
// ground bound.
func (b *BoundsExplainer) Reset(v int, side plc.Side) {
	b.set(v, side, nil)
}

// Inject overwrites the explanation of (v, side) directly, bypassing the
// recursive update rule. Used for precision restoration and for
// externally-supplied PLC propagations.
func (b *BoundsExplainer) Inject(v int, side plc.Side, expl Explanation) {
	b.set(v, side, expl.clone())
}

// AddVariable extends the explainer by one variable and one row: every
// existing explanation grows a trailing zero, and the new variable starts
// ground on both sides.
func (b *BoundsExplainer) AddVariable() {
	b.rowsNum++
	b.varsNum++
	for i, e := range b.upper {
		if len(e) > 0 {
			b.upper[i] = append(e, 0)
		}
	}
	for i, e := range b.lower {
		if len(e) > 0 {
			b.lower[i] = append(e, 0)
		}
	}
	b.upper = append(b.upper, nil)
	b.lower = append(b.lower, nil)
}

// slackBase is the first variable index that is a slack variable: the
// tableau convention is that the last rowsNum variables are slacks, one
// per original equation.
func (b *BoundsExplainer) slackBase() int {
	return b.varsNum - b.rowsNum
}

// UpdateFromRow derives a new explanation for (row.LHS, side) from row's
// body, per the update rule in step-by-step form:
//  1. For each body entry (u, k): add k times the explanation of u on the
//     same side as requested if k > 0, the opposite side if k < 0.
//  2. Add the row's slack-coefficient vector (accounting for row.LHS
//     itself being a slack variable).
func (b *BoundsExplainer) UpdateFromRow(row EquationRow, side plc.Side) {
	if len(row.Entries) == 0 {
		return
	}
	sum := make([]float64, b.rowsNum)
	for _, entry := range row.Entries {
		if entry.Coefficient == 0 {
			continue
		}
		chosenSide := side
		if entry.Coefficient < 0 {
			chosenSide = opposite(side)
		}
		addScaled(sum, b.Get(entry.Var, chosenSide), entry.Coefficient)
	}
	addScaled(sum, b.slackCoefficients(row), 1)
	b.set(row.LHS, side, Explanation(sum))
}

// UpdateFromRowForVariable derives a new explanation for (v, side) where v
// appears in row's body rather than as its left-hand side: the row is
// first algebraically rewritten with v isolated on the left, multiplying
// every coefficient by -1/c_v where c_v is v's coefficient in row, then
// UpdateFromRow is applied to the rewritten row.
func (b *BoundsExplainer) UpdateFromRowForVariable(row EquationRow, side plc.Side, v int) {
	if len(row.Entries) == 0 {
		return
	}
	if v == row.LHS {
		b.UpdateFromRow(row, side)
		return
	}

	varIndex := -1
	for i, e := range row.Entries {
		if e.Var == v {
			varIndex = i
			break
		}
	}
	if varIndex < 0 {
		return
	}

	ci := row.Entries[varIndex].Coefficient
	coeff := -1 / ci

	equiv := EquationRow{
		LHS:     v,
		Scalar:  row.Scalar * coeff,
		Entries: make([]RowEntry, len(row.Entries)),
	}
	for i, e := range row.Entries {
		equiv.Entries[i] = RowEntry{Var: e.Var, Coefficient: e.Coefficient * coeff}
	}
	equiv.Entries[varIndex] = RowEntry{Var: row.LHS, Coefficient: -coeff}

	b.UpdateFromRow(equiv, side)
}

// UpdateSparse derives a new explanation for (v, side) from a row given in
// sparse form where v appears inside the row rather than as a designated
// left-hand side; coefficients are normalized by -c_v, the coefficient of
// v in the row.
func (b *BoundsExplainer) UpdateSparse(row []SparseEntry, side plc.Side, v int) {
	if len(row) == 0 {
		return
	}

	var ci float64
	for _, e := range row {
		if e.Index == v {
			ci = e.Value
			break
		}
	}
	if ci == 0 {
		return
	}

	sum := make([]float64, b.rowsNum)
	for _, e := range row {
		if e.Value == 0 || e.Index == v {
			continue
		}
		realCoefficient := e.Value / -ci
		if realCoefficient == 0 {
			continue
		}
		chosenSide := side
		if realCoefficient < 0 {
			chosenSide = opposite(side)
		}
		addScaled(sum, b.Get(e.Index, chosenSide), realCoefficient)
	}

	addScaled(sum, b.sparseSlackCoefficients(row, ci), 1)
	b.set(v, side, Explanation(sum))
}

// slackCoefficients returns the coefficients of the row's original
// equations' slack variables: the row body's entries whose variable falls
// in the slack range, plus -1 at the row's own slack slot if its
// left-hand-side variable is itself a slack variable.
func (b *BoundsExplainer) slackCoefficients(row EquationRow) Explanation {
	coefficients := make(Explanation, b.rowsNum)
	base := b.slackBase()
	for _, e := range row.Entries {
		if e.Var >= base && e.Coefficient != 0 {
			coefficients[e.Var-base] = e.Coefficient
		}
	}
	if row.LHS >= base {
		coefficients[row.LHS-base] = -1
	}
	return coefficients
}

func (b *BoundsExplainer) sparseSlackCoefficients(row []SparseEntry, ci float64) Explanation {
	coefficients := make(Explanation, b.rowsNum)
	base := b.slackBase()
	for _, e := range row {
		if e.Index >= base && e.Value != 0 {
			coefficients[e.Index-base] = -e.Value / ci
		}
	}
	return coefficients
}

func opposite(side plc.Side) plc.Side {
	if side == plc.Upper {
		return plc.Lower
	}
	return plc.Upper
}
