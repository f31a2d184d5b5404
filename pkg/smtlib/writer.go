// Package smtlib exports a certificate leaf's residual problem as a
// QF_LRA SMT-LIB text instance, for handoff to an external solver when
// the checker delegates rather than closes a leaf by contradiction.
package smtlib

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/operator-framework/unsatcert/pkg/constraints"
	"github.com/operator-framework/unsatcert/pkg/plc"
	"github.com/operator-framework/unsatcert/pkg/tableau"
)

// Writer implements checker.Delegator: it renders the current residual
// problem (original tableau rows, current ground bounds, and every
// registered problem constraint at its current phase) as a delegated-leaf
// SMT-LIB file, named delegated{N}.smtlib with N incrementing once per
// call across the Writer's lifetime. Each target file is truncated before
// writing; the Writer holds no open handle between calls.
type Writer struct {
	Dir     string
	Epsilon float64
	Log     *logrus.Entry

	counter int
}

// defaultEpsilon matches the checker's default lemma-replay tolerance,
// used to derive the literal printing precision when Epsilon is unset.
const defaultEpsilon = 1e-8

// Delegate renders the residual problem to the Writer's next numbered
// file under Dir, creating Dir if necessary.
func (w *Writer) Delegate(t *tableau.Tableau, groundUpper, groundLower []float64, registry *constraints.Registry) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("smtlib: creating delegation dir %s: %w", w.Dir, err)
	}

	name := fmt.Sprintf("delegated%d.smtlib", w.counter)
	w.counter++
	path := filepath.Join(w.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("smtlib: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := w.write(f, t, groundUpper, groundLower, registry); err != nil {
		return fmt.Errorf("smtlib: writing %s: %w", path, err)
	}

	if w.Log != nil {
		w.Log.WithField("file", path).Debug("wrote delegated leaf")
	}
	return nil
}

func (w *Writer) epsilon() float64 {
	if w.Epsilon > 0 {
		return w.Epsilon
	}
	return defaultEpsilon
}

func (w *Writer) write(out io.Writer, t *tableau.Tableau, groundUpper, groundLower []float64, registry *constraints.Registry) error {
	b := &builder{out: &strings.Builder{}, epsilon: w.epsilon()}
	n := t.NumColumns()

	b.line("( set-logic QF_LRA )")
	for j := 0; j < n; j++ {
		b.line(fmt.Sprintf("( declare-fun %s () Real )", varName(j)))
	}
	for j := 0; j < n; j++ {
		b.line(fmt.Sprintf("( assert ( <= %s %s ) )", varName(j), b.literal(groundUpper[j])))
	}
	for j := 0; j < n; j++ {
		b.line(fmt.Sprintf("( assert ( >= %s %s ) )", varName(j), b.literal(groundLower[j])))
	}
	for i := 0; i < t.NumRows(); i++ {
		b.line(fmt.Sprintf("( assert ( = 0 %s ) )", b.linearForm(t.Row(i).Entries())))
	}

	for _, c := range registry.Relus() {
		b.reluAssertion(c)
	}
	for _, c := range registry.Signs() {
		b.signAssertion(c)
	}
	for _, c := range registry.Abs() {
		b.absAssertion(c)
	}
	for _, c := range registry.Maxes() {
		b.maxAssertions(c)
	}
	for _, c := range registry.Disjunctions() {
		b.disjunctionAssertion(c)
	}

	b.line("( check-sat )")
	b.line("( exit )")

	_, err := io.WriteString(out, b.out.String())
	return err
}

func varName(j int) string {
	return fmt.Sprintf("x%d", j)
}

type builder struct {
	out     *strings.Builder
	epsilon float64
}

func (b *builder) line(s string) {
	b.out.WriteString(s)
	b.out.WriteByte('\n')
}

// decimalPlaces is floor(log10(1/epsilon)): the number of fixed decimal
// digits printed before trimming trailing zeros.
func (b *builder) decimalPlaces() int {
	eps := b.epsilon
	if eps <= 0 {
		eps = defaultEpsilon
	}
	places := int(math.Floor(math.Log10(1 / eps)))
	if places < 0 {
		places = 0
	}
	return places
}

// fixed renders v in fixed notation at decimalPlaces precision, with
// trailing zeros (and a trailing decimal point) trimmed.
func (b *builder) fixed(v float64) string {
	s := strconv.FormatFloat(v, 'f', b.decimalPlaces(), 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	if s == "" || s == "-0" {
		s = "0"
	}
	return s
}

// literal renders v as a standalone numeric literal, wrapping negative
// values as ( - |v| ) per the format's negative-literal convention.
func (b *builder) literal(v float64) string {
	if v < 0 {
		return fmt.Sprintf("( - %s )", b.fixed(-v))
	}
	return b.fixed(v)
}

// addend renders one coefficient-variable term of a linear form: a
// coefficient of +1 is elided, -1 becomes ( - x_j ), any other
// coefficient c becomes ( * <signed c> x_j ).
func (b *builder) addend(coefficient float64, variable int) string {
	name := varName(variable)
	switch coefficient {
	case 1:
		return name
	case -1:
		return fmt.Sprintf("( - %s )", name)
	default:
		return fmt.Sprintf("( * %s %s )", b.literal(coefficient), name)
	}
}

// linearForm renders entries as a right-nested addition: t0, t1, t2
// becomes ( + t0 ( + t1 t2 ) ), with a single entry returned unwrapped and
// an empty entry list rendered as the literal 0.
func (b *builder) linearForm(entries []tableau.Entry) string {
	terms := make([]string, len(entries))
	for i, e := range entries {
		terms[i] = b.addend(e.Coefficient, e.Column)
	}
	return b.rightNest(terms)
}

func (b *builder) rightNest(terms []string) string {
	switch len(terms) {
	case 0:
		return "0"
	case 1:
		return terms[0]
	default:
		return fmt.Sprintf("( + %s %s )", terms[0], b.rightNest(terms[1:]))
	}
}

func (b *builder) reluAssertion(c *constraints.ReluConstraint) {
	x, f := varName(c.B), varName(c.F)
	switch c.Phase() {
	case plc.ReluActive:
		b.line(fmt.Sprintf("( assert ( = %s %s ) )", f, x))
	case plc.ReluInactive:
		b.line(fmt.Sprintf("( assert ( = %s 0 ) )", f))
	default:
		b.line(fmt.Sprintf("( assert ( = %s ( ite ( >= %s 0 ) %s 0 ) ) )", f, x, x))
	}
}

func (b *builder) signAssertion(c *constraints.SignConstraint) {
	x, f := varName(c.B), varName(c.F)
	switch c.Phase() {
	case plc.SignPositive:
		b.line(fmt.Sprintf("( assert ( = %s 1 ) )", f))
	case plc.SignNegative:
		b.line(fmt.Sprintf("( assert ( = %s ( - 1 ) ) )", f))
	default:
		b.line(fmt.Sprintf("( assert ( = %s ( ite ( >= %s 0 ) 1 ( - 1 ) ) ) )", f, x))
	}
}

func (b *builder) absAssertion(c *constraints.AbsConstraint) {
	x, f := varName(c.B), varName(c.F)
	switch c.Phase() {
	case plc.AbsPositive:
		b.line(fmt.Sprintf("( assert ( = %s %s ) )", f, x))
	case plc.AbsNegative:
		b.line(fmt.Sprintf("( assert ( = %s ( - %s ) ) )", f, x))
	default:
		b.line(fmt.Sprintf("( assert ( = %s ( ite ( >= %s 0 ) %s ( - %s ) ) ) )", f, x, x, x))
	}
}

// maxAssertions emits, for each live element e, an implication from "e
// dominates every other live element" to "f equals e", per the Max
// constraint's pairwise-maximum semantics. An element with no peers (a
// singleton Max) is asserted unconditionally.
func (b *builder) maxAssertions(c *constraints.MaxConstraint) {
	f := varName(c.F)
	for _, e := range c.Elements {
		var others []string
		for _, o := range c.Elements {
			if o != e {
				others = append(others, fmt.Sprintf("( >= %s %s )", varName(e), varName(o)))
			}
		}
		consequent := fmt.Sprintf("( = %s %s )", f, varName(e))
		switch len(others) {
		case 0:
			b.line(fmt.Sprintf("( assert %s )", consequent))
		case 1:
			b.line(fmt.Sprintf("( assert ( => %s %s ) )", others[0], consequent))
		default:
			b.line(fmt.Sprintf("( assert ( => ( and %s ) %s ) )", strings.Join(others, " "), consequent))
		}
	}
}

func (b *builder) disjunctionAssertion(c *constraints.DisjunctionConstraint) {
	disjuncts := c.FeasibleDisjuncts()
	rendered := make([]string, len(disjuncts))
	for i, s := range disjuncts {
		rendered[i] = b.conjunction(s)
	}
	b.line(fmt.Sprintf("( assert ( or %s ) )", strings.Join(rendered, " ")))
}

func (b *builder) conjunction(s plc.Split) string {
	var terms []string
	for _, t := range s.Tightenings {
		op := "<="
		if t.Side == plc.Lower {
			op = ">="
		}
		terms = append(terms, fmt.Sprintf("( %s %s %s )", op, varName(t.Variable), b.literal(t.Value)))
	}
	for _, eq := range s.Equations {
		terms = append(terms, b.writeEquation(eq))
	}
	switch len(terms) {
	case 0:
		return "true"
	case 1:
		return terms[0]
	default:
		return fmt.Sprintf("( and %s )", strings.Join(terms, " "))
	}
}

// writeEquation renders a disjunct's conjoined equation as
// ( <relation> <scalar> <linear form> ), the relation being =, >=, or <=
// per the equation's own type. The scalar is printed first, the addends
// are right-nested, and a single remaining addend is left unwrapped.
func (b *builder) writeEquation(eq plc.Equation) string {
	op := "="
	switch eq.Relation {
	case plc.EquationLE:
		op = "<="
	case plc.EquationGE:
		op = ">="
	}
	terms := make([]string, len(eq.Addends))
	for i, a := range eq.Addends {
		terms[i] = b.addend(a.Coefficient, a.Variable)
	}
	return fmt.Sprintf("( %s %s %s )", op, b.literal(eq.Scalar), b.rightNest(terms))
}
