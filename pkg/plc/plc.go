// Package plc holds the small, dependency-free value types shared by the
// certificate, constraint-matching, and replay packages: bound sides, the
// closed set of piecewise-linear constraint kinds, their phase encodings,
// and the case-split shapes (tightenings and equations) that the checker
// compares structurally when matching a case split to a problem constraint.
package plc

import "math"

// Side identifies which side of a variable's range a bound constrains.
type Side int

const (
	Lower Side = iota
	Upper
)

func (s Side) String() string {
	if s == Upper {
		return "upper"
	}
	return "lower"
}

// ConstraintKind is the closed sum type over the piecewise-linear
// constraints this checker understands.
type ConstraintKind int

const (
	Relu ConstraintKind = iota
	Sign
	AbsoluteValue
	Max
	Disjunction
)

func (k ConstraintKind) String() string {
	switch k {
	case Relu:
		return "Relu"
	case Sign:
		return "Sign"
	case AbsoluteValue:
		return "AbsoluteValue"
	case Max:
		return "Max"
	case Disjunction:
		return "Disjunction"
	default:
		return "Unknown"
	}
}

// PhaseStatus is the case a piecewise-linear constraint has been fixed to,
// either by a case split or by a lemma's side effect. Not every kind uses
// every value; constraints that never fix a phase (Max, Disjunction) leave
// it at PhaseNotFixed.
type PhaseStatus int

const (
	PhaseNotFixed PhaseStatus = iota
	ReluActive
	ReluInactive
	SignPositive
	SignNegative
	AbsPositive
	AbsNegative
)

// Tightening is a single (variable, value, side) triple added to the
// ground bounds when descending into a child node.
type Tightening struct {
	Variable int
	Value    float64
	Side     Side
}

// Equal reports whether two tightenings are the same triple, comparing the
// value with ordinary floating point equality (case splits are expected to
// carry exact constants, not derived bounds).
func (t Tightening) Equal(o Tightening) bool {
	return t.Variable == o.Variable && t.Side == o.Side && t.Value == o.Value
}

// EquationRelation is the relational operator of a conjoined equation
// inside a Disjunction's disjunct.
type EquationRelation int

const (
	EquationEQ EquationRelation = iota
	EquationLE
	EquationGE
)

// Addend is a single coefficient-variable term of an Equation.
type Addend struct {
	Coefficient float64
	Variable    int
}

// Equation is a linear equation or inequality conjoined into a disjunct,
// of the form Scalar <relation> Sum(addends).
type Equation struct {
	Relation EquationRelation
	Scalar   float64
	Addends  []Addend
}

func (e Equation) equal(o Equation) bool {
	if e.Relation != o.Relation || e.Scalar != o.Scalar || len(e.Addends) != len(o.Addends) {
		return false
	}
	for i := range e.Addends {
		if e.Addends[i] != o.Addends[i] {
			return false
		}
	}
	return true
}

// Split is a finite set of tightenings and conjoined equations, taken
// either as a case split from a parent certificate node to a child, or as
// one of the defining case splits / disjuncts of a problem constraint.
type Split struct {
	Tightenings []Tightening
	Equations   []Equation
}

// NewTighteningSplit builds a Split out of tightenings alone, the common
// case for every constraint kind except Disjunction.
func NewTighteningSplit(tightenings ...Tightening) Split {
	return Split{Tightenings: tightenings}
}

// Equal reports whether two splits carry the same tightenings and
// equations, regardless of order.
func (s Split) Equal(o Split) bool {
	if len(s.Tightenings) != len(o.Tightenings) || len(s.Equations) != len(o.Equations) {
		return false
	}
	for _, t := range s.Tightenings {
		if !containsTightening(o.Tightenings, t) {
			return false
		}
	}
	for _, t := range o.Tightenings {
		if !containsTightening(s.Tightenings, t) {
			return false
		}
	}
	for _, e := range s.Equations {
		if !containsEquation(o.Equations, e) {
			return false
		}
	}
	for _, e := range o.Equations {
		if !containsEquation(s.Equations, e) {
			return false
		}
	}
	return true
}

func containsTightening(list []Tightening, t Tightening) bool {
	for _, o := range list {
		if t.Equal(o) {
			return true
		}
	}
	return false
}

func containsEquation(list []Equation, e Equation) bool {
	for _, o := range list {
		if e.equal(o) {
			return true
		}
	}
	return false
}

// SplitSetEqual reports whether two slices of splits are equal as sets
// (same splits, independent of order and of duplicates), used when
// matching a node's children's splits against a constraint's defining
// case splits (every kind but Relu).
func SplitSetEqual(a, b []Split) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if !containsSplit(b, s) {
			return false
		}
	}
	for _, s := range b {
		if !containsSplit(a, s) {
			return false
		}
	}
	return true
}

func containsSplit(list []Split, s Split) bool {
	for _, o := range list {
		if s.Equal(o) {
			return true
		}
	}
	return false
}

// ApproxEqual reports whether a and b differ by no more than epsilon.
func ApproxEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
