// Package certfile loads a problem snapshot and a certificate tree from a
// pair of JSON files on disk, the on-disk counterpart to the in-memory
// tableau.Tableau / constraints.Registry / certificate.Node values the
// checker operates on. A directory of JSON documents is decoded into a
// typed snapshot before any of it is handed to domain code.
package certfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/operator-framework/unsatcert/pkg/certificate"
	"github.com/operator-framework/unsatcert/pkg/constraints"
	"github.com/operator-framework/unsatcert/pkg/explain"
	"github.com/operator-framework/unsatcert/pkg/plc"
	"github.com/operator-framework/unsatcert/pkg/tableau"
)

// ProblemFile is the on-disk shape of a query snapshot: its tableau, ground
// bounds, and piecewise-linear problem constraints.
type ProblemFile struct {
	NumVariables int             `json:"numVariables"`
	UpperBounds  []float64       `json:"upperBounds"`
	LowerBounds  []float64       `json:"lowerBounds"`
	Rows         []RowFile       `json:"rows"`
	Constraints  ConstraintsFile `json:"constraints"`
}

type RowFile struct {
	Entries []EntryFile `json:"entries"`
}

type EntryFile struct {
	Column      int     `json:"column"`
	Coefficient float64 `json:"coefficient"`
}

type ConstraintsFile struct {
	Relu        []ReluFile        `json:"relu,omitempty"`
	Sign        []SignFile        `json:"sign,omitempty"`
	Abs         []AbsFile         `json:"abs,omitempty"`
	Max         []MaxFile         `json:"max,omitempty"`
	Disjunction []DisjunctionFile `json:"disjunction,omitempty"`
}

type ReluFile struct {
	B   int `json:"b"`
	F   int `json:"f"`
	Aux int `json:"aux"`
}

type SignFile struct {
	B int `json:"b"`
	F int `json:"f"`
}

type AbsFile struct {
	B      int `json:"b"`
	F      int `json:"f"`
	PosAux int `json:"posAux"`
	NegAux int `json:"negAux"`
}

type MaxFile struct {
	F                  int                `json:"f"`
	Elements           []int              `json:"elements"`
	EliminatedElements []int              `json:"eliminatedElements,omitempty"`
	EliminatedValues   map[string]float64 `json:"eliminatedValues,omitempty"`
}

type DisjunctionFile struct {
	Disjuncts []SplitFile `json:"disjuncts"`
}

type SplitFile struct {
	Tightenings []TighteningFile `json:"tightenings,omitempty"`
	Equations   []EquationFile   `json:"equations,omitempty"`
}

type TighteningFile struct {
	Variable int     `json:"variable"`
	Value    float64 `json:"value"`
	Side     string  `json:"side"`
}

type EquationFile struct {
	Relation string       `json:"relation"`
	Scalar   float64      `json:"scalar"`
	Addends  []AddendFile `json:"addends"`
}

type AddendFile struct {
	Coefficient float64 `json:"coefficient"`
	Variable    int     `json:"variable"`
}

// CertificateFile is the on-disk shape of one certificate node, recursive
// over Children.
type CertificateFile struct {
	Split         SplitFile          `json:"split,omitempty"`
	Lemmas        []LemmaFile        `json:"lemmas,omitempty"`
	Children      []CertificateFile  `json:"children,omitempty"`
	Contradiction *ContradictionFile `json:"contradiction,omitempty"`
	SATFlag       bool               `json:"satFlag,omitempty"`
	Delegation    string             `json:"delegation,omitempty"`
	Visited       bool               `json:"visited,omitempty"`
}

type LemmaFile struct {
	CausingVars  []int       `json:"causingVars"`
	CausingSide  string      `json:"causingSide"`
	AffectedVar  int         `json:"affectedVar"`
	AffectedSide string      `json:"affectedSide"`
	Bound        float64     `json:"bound"`
	Kind         string      `json:"kind"`
	Explanations [][]float64 `json:"explanations"`
}

type ContradictionFile struct {
	Direct   bool      `json:"direct"`
	Variable int       `json:"variable,omitempty"`
	Vector   []float64 `json:"vector,omitempty"`
}

// Snapshot is everything loaded from a problem/certificate file pair, ready
// to hand to checker.New.
type Snapshot struct {
	Tableau     *tableau.Tableau
	UpperBounds []float64
	LowerBounds []float64
	Registry    *constraints.Registry
	Root        *certificate.Node
}

// Load reads problem.json and certificate.json out of dir and decodes them
// into a Snapshot.
func Load(dir string) (*Snapshot, error) {
	problemBytes, err := os.ReadFile(filepath.Join(dir, "problem.json"))
	if err != nil {
		return nil, fmt.Errorf("certfile: reading problem.json: %w", err)
	}
	var problem ProblemFile
	if err := unmarshalJSON(problemBytes, &problem); err != nil {
		return nil, fmt.Errorf("certfile: decoding problem.json: %w", err)
	}

	certBytes, err := os.ReadFile(filepath.Join(dir, "certificate.json"))
	if err != nil {
		return nil, fmt.Errorf("certfile: reading certificate.json: %w", err)
	}
	var certFile CertificateFile
	if err := unmarshalJSON(certBytes, &certFile); err != nil {
		return nil, fmt.Errorf("certfile: decoding certificate.json: %w", err)
	}

	if len(problem.UpperBounds) != problem.NumVariables || len(problem.LowerBounds) != problem.NumVariables {
		return nil, fmt.Errorf("certfile: problem declares %d variables but has %d upper and %d lower bounds",
			problem.NumVariables, len(problem.UpperBounds), len(problem.LowerBounds))
	}

	rows := make([]tableau.Row, len(problem.Rows))
	for i, r := range problem.Rows {
		entries := make([]tableau.Entry, len(r.Entries))
		for j, e := range r.Entries {
			entries[j] = tableau.Entry{Column: e.Column, Coefficient: e.Coefficient}
		}
		rows[i] = tableau.NewRow(entries...)
	}
	tb := tableau.New(problem.NumVariables, rows)

	registry, err := decodeRegistry(problem.Constraints)
	if err != nil {
		return nil, err
	}

	root, err := decodeNode(certFile)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Tableau:     tb,
		UpperBounds: problem.UpperBounds,
		LowerBounds: problem.LowerBounds,
		Registry:    registry,
		Root:        root,
	}, nil
}

func decodeRegistry(cf ConstraintsFile) (*constraints.Registry, error) {
	r := constraints.NewRegistry()
	for _, c := range cf.Relu {
		r.AddRelu(constraints.NewRelu(c.B, c.F, c.Aux))
	}
	for _, c := range cf.Sign {
		r.AddSign(constraints.NewSign(c.B, c.F))
	}
	for _, c := range cf.Abs {
		r.AddAbs(constraints.NewAbs(c.B, c.F, c.PosAux, c.NegAux))
	}
	for _, c := range cf.Max {
		m := constraints.NewMax(c.F, c.Elements)
		m.EliminatedElements = c.EliminatedElements
		for k, v := range c.EliminatedValues {
			var variable int
			if _, err := fmt.Sscanf(k, "%d", &variable); err != nil {
				return nil, fmt.Errorf("certfile: max constraint eliminatedValues key %q: %w", k, err)
			}
			m.EliminatedValues[variable] = v
		}
		r.AddMax(m)
	}
	for _, c := range cf.Disjunction {
		disjuncts := make([]plc.Split, len(c.Disjuncts))
		for i, d := range c.Disjuncts {
			split, err := decodeSplit(d)
			if err != nil {
				return nil, err
			}
			disjuncts[i] = split
		}
		r.AddDisjunction(constraints.NewDisjunction(disjuncts))
	}
	return r, nil
}

func decodeSide(s string) (plc.Side, error) {
	switch s {
	case "upper":
		return plc.Upper, nil
	case "lower":
		return plc.Lower, nil
	default:
		return 0, fmt.Errorf("certfile: unknown side %q", s)
	}
}

func decodeRelation(s string) (plc.EquationRelation, error) {
	switch s {
	case "", "eq", "=":
		return plc.EquationEQ, nil
	case "le", "<=":
		return plc.EquationLE, nil
	case "ge", ">=":
		return plc.EquationGE, nil
	default:
		return 0, fmt.Errorf("certfile: unknown equation relation %q", s)
	}
}

func decodeKind(s string) (plc.ConstraintKind, error) {
	switch s {
	case "Relu":
		return plc.Relu, nil
	case "Sign":
		return plc.Sign, nil
	case "AbsoluteValue":
		return plc.AbsoluteValue, nil
	case "Max":
		return plc.Max, nil
	case "Disjunction":
		return plc.Disjunction, nil
	default:
		return 0, fmt.Errorf("certfile: unknown constraint kind %q", s)
	}
}

func decodeSplit(sf SplitFile) (plc.Split, error) {
	tightenings := make([]plc.Tightening, len(sf.Tightenings))
	for i, t := range sf.Tightenings {
		side, err := decodeSide(t.Side)
		if err != nil {
			return plc.Split{}, err
		}
		tightenings[i] = plc.Tightening{Variable: t.Variable, Value: t.Value, Side: side}
	}
	equations := make([]plc.Equation, len(sf.Equations))
	for i, e := range sf.Equations {
		relation, err := decodeRelation(e.Relation)
		if err != nil {
			return plc.Split{}, err
		}
		addends := make([]plc.Addend, len(e.Addends))
		for j, a := range e.Addends {
			addends[j] = plc.Addend{Coefficient: a.Coefficient, Variable: a.Variable}
		}
		equations[i] = plc.Equation{Relation: relation, Scalar: e.Scalar, Addends: addends}
	}
	return plc.Split{Tightenings: tightenings, Equations: equations}, nil
}

func decodeDelegation(s string) (certificate.DelegationKind, error) {
	switch s {
	case "", "none":
		return certificate.NoDelegation, nil
	case "saveAndAccept":
		return certificate.SaveAndAccept, nil
	case "acceptSilently":
		return certificate.AcceptSilently, nil
	default:
		return 0, fmt.Errorf("certfile: unknown delegation kind %q", s)
	}
}

func decodeNode(cf CertificateFile) (*certificate.Node, error) {
	split, err := decodeSplit(cf.Split)
	if err != nil {
		return nil, err
	}
	delegation, err := decodeDelegation(cf.Delegation)
	if err != nil {
		return nil, err
	}

	node := &certificate.Node{
		Split:      split,
		SATFlag:    cf.SATFlag,
		Delegation: delegation,
		Visited:    cf.Visited,
	}

	for _, l := range cf.Lemmas {
		lemma, err := decodeLemma(l)
		if err != nil {
			return nil, err
		}
		node.Lemmas = append(node.Lemmas, lemma)
	}

	for _, c := range cf.Children {
		child, err := decodeNode(c)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}

	if cf.Contradiction != nil {
		if cf.Contradiction.Direct {
			node.Contradiction = certificate.NewDirectContradiction(cf.Contradiction.Variable)
		} else {
			node.Contradiction = certificate.NewLinearContradiction(explain.Explanation(cf.Contradiction.Vector))
		}
	}

	return node, nil
}

func decodeLemma(lf LemmaFile) (*certificate.PLCLemma, error) {
	causingSide, err := decodeSide(lf.CausingSide)
	if err != nil {
		return nil, err
	}
	affectedSide, err := decodeSide(lf.AffectedSide)
	if err != nil {
		return nil, err
	}
	kind, err := decodeKind(lf.Kind)
	if err != nil {
		return nil, err
	}
	explanations := make([]explain.Explanation, len(lf.Explanations))
	for i, e := range lf.Explanations {
		explanations[i] = explain.Explanation(e)
	}
	return certificate.NewPLCLemma(lf.CausingVars, causingSide, lf.AffectedVar, affectedSide, lf.Bound, kind, explanations)
}
