// Package checker implements the certificate tree traversal that decides
// whether an UNSAT certificate is valid: at every node it replays the
// node's PLC lemmas against the current ground bounds, descends into
// children after matching them to the problem constraint (if any) they
// were branched on, and at leaves verifies the recorded contradiction.
// Ground-bound mutations strictly nest with the traversal: whatever a
// sub-tree touched is restored on ascent, on every exit path.
package checker

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/operator-framework/unsatcert/pkg/certificate"
	"github.com/operator-framework/unsatcert/pkg/constraints"
	"github.com/operator-framework/unsatcert/pkg/plc"
	"github.com/operator-framework/unsatcert/pkg/tableau"
)

// Verdict is the outcome of a certificate check.
type Verdict int

const (
	Certified Verdict = iota
	Invalid
	Aborted
)

func (v Verdict) String() string {
	switch v {
	case Certified:
		return "certified"
	case Invalid:
		return "invalid"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ErrAborted is the error the traversal (and Leaf) returns when ctx is
// cancelled mid-traversal. Check maps it to the Aborted verdict with a nil
// error.
var ErrAborted = errors.New("checker: check aborted")

// Delegator is notified when a leaf is marked for delegation to an
// external solver, receiving everything needed to export it as an SMT-LIB
// instance. Checker.Check never fails because of a Delegator error beyond
// wrapping it; delegation is an export side effect, not part of the
// verdict.
type Delegator interface {
	Delegate(tableau *tableau.Tableau, groundUpper, groundLower []float64, registry *constraints.Registry) error
}

// Config lists every tunable of a Checker. New does not take a Config:
// each tunable is set on the Checker through its functional Option.
type Config struct {
	Tolerance           float64
	CrossValidateSplits bool
	Delegator           Delegator
	Log                 *logrus.Entry
}

// Option configures a Checker at construction time.
type Option func(*Checker) error

// WithTolerance sets the epsilon used by lemma replay's numeric
// comparisons. Zero is allowed and accepts only exact matches.
func WithTolerance(epsilon float64) Option {
	return func(c *Checker) error {
		if epsilon < 0 {
			return fmt.Errorf("checker: tolerance must be non-negative, got %g", epsilon)
		}
		c.tolerance = epsilon
		return nil
	}
}

// WithCrossValidateSplits enables the gini-backed diagnostic that checks
// every internal node's children's case splits for mutual exclusion and
// exhaustiveness. It never changes the verdict; a failed cross-validation
// is only logged.
func WithCrossValidateSplits(enabled bool) Option {
	return func(c *Checker) error {
		c.crossValidate = enabled
		return nil
	}
}

// WithDelegator registers the sink that SaveAndAccept leaves are exported
// to.
func WithDelegator(d Delegator) Option {
	return func(c *Checker) error {
		c.delegator = d
		return nil
	}
}

// WithLogger sets the structured logger the Checker reports diagnostics
// to. Without this option, or with a nil entry, all output is discarded.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Checker) error {
		if log == nil {
			log = discardLogger()
		}
		c.log = log
		return nil
	}
}

const defaultTolerance = 1e-8

func discardLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// Checker holds the mutable ground-bound state shared across one
// traversal of a certificate tree, plus the registry of problem
// constraints case splits are matched against.
type Checker struct {
	root        *certificate.Node
	tableau     *tableau.Tableau
	groundUpper []float64
	groundLower []float64
	registry    *constraints.Registry

	tolerance     float64
	crossValidate bool
	delegator     Delegator
	log           *logrus.Entry
}

// New builds a Checker for root, over the given tableau, initial ground
// bounds, and problem constraint registry. groundUpper and groundLower
// are copied; the Checker mutates its own copies while descending.
func New(root *certificate.Node, t *tableau.Tableau, groundUpper, groundLower []float64, registry *constraints.Registry, opts ...Option) (*Checker, error) {
	if len(groundUpper) != len(groundLower) {
		return nil, fmt.Errorf("checker: %d upper bounds but %d lower bounds", len(groundUpper), len(groundLower))
	}
	c := &Checker{
		root:        root,
		tableau:     t,
		groundUpper: append([]float64(nil), groundUpper...),
		groundLower: append([]float64(nil), groundLower...),
		registry:    registry,
		tolerance:   defaultTolerance,
		log:         discardLogger(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Bounds returns copies of the Checker's current ground bounds. Outside of
// a Check call in progress, this is the state the bounds were constructed
// with: Check restores every touched bound on return, by the same
// snapshot/restore discipline checkNode applies at each node it descends
// into.
func (c *Checker) Bounds() (upper, lower []float64) {
	return append([]float64(nil), c.groundUpper...), append([]float64(nil), c.groundLower...)
}

// Check traverses the certificate tree rooted at the Checker's root and
// reports whether it is a valid certificate of unsatisfiability. An I/O
// failure while exporting a delegated leaf stops the traversal with the
// wrapped error and an Aborted verdict rather than Invalid: it concerns a
// leaf the certificate had already accepted, not a flaw in the proof.
func (c *Checker) Check(ctx context.Context) (Verdict, error) {
	ok, err := c.checkNode(ctx, c.root)
	if err != nil {
		if errors.Is(err, ErrAborted) {
			return Aborted, nil
		}
		return Aborted, err
	}
	if !ok {
		return Invalid, nil
	}
	return Certified, nil
}

func (c *Checker) checkNode(ctx context.Context, node *certificate.Node) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, ErrAborted
	}

	upperBackup := append([]float64(nil), c.groundUpper...)
	lowerBackup := append([]float64(nil), c.groundLower...)
	touchedUpper := map[int]struct{}{}
	touchedLower := map[int]struct{}{}

	// Running the restore via defer, rather than only after the children
	// loop, guarantees every exit path (leaf contradiction, delegation, an
	// aborted child, a failed match) leaves groundUpper and groundLower
	// exactly as they were on entry.
	defer func() {
		for v := range touchedUpper {
			c.groundUpper[v] = upperBackup[v]
		}
		for v := range touchedLower {
			c.groundLower[v] = lowerBackup[v]
		}
	}()

	for _, t := range node.Split.Tightenings {
		if t.Side == plc.Upper {
			c.groundUpper[t.Variable] = t.Value
			touchedUpper[t.Variable] = struct{}{}
		} else {
			c.groundLower[t.Variable] = t.Value
			touchedLower[t.Variable] = struct{}{}
		}
	}

	ok, err := c.checkAllPLCExplanations(node, touchedUpper, touchedLower)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if node.Delegation == certificate.SaveAndAccept && c.delegator != nil {
		if err := c.delegator.Delegate(c.tableau, c.groundUpper, c.groundLower, c.registry); err != nil {
			return false, fmt.Errorf("checker: delegating leaf: %w", err)
		}
	}

	if node.SATFlag || node.Delegation != certificate.NoDelegation {
		return true, nil
	}

	if node.IsLeaf() {
		return c.checkContradiction(node), nil
	}

	if node.IsUnvisitedStub() {
		return true, nil
	}

	if !node.IsInternal() {
		return false, nil
	}

	childSplits := node.ChildSplits()
	matched, ok := c.registry.Match(childSplits)
	if !ok {
		c.log.WithField("numChildren", len(childSplits)).Warn("node's case splits match no known constraint or single-variable dichotomy")
		return false, nil
	}

	if c.crossValidate {
		coverage, err := constraints.CheckSplitCoverage(childSplits)
		if err != nil {
			c.log.WithError(err).Warn("split coverage diagnostic failed to run")
		} else if !coverage.MutuallyExclusive || !coverage.Exhaustive {
			c.log.WithFields(logrus.Fields{
				"mutuallyExclusive": coverage.MutuallyExclusive,
				"exhaustive":        coverage.Exhaustive,
			}).Warn("node's case splits failed the cross-validation diagnostic")
		}
	}

	answer := true
	for _, child := range node.Children {
		var prevPhase plc.PhaseStatus
		if matched != nil {
			prevPhase = matched.Phase()
			applyChildPhase(matched, child.Split)
		}
		childOK, err := c.checkNode(ctx, child)
		if matched != nil {
			restoreChildPhase(matched, child.Split, prevPhase)
		}
		if err != nil {
			return false, err
		}
		if !childOK {
			answer = false
		}
	}

	return answer, nil
}

// Leaf walks the certificate tree from the root down the given path of
// child indices, applying each node's tightenings and PLC lemma
// propagations exactly as Check would, and returns the node at the end of
// the path together with the ground bounds in effect there. It does not
// recurse into the target node's own children, and it does not restore
// bounds on return: the Checker's state afterward reflects having
// descended to that node. It exists for the replay command, which needs
// the ground bounds a single delegated leaf saw without re-checking the
// whole tree.
func (c *Checker) Leaf(ctx context.Context, path []int) (*certificate.Node, []float64, []float64, error) {
	node := c.root
	for _, idx := range path {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, ErrAborted
		}
		for _, t := range node.Split.Tightenings {
			if t.Side == plc.Upper {
				c.groundUpper[t.Variable] = t.Value
			} else {
				c.groundLower[t.Variable] = t.Value
			}
		}
		if _, err := c.checkAllPLCExplanations(node, map[int]struct{}{}, map[int]struct{}{}); err != nil {
			return nil, nil, nil, err
		}
		if idx < 0 || idx >= len(node.Children) {
			return nil, nil, nil, fmt.Errorf("checker: child index %d out of range (node has %d children)", idx, len(node.Children))
		}
		childSplits := node.ChildSplits()
		if matched, ok := c.registry.Match(childSplits); ok && matched != nil {
			applyChildPhase(matched, node.Children[idx].Split)
		}
		node = node.Children[idx]
	}
	for _, t := range node.Split.Tightenings {
		if t.Side == plc.Upper {
			c.groundUpper[t.Variable] = t.Value
		} else {
			c.groundLower[t.Variable] = t.Value
		}
	}
	if _, err := c.checkAllPLCExplanations(node, map[int]struct{}{}, map[int]struct{}{}); err != nil {
		return nil, nil, nil, err
	}
	return node, append([]float64(nil), c.groundUpper...), append([]float64(nil), c.groundLower...), nil
}

// applyChildPhase fixes constraint's phase for the branch child represents
// before the checker recurses into it. Max constraints never fix a phase;
// a Disjunction instead drops the child's disjunct from its feasible set.
func applyChildPhase(constraint constraints.ProblemConstraint, childSplit plc.Split) {
	switch c := constraint.(type) {
	case *constraints.ReluConstraint:
		c.SetPhase(constraints.ImpliedReluPhase(childSplit))
	case *constraints.SignConstraint:
		c.SetPhase(constraints.ImpliedSignPhase(childSplit))
	case *constraints.AbsConstraint:
		c.SetPhase(constraints.ImpliedAbsPhase(childSplit))
	case *constraints.DisjunctionConstraint:
		c.RemoveFeasibleDisjunct(childSplit)
	}
}

// restoreChildPhase undoes applyChildPhase's effect as soon as the child's
// sub-tree check returns, so a constraint's state never leaks into a
// sibling subtree. prevPhase is the phase captured before applyChildPhase
// ran; for a Disjunction the child's disjunct rejoins the feasible set.
func restoreChildPhase(constraint constraints.ProblemConstraint, childSplit plc.Split, prevPhase plc.PhaseStatus) {
	if d, isDisjunction := constraint.(*constraints.DisjunctionConstraint); isDisjunction {
		d.AddFeasibleDisjunct(childSplit)
		return
	}
	constraint.SetPhase(prevPhase)
}
