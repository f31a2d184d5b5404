package checker_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/unsatcert/pkg/certificate"
	"github.com/operator-framework/unsatcert/pkg/checker"
	"github.com/operator-framework/unsatcert/pkg/constraints"
	"github.com/operator-framework/unsatcert/pkg/explain"
	"github.com/operator-framework/unsatcert/pkg/plc"
	"github.com/operator-framework/unsatcert/pkg/tableau"
)

func TestChecker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Checker Suite")
}

var _ = Describe("Checker", func() {
	It("certifies a trivial direct-contradiction leaf", func() {
		// x0 in [0, 1]; root is a leaf whose split tightens x0's upper
		// bound to -1, directly below its lower bound of 0.
		tb := tableau.New(1, nil)
		root := &certificate.Node{
			Split:         plc.NewTighteningSplit(plc.Tightening{Variable: 0, Value: -1, Side: plc.Upper}),
			Contradiction: certificate.NewDirectContradiction(0),
		}
		c, err := checker.New(root, tb, []float64{1}, []float64{0}, constraints.NewRegistry())
		Expect(err).NotTo(HaveOccurred())

		verdict, err := c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Certified))
	})

	It("certifies a single Relu split whose children both close directly", func() {
		tb := tableau.New(3, nil)
		relu := constraints.NewRelu(0, 1, 2)
		registry := constraints.NewRegistry()
		registry.AddRelu(relu)

		caseSplits := relu.CaseSplits()
		childA := &certificate.Node{Split: caseSplits[0], Contradiction: certificate.NewDirectContradiction(2)} // aux
		childB := &certificate.Node{Split: caseSplits[1], Contradiction: certificate.NewDirectContradiction(1)} // f
		root := &certificate.Node{Children: []*certificate.Node{childA, childB}}

		// b in [-1,1]; f, aux already have a lower bound of 0.5 so that
		// the split's upper-bound-to-0 tightening on each directly
		// contradicts it.
		c, err := checker.New(root, tb, []float64{1, 1, 1}, []float64{-1, 0.5, 0.5}, registry)
		Expect(err).NotTo(HaveOccurred())

		verdict, err := c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Certified))
	})

	It("rejects that same Relu split when one child's contradiction does not hold", func() {
		tb := tableau.New(3, nil)
		relu := constraints.NewRelu(0, 1, 2)
		registry := constraints.NewRegistry()
		registry.AddRelu(relu)

		caseSplits := relu.CaseSplits()
		childA := &certificate.Node{Split: caseSplits[0], Contradiction: certificate.NewDirectContradiction(2)}
		childB := &certificate.Node{Split: caseSplits[1], Contradiction: certificate.NewDirectContradiction(1)}
		root := &certificate.Node{Children: []*certificate.Node{childA, childB}}

		// f's ground lower bound is 0 here, so tightening its upper bound
		// to 0 in childB does not produce a strict contradiction.
		c, err := checker.New(root, tb, []float64{1, 1, 1}, []float64{-1, 0, 0.5}, registry)
		Expect(err).NotTo(HaveOccurred())

		verdict, err := c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Invalid))
	})

	It("replays a Relu b<=0 => f<=0 lemma and fixes the inactive phase", func() {
		tb := tableau.New(3, nil)
		relu := constraints.NewRelu(0, 1, 2)
		registry := constraints.NewRegistry()
		registry.AddRelu(relu)

		lemma := mustLemma(certificate.NewPLCLemma([]int{0}, plc.Upper, 1, plc.Upper, 0, plc.Relu, []explain.Explanation{nil}))
		leaf := &certificate.Node{
			Split:         plc.NewTighteningSplit(plc.Tightening{Variable: 0, Value: 0, Side: plc.Upper}),
			Lemmas:        []*certificate.PLCLemma{lemma},
			Contradiction: certificate.NewDirectContradiction(1),
		}

		c, err := checker.New(leaf, tb, []float64{1, 1, 1}, []float64{-1, 1, 0}, registry)
		Expect(err).NotTo(HaveOccurred())

		verdict, err := c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Certified))
		Expect(relu.Phase()).To(Equal(plc.ReluInactive))
	})

	It("accepts a single-variable-dichotomy split with no matched constraint", func() {
		tb := tableau.New(1, nil)
		registry := constraints.NewRegistry()

		childUpper := &certificate.Node{
			Split: plc.NewTighteningSplit(plc.Tightening{Variable: 0, Value: -1, Side: plc.Upper}),
			// Leafless, unvisited: trivially accepted.
		}
		childLower := &certificate.Node{
			Split: plc.NewTighteningSplit(plc.Tightening{Variable: 0, Value: -1, Side: plc.Lower}),
		}
		root := &certificate.Node{Children: []*certificate.Node{childUpper, childLower}}

		c, err := checker.New(root, tb, []float64{1}, []float64{0}, registry)
		Expect(err).NotTo(HaveOccurred())

		verdict, err := c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Certified))
	})

	It("rejects a linear contradiction whose derived upper bound is not negative", func() {
		tb := tableau.New(2, []tableau.Row{
			tableau.NewRow(tableau.Entry{Column: 0, Coefficient: 1}, tableau.Entry{Column: 1, Coefficient: 1}),
		})
		leaf := &certificate.Node{
			Contradiction: certificate.NewLinearContradiction(explain.Explanation{1}),
		}
		c, err := checker.New(leaf, tb, []float64{1, 1}, []float64{0, 0}, constraints.NewRegistry())
		Expect(err).NotTo(HaveOccurred())

		verdict, _ := c.Check(context.Background())
		Expect(verdict).To(Equal(checker.Invalid))
	})

	It("restores ground bounds after checking a sub-tree", func() {
		tb := tableau.New(1, nil)
		registry := constraints.NewRegistry()
		childUpper := &certificate.Node{Split: plc.NewTighteningSplit(plc.Tightening{Variable: 0, Value: -1, Side: plc.Upper})}
		childLower := &certificate.Node{Split: plc.NewTighteningSplit(plc.Tightening{Variable: 0, Value: -1, Side: plc.Lower})}
		root := &certificate.Node{Children: []*certificate.Node{childUpper, childLower}}

		upper := []float64{1}
		lower := []float64{0}
		c, err := checker.New(root, tb, upper, lower, registry)
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())

		gotUpper, gotLower := c.Bounds()
		Expect(gotUpper).To(Equal(upper))
		Expect(gotLower).To(Equal(lower))
	})

	It("restores ground bounds and a Relu's phase when a child's check aborts mid-traversal", func() {
		tb := tableau.New(3, nil)
		relu := constraints.NewRelu(0, 1, 2)
		registry := constraints.NewRegistry()
		registry.AddRelu(relu)

		caseSplits := relu.CaseSplits()
		childA := &certificate.Node{Split: caseSplits[0], Contradiction: certificate.NewDirectContradiction(2)}
		childB := &certificate.Node{Split: caseSplits[1], Contradiction: certificate.NewDirectContradiction(1)}
		root := &certificate.Node{
			Split:    plc.NewTighteningSplit(plc.Tightening{Variable: 0, Value: 1, Side: plc.Upper}),
			Children: []*certificate.Node{childA, childB},
		}

		upper := []float64{2, 1, 1}
		lower := []float64{-1, 0.5, 0.5}
		c, err := checker.New(root, tb, upper, lower, registry)
		Expect(err).NotTo(HaveOccurred())

		// ctx reports live for root's own entry check, then cancelled from
		// childA's entry check onward: Check must unwind through childA's
		// abort and still restore root's touched bound and relu's phase.
		ctx := &countdownContext{Context: context.Background(), cancelAt: 1}
		verdict, err := c.Check(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Aborted))

		gotUpper, gotLower := c.Bounds()
		Expect(gotUpper).To(Equal(upper))
		Expect(gotLower).To(Equal(lower))
		Expect(relu.Phase()).To(Equal(plc.PhaseNotFixed))
	})

	It("matches a Relu split whose active child omits the aux tightening", func() {
		tb := tableau.New(3, nil)
		relu := constraints.NewRelu(0, 1, 2)
		registry := constraints.NewRegistry()
		registry.AddRelu(relu)

		// A solver that eliminated aux before writing the certificate
		// records only b's lower bound in the active split, not aux's
		// upper bound. Match must still accept this shape.
		active := plc.NewTighteningSplit(plc.Tightening{Variable: 0, Value: 0, Side: plc.Lower})
		inactive := relu.CaseSplits()[1]
		// b's ground upper bound already sits below 0, so forcing its
		// lower bound to 0 in the active branch directly contradicts it.
		childA := &certificate.Node{Split: active, Contradiction: certificate.NewDirectContradiction(0)}
		// f's ground lower bound of 0.5 contradicts the inactive branch's
		// upper-bound-to-0 tightening on f.
		childB := &certificate.Node{Split: inactive, Contradiction: certificate.NewDirectContradiction(1)}
		root := &certificate.Node{Children: []*certificate.Node{childA, childB}}

		c, err := checker.New(root, tb, []float64{-0.5, 1, 1}, []float64{-1, 0.5, 0}, registry)
		Expect(err).NotTo(HaveOccurred())

		verdict, err := c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Certified))
	})

	It("replays an AbsoluteValue lemma tightening f's upper bound from b", func() {
		tb := tableau.New(4, nil)
		abs := constraints.NewAbs(0, 1, 2, 3)
		registry := constraints.NewRegistry()
		registry.AddAbs(abs)

		// |b| <= 2 follows from b in [-2, 1]; the lemma's two ground
		// explanations justify b's upper and lower bound in turn.
		lemma := mustLemma(certificate.NewPLCLemma([]int{0, 0}, plc.Upper, 1, plc.Upper, 2, plc.AbsoluteValue, []explain.Explanation{nil, nil}))
		leaf := &certificate.Node{
			Lemmas:        []*certificate.PLCLemma{lemma},
			Contradiction: certificate.NewDirectContradiction(1),
		}

		// f's ground lower bound of 3 contradicts the lemma's new upper
		// bound of 2.
		c, err := checker.New(leaf, tb, []float64{1, 5, 1, 1}, []float64{-2, 3, 0, 0}, registry)
		Expect(err).NotTo(HaveOccurred())

		verdict, err := c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Certified))
	})

	It("replays a Max lemma propagating an element's upper bound to f", func() {
		tb := tableau.New(3, nil)
		max := constraints.NewMax(2, []int{0, 1})
		registry := constraints.NewRegistry()
		registry.AddMax(max)

		lemma := mustLemma(certificate.NewPLCLemma([]int{0}, plc.Upper, 2, plc.Upper, 4, plc.Max, []explain.Explanation{nil}))
		leaf := &certificate.Node{
			Lemmas:        []*certificate.PLCLemma{lemma},
			Contradiction: certificate.NewDirectContradiction(2),
		}

		// f's ground lower bound of 5 contradicts the propagated upper
		// bound of 4.
		c, err := checker.New(leaf, tb, []float64{4, 3, 10}, []float64{0, 0, 5}, registry)
		Expect(err).NotTo(HaveOccurred())

		verdict, err := c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Certified))
	})

	It("accepts a zero tolerance and only exact matches under it", func() {
		tb := tableau.New(3, nil)
		relu := constraints.NewRelu(0, 1, 2)
		registry := constraints.NewRegistry()
		registry.AddRelu(relu)

		// b <= 0 => f <= 0 holds exactly at b's ground upper bound of 0.
		lemma := mustLemma(certificate.NewPLCLemma([]int{0}, plc.Upper, 1, plc.Upper, 0, plc.Relu, []explain.Explanation{nil}))
		leaf := &certificate.Node{
			Lemmas:        []*certificate.PLCLemma{lemma},
			Contradiction: certificate.NewDirectContradiction(1),
		}

		c, err := checker.New(leaf, tb, []float64{0, 1, 1}, []float64{-1, 1, 0}, registry, checker.WithTolerance(0))
		Expect(err).NotTo(HaveOccurred())

		verdict, err := c.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Certified))
	})

	It("rejects a negative tolerance at construction", func() {
		tb := tableau.New(1, nil)
		root := &certificate.Node{Contradiction: certificate.NewDirectContradiction(0)}
		_, err := checker.New(root, tb, []float64{1}, []float64{0}, constraints.NewRegistry(), checker.WithTolerance(-1))
		Expect(err).To(HaveOccurred())
	})

	It("aborts when the context is already cancelled", func() {
		tb := tableau.New(1, nil)
		root := &certificate.Node{Contradiction: certificate.NewDirectContradiction(0)}
		c, err := checker.New(root, tb, []float64{1}, []float64{0}, constraints.NewRegistry())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		verdict, err := c.Check(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(verdict).To(Equal(checker.Aborted))
	})
})

func mustLemma(l *certificate.PLCLemma, err error) *certificate.PLCLemma {
	if err != nil {
		panic(err)
	}
	return l
}

// countdownContext reports Err() as nil for its first cancelAt calls, and
// as context.Canceled on every call after that, letting a test cancel a
// traversal after a specific number of checkNode entries rather than
// before the traversal even starts.
type countdownContext struct {
	context.Context
	calls    int
	cancelAt int
}

func (c *countdownContext) Err() error {
	c.calls++
	if c.calls > c.cancelAt {
		return context.Canceled
	}
	return nil
}
