package smtlib_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/unsatcert/pkg/constraints"
	"github.com/operator-framework/unsatcert/pkg/plc"
	"github.com/operator-framework/unsatcert/pkg/smtlib"
	"github.com/operator-framework/unsatcert/pkg/tableau"
)

func TestSmtlib(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SMT-LIB Writer Suite")
}

var _ = Describe("Writer", func() {
	It("emits the delegated-leaf text format for a leaf with one row and one unfixed Relu", func() {
		dir, err := os.MkdirTemp("", "smtlib")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		tb := tableau.New(2, []tableau.Row{
			tableau.NewRow(tableau.Entry{Column: 0, Coefficient: 1}, tableau.Entry{Column: 1, Coefficient: 2}),
		})
		registry := constraints.NewRegistry()
		registry.AddRelu(constraints.NewRelu(0, 1, 0))

		w := &smtlib.Writer{Dir: dir, Epsilon: 1e-8}
		Expect(w.Delegate(tb, []float64{1, 1}, []float64{-1, -1}, registry)).To(Succeed())

		content, err := os.ReadFile(filepath.Join(dir, "delegated0.smtlib"))
		Expect(err).NotTo(HaveOccurred())
		text := string(content)

		Expect(text).To(ContainSubstring("( set-logic QF_LRA )\n"))
		Expect(text).To(ContainSubstring("( declare-fun x0 () Real )\n"))
		Expect(text).To(ContainSubstring("( declare-fun x1 () Real )\n"))
		Expect(text).To(ContainSubstring("( assert ( = 0 ( + x0 ( * 2 x1 ) ) ) )\n"))
		Expect(text).To(ContainSubstring("( assert ( = x1 ( ite ( >= x0 0 ) x0 0 ) ) )\n"))
		Expect(text).To(HaveSuffix("( check-sat )\n( exit )\n"))
	})

	It("names successive delegated leaves with an incrementing counter", func() {
		dir, err := os.MkdirTemp("", "smtlib")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		tb := tableau.New(1, nil)
		registry := constraints.NewRegistry()
		w := &smtlib.Writer{Dir: dir}

		Expect(w.Delegate(tb, []float64{1}, []float64{0}, registry)).To(Succeed())
		Expect(w.Delegate(tb, []float64{1}, []float64{0}, registry)).To(Succeed())

		_, err = os.Stat(filepath.Join(dir, "delegated0.smtlib"))
		Expect(err).NotTo(HaveOccurred())
		_, err = os.Stat(filepath.Join(dir, "delegated1.smtlib"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("renders a disjunction as an or of conjunctions, with negative literals wrapped", func() {
		dir, err := os.MkdirTemp("", "smtlib")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		tb := tableau.New(2, nil)
		registry := constraints.NewRegistry()
		registry.AddDisjunction(constraints.NewDisjunction([]plc.Split{
			plc.NewTighteningSplit(plc.Tightening{Variable: 0, Value: -0.5, Side: plc.Upper}),
			{
				Tightenings: []plc.Tightening{{Variable: 0, Value: -0.5, Side: plc.Lower}},
				Equations: []plc.Equation{{
					Relation: plc.EquationEQ,
					Scalar:   1,
					Addends:  []plc.Addend{{Coefficient: 1, Variable: 0}, {Coefficient: -2, Variable: 1}},
				}},
			},
		}))

		w := &smtlib.Writer{Dir: dir, Epsilon: 1e-2}
		Expect(w.Delegate(tb, []float64{1, 1}, []float64{-1, -1}, registry)).To(Succeed())

		content, err := os.ReadFile(filepath.Join(dir, "delegated0.smtlib"))
		Expect(err).NotTo(HaveOccurred())
		text := string(content)

		Expect(text).To(ContainSubstring("( assert ( or ( <= x0 ( - 0.5 ) ) ( and ( >= x0 ( - 0.5 ) ) ( = 1 ( + x0 ( * ( - 2 ) x1 ) ) ) ) ) )\n"))
	})

	It("renders a fixed Relu constraint without the ite form", func() {
		dir, err := os.MkdirTemp("", "smtlib")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		tb := tableau.New(2, nil)
		relu := constraints.NewRelu(0, 1, 0)
		relu.SetPhase(plc.ReluActive)
		registry := constraints.NewRegistry()
		registry.AddRelu(relu)

		w := &smtlib.Writer{Dir: dir}
		Expect(w.Delegate(tb, []float64{1, 1}, []float64{-1, -1}, registry)).To(Succeed())

		content, err := os.ReadFile(filepath.Join(dir, "delegated0.smtlib"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(ContainSubstring("( assert ( = x1 x0 ) )\n"))
	})
})
