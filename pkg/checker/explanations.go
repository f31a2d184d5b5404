package checker

import (
	"github.com/sirupsen/logrus"

	"github.com/operator-framework/unsatcert/pkg/certificate"
	"github.com/operator-framework/unsatcert/pkg/constraints"
	"github.com/operator-framework/unsatcert/pkg/plc"
)

// checkAllPLCExplanations replays every lemma node carries, in order. Each
// lemma must be matched to a problem constraint that lists both its
// causing and affected variables, and the constraint-specific replay rule
// must accept it under the checker's tolerance; either failure is a
// terminal verdict for the whole certificate, not just this node. Accepted
// lemmas that are strictly tighter than the current ground bound update
// it, with the touched variable recorded so checkNode can revert it on
// ascent.
func (c *Checker) checkAllPLCExplanations(node *certificate.Node, touchedUpper, touchedLower map[int]struct{}) (bool, error) {
	for _, lemma := range node.Lemmas {
		matched := c.registry.FindByParticipants(lemma.CausingVar(), lemma.AffectedVar)
		if matched == nil {
			c.log.WithField("affectedVar", lemma.AffectedVar).Warn("lemma matches no registered constraint")
			return false, nil
		}
		if matched.Kind() != lemma.ConstraintKind {
			c.log.WithFields(logrus.Fields{
				"lemmaKind":      lemma.ConstraintKind,
				"constraintKind": matched.Kind(),
			}).Warn("lemma's constraint kind disagrees with the matched constraint")
			return false, nil
		}

		var ok bool
		switch matched.Kind() {
		case plc.Relu:
			relu, isRelu := matched.(*constraints.ReluConstraint)
			if !isRelu {
				return false, nil
			}
			ok = c.checkReluLemma(lemma, relu)
		case plc.Sign:
			sign, isSign := matched.(*constraints.SignConstraint)
			if !isSign {
				return false, nil
			}
			ok = c.checkSignLemma(lemma, sign)
		case plc.AbsoluteValue:
			abs, isAbs := matched.(*constraints.AbsConstraint)
			if !isAbs {
				return false, nil
			}
			ok = c.checkAbsLemma(lemma, abs)
		case plc.Max:
			max, isMax := matched.(*constraints.MaxConstraint)
			if !isMax {
				return false, nil
			}
			ok = c.checkMaxLemma(lemma, max)
		default:
			return false, nil
		}

		if !ok {
			c.log.WithFields(logrus.Fields{
				"causingVar":  lemma.CausingVar(),
				"affectedVar": lemma.AffectedVar,
				"kind":        lemma.ConstraintKind,
			}).Warn("lemma rejected by replay rule")
			return false, nil
		}

		bound := lemma.Bound
		affectedVar := lemma.AffectedVar
		var isTighter bool
		if lemma.AffectedSide == plc.Upper {
			isTighter = bound < c.groundUpper[affectedVar]
		} else {
			isTighter = bound > c.groundLower[affectedVar]
		}

		if isTighter {
			if lemma.AffectedSide == plc.Upper {
				c.groundUpper[affectedVar] = bound
				touchedUpper[affectedVar] = struct{}{}
			} else {
				c.groundLower[affectedVar] = bound
				touchedLower[affectedVar] = struct{}{}
			}
		}
	}
	return true, nil
}
