package constraints

import "github.com/operator-framework/unsatcert/pkg/plc"

// ImpliedReluPhase returns the phase a Relu constraint takes on in the
// branch defined by childSplit: active if the split's first or last
// tightening is a lower bound, inactive otherwise. The active split may
// list b's tightening at either end depending on whether aux's was
// recorded, hence the boundary check.
func ImpliedReluPhase(childSplit plc.Split) plc.PhaseStatus {
	if splitHasBoundaryLower(childSplit) {
		return plc.ReluActive
	}
	return plc.ReluInactive
}

// ImpliedSignPhase mirrors ImpliedReluPhase for Sign constraints; a Sign
// split always leads with b's tightening, so only the first is inspected.
func ImpliedSignPhase(childSplit plc.Split) plc.PhaseStatus {
	if splitHasLeadingLower(childSplit) {
		return plc.SignPositive
	}
	return plc.SignNegative
}

// ImpliedAbsPhase mirrors ImpliedSignPhase for AbsoluteValue constraints.
func ImpliedAbsPhase(childSplit plc.Split) plc.PhaseStatus {
	if splitHasLeadingLower(childSplit) {
		return plc.AbsPositive
	}
	return plc.AbsNegative
}

func splitHasBoundaryLower(s plc.Split) bool {
	if len(s.Tightenings) == 0 {
		return false
	}
	first := s.Tightenings[0]
	last := s.Tightenings[len(s.Tightenings)-1]
	return first.Side == plc.Lower || last.Side == plc.Lower
}

func splitHasLeadingLower(s plc.Split) bool {
	return len(s.Tightenings) > 0 && s.Tightenings[0].Side == plc.Lower
}
