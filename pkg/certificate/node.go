package certificate

import "github.com/operator-framework/unsatcert/pkg/plc"

// DelegationKind names how, if at all, a node's residual problem should be
// handed off to an external solver rather than closed by contradiction.
type DelegationKind int

const (
	NoDelegation DelegationKind = iota
	SaveAndAccept
	AcceptSilently
)

// Node is one node of the certificate tree. The tree is a pure ownership
// tree: a node owns its Children, Lemmas, and Contradiction, and the tree
// itself is never cyclic.
type Node struct {
	Split         plc.Split
	Lemmas        []*PLCLemma
	Children      []*Node
	Contradiction *Contradiction
	SATFlag       bool
	Delegation    DelegationKind
	Visited       bool
}

// IsLeaf reports whether the node carries a contradiction and has no
// children, the only shape under which a contradiction may legally
// appear.
func (n *Node) IsLeaf() bool {
	return n.Contradiction != nil && len(n.Children) == 0
}

// IsInternal reports whether the node carries no contradiction and has at
// least one child, the only shape a non-leaf node may legally take.
func (n *Node) IsInternal() bool {
	return n.Contradiction == nil && len(n.Children) > 0
}

// IsUnvisitedStub reports whether the node is a leafless, childless node
// that was never visited by the solver and is therefore trivially
// accepted: a branch the solver closed by means the certificate does not
// record.
func (n *Node) IsUnvisitedStub() bool {
	return !n.Visited && n.Contradiction == nil && len(n.Children) == 0
}

// ChildSplits collects the head splits of every child, in order, for
// constraint matching.
func (n *Node) ChildSplits() []plc.Split {
	splits := make([]plc.Split, len(n.Children))
	for i, c := range n.Children {
		splits[i] = c.Split
	}
	return splits
}
