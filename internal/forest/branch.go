package forest

import (
	"fmt"

	"github.com/jward/apiforest/internal/syntax"
)

// rollback is an alias binding to undo when a branch closes.
type rollback struct {
	node  *UsageNode
	ctx   Context
	alias string
}

type branchFrame struct {
	ctx       Context
	rollbacks []rollback
}

// inBranch runs fn inside a fresh branch scope named prefix+line, then
// retracts every alias the branch touched.
func (a *Analyzer) inBranch(prefix string, at *syntax.Node, fn func()) {
	ctx := a.scope.push(fmt.Sprintf("%s%d", prefix, at.Line()), true)
	frame := &branchFrame{ctx: ctx}
	a.branches = append(a.branches, frame)

	fn()

	a.branches = a.branches[:len(a.branches)-1]
	for _, rb := range frame.rollbacks {
		a.forest.DelAlias(rb.node, rb.ctx, rb.alias)
	}
	a.stats.Rollbacks += len(frame.rollbacks)
	a.scope.pop()
}

// branch visits body as a branch scope.
func (a *Analyzer) branch(prefix string, at, body *syntax.Node) {
	if body == nil {
		return
	}
	a.inBranch(prefix, at, func() { a.visit(body) })
}

// deferRetraction records that alias on n must not outlive the innermost
// branch. Outside a branch, or in a def/class nested in one, it does
// nothing.
func (a *Analyzer) deferRetraction(n *UsageNode, alias string) {
	if !a.scope.inBranch() || len(a.branches) == 0 {
		return
	}
	frame := a.branches[len(a.branches)-1]
	for _, ctx := range a.scope.retractionChain() {
		frame.rollbacks = append(frame.rollbacks, rollback{node: n, ctx: ctx, alias: alias})
	}
}
