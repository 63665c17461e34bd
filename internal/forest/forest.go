package forest

import (
	"slices"
)

// Forest is the set of usage trees built from one analysis, one root per
// imported top-level module.
type Forest struct {
	roots  []*UsageNode
	byName map[string]*UsageNode
	// byAlias is the reverse alias index, in binding order.
	byAlias map[string][]*UsageNode
}

// New returns an empty forest.
func New() *Forest {
	return &Forest{
		byName:  make(map[string]*UsageNode),
		byAlias: make(map[string][]*UsageNode),
	}
}

// Roots returns the module roots in the order they were first imported.
func (f *Forest) Roots() []*UsageNode { return slices.Clone(f.roots) }

// Root returns the root for a top-level module name, or nil.
func (f *Forest) Root(module string) *UsageNode { return f.byName[module] }

// EnsureRoot finds or creates the root for a module. New roots start with
// a zero count.
func (f *Forest) EnsureRoot(module string) *UsageNode {
	if r, ok := f.byName[module]; ok {
		return r
	}
	r := newUsageNode(KindModule, module, nil)
	f.byName[module] = r
	f.roots = append(f.roots, r)
	return r
}

// EnsureChild finds or creates the child of parent with the given kind
// and key. New children start with a zero count.
func (f *Forest) EnsureChild(parent *UsageNode, kind NodeKind, key string) *UsageNode {
	if c := parent.Child(kind, key); c != nil {
		return c
	}
	return parent.addChild(kind, key)
}

// AddAlias binds alias to n in ctx.
func (f *Forest) AddAlias(n *UsageNode, ctx Context, alias string) {
	set := n.aliases[ctx]
	if set == nil {
		set = make(map[string]struct{})
		n.aliases[ctx] = set
	}
	if _, ok := set[alias]; ok {
		return
	}
	set[alias] = struct{}{}
	if n.refs[alias] == 0 {
		f.byAlias[alias] = append(f.byAlias[alias], n)
	}
	n.refs[alias]++
}

// DelAlias removes alias from n in ctx. Absent aliases are ignored.
func (f *Forest) DelAlias(n *UsageNode, ctx Context, alias string) {
	set := n.aliases[ctx]
	if _, ok := set[alias]; !ok {
		return
	}
	delete(set, alias)
	if len(set) == 0 {
		delete(n.aliases, ctx)
	}
	n.refs[alias]--
	if n.refs[alias] > 0 {
		return
	}
	delete(n.refs, alias)
	holders := f.byAlias[alias]
	if i := slices.Index(holders, n); i >= 0 {
		holders = slices.Delete(holders, i, i+1)
	}
	if len(holders) == 0 {
		delete(f.byAlias, alias)
	} else {
		f.byAlias[alias] = holders
	}
}

// bind makes n the only node holding alias in ctx.
func (f *Forest) bind(n *UsageNode, ctx Context, alias string) {
	for _, other := range slices.Clone(f.byAlias[alias]) {
		if other != n {
			f.DelAlias(other, ctx, alias)
		}
	}
	f.AddAlias(n, ctx, alias)
}

// Lookup finds the node that alias refers to when seen from ctx: the
// binding in the innermost context enclosing ctx wins, and ties go to the
// earliest binding. It returns nil when nothing is visible.
func (f *Forest) Lookup(alias string, ctx Context) *UsageNode {
	var best *UsageNode
	bestDepth := -1
	for _, n := range f.byAlias[alias] {
		if d, ok := n.visibleDepth(alias, ctx); ok && d > bestDepth {
			best, bestDepth = n, d
		}
	}
	return best
}

// Walk visits every node depth-first in creation order. Returning false
// skips the node's subtree.
func (f *Forest) Walk(fn func(*UsageNode) bool) {
	var walk func(*UsageNode)
	walk = func(n *UsageNode) {
		if !fn(n) {
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	for _, r := range f.roots {
		walk(r)
	}
}

// Len returns the total number of nodes.
func (f *Forest) Len() int {
	total := 0
	f.Walk(func(*UsageNode) bool {
		total++
		return true
	})
	return total
}

// Merge folds other into f: matching nodes sum their counts and union
// their aliases. The one-node-per-alias rule holds within a single
// analysis only; merged forests keep every file's bindings.
func (f *Forest) Merge(other *Forest) {
	var merge func(dst, src *UsageNode)
	merge = func(dst, src *UsageNode) {
		dst.count += src.count
		for ctx, set := range src.aliases {
			for alias := range set {
				f.AddAlias(dst, ctx, alias)
			}
		}
		for _, sc := range src.children {
			merge(f.EnsureChild(dst, sc.Kind, sc.Key), sc)
		}
	}
	for _, r := range other.roots {
		merge(f.EnsureRoot(r.Key), r)
	}
}
