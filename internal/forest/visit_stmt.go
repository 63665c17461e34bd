package forest

import (
	"strings"

	"github.com/jward/apiforest/internal/syntax"
)

// ============================================================================
// Assignment
// ============================================================================

func visitAssign(a *Analyzer, n *syntax.Node) {
	// a = b = value nests as assignment(a, assignment(b, value)).
	var targets []*syntax.Node
	value := n
	for value != nil && value.Kind == syntax.KindAssign {
		a.visit(value.ChildByField("type"))
		if left := value.ChildByField("left"); left != nil {
			targets = append(targets, left)
		}
		value = value.ChildByField("right")
	}
	if value == nil {
		return
	}

	value = value.Unwrap()
	if !isTuple(value) {
		v := a.evaluate(value)
		for _, t := range targets {
			a.assignTarget(t, v)
		}
		return
	}

	vals := make([]*UsageNode, len(value.Children))
	for i, e := range value.Children {
		vals[i] = a.evaluate(e)
	}
	for _, t := range targets {
		t = t.Unwrap()
		if !isSequence(t) {
			a.assignTarget(t, nil)
			continue
		}
		for i, e := range t.Children {
			var v *UsageNode
			if i < len(vals) {
				v = vals[i]
			}
			a.assignTarget(e, v)
		}
	}
}

// assignTarget binds target to v, or severs it when v is nil.
func (a *Analyzer) assignTarget(target *syntax.Node, v *UsageNode) {
	target = target.Unwrap()
	if target == nil {
		return
	}
	switch {
	case target.Kind == syntax.KindStarred:
		for _, c := range target.Children {
			a.assignTarget(c, nil)
		}
		return
	case isSequence(target):
		for _, c := range target.Children {
			a.assignTarget(c, v)
		}
		return
	}

	tokens, ops, ok := a.tokenize(target)
	if !ok {
		a.visit(target)
		return
	}
	matched := a.resolve(tokens)
	for _, op := range ops {
		a.visit(op)
	}
	var t *UsageNode
	if len(matched) > 0 {
		t = matched[len(matched)-1]
	}
	a.rebind(t, v, PathString(tokens))
}

// rebind moves alias from the node the target referred to onto the node
// the value refers to, in the current context.
func (a *Analyzer) rebind(target, value *UsageNode, alias string) {
	ctx := a.scope.current()
	switch {
	case target != nil && value != nil:
		if target == value {
			return
		}
		a.forest.bind(value, ctx, alias)
		a.forest.DelAlias(target, ctx, alias)
		a.deferRetraction(target, alias)
		a.deferRetraction(value, alias)
	case target != nil:
		a.forest.DelAlias(target, ctx, alias)
		a.deferRetraction(target, alias)
	case value != nil:
		a.forest.bind(value, ctx, alias)
		a.deferRetraction(value, alias)
	}
}

// unbind retracts the aliases named by a binding target without counting
// a use. Non-name targets are visited as ordinary expressions.
func (a *Analyzer) unbind(target *syntax.Node) {
	target = target.Unwrap()
	if target == nil {
		return
	}
	switch {
	case target.Kind == syntax.KindStarred || isSequence(target):
		for _, c := range target.Children {
			a.unbind(c)
		}
	case target.Kind == syntax.KindName:
		a.unbindAlias(target.Text())
	default:
		a.visit(target)
	}
}

func (a *Analyzer) unbindAlias(alias string) {
	ctx := a.scope.current()
	n := a.forest.Lookup(alias, ctx)
	if n == nil {
		return
	}
	a.forest.DelAlias(n, ctx, alias)
	a.deferRetraction(n, alias)
}

func visitAugAssign(a *Analyzer, n *syntax.Node) {
	a.visit(n.ChildByField("left"))
	a.visit(n.ChildByField("right"))
}

func visitDelete(a *Analyzer, n *syntax.Node) {
	for _, c := range n.Children {
		a.unbind(c)
	}
}

func isTuple(n *syntax.Node) bool {
	return n != nil && (n.Kind == syntax.KindPatternList || n.Type == "tuple")
}

func isSequence(n *syntax.Node) bool {
	return isTuple(n) || (n != nil && n.Type == "list")
}

// ============================================================================
// Imports
// ============================================================================

func visitImport(a *Analyzer, n *syntax.Node) {
	ctx := a.scope.current()
	for _, item := range n.ChildrenByField("name") {
		switch item.Kind {
		case syntax.KindDottedName:
			a.importModule(dottedPath(item), "", ctx)
		case syntax.KindAliasedImport:
			alias := item.ChildByField("alias")
			if alias == nil {
				continue
			}
			a.importModule(dottedPath(item.ChildByField("name")), alias.Text(), ctx)
		}
	}
}

// importModule creates the chain for a dotted module path. Without an
// "as" name every prefix is bound under its dotted spelling; with one only
// the last module is bound. Bindings made inside a branch are retracted
// when it closes.
func (a *Analyzer) importModule(path, as string, ctx Context) {
	parts := strings.Split(path, ".")
	if path == "" {
		a.stats.SkippedImports++
		return
	}
	node := a.forest.EnsureRoot(parts[0])
	if as == "" {
		a.bindImport(node, ctx, parts[0])
	}
	for i := 1; i < len(parts); i++ {
		node = a.forest.EnsureChild(node, KindInstance, parts[i])
		if as == "" {
			a.bindImport(node, ctx, strings.Join(parts[:i+1], "."))
		}
	}
	if as != "" {
		a.bindImport(node, ctx, as)
	}
}

func (a *Analyzer) bindImport(n *UsageNode, ctx Context, alias string) {
	a.forest.bind(n, ctx, alias)
	a.deferRetraction(n, alias)
}

func visitImportFrom(a *Analyzer, n *syntax.Node) {
	mod := n.ChildByField("module_name")
	if mod == nil || mod.Kind == syntax.KindRelativeImport || len(n.ChildrenOfKind(syntax.KindWildcardImport)) > 0 {
		a.stats.SkippedImports++
		return
	}
	path := dottedPath(mod)
	if path == "" {
		a.stats.SkippedImports++
		return
	}
	ctx := a.scope.current()
	parts := strings.Split(path, ".")
	base := a.forest.EnsureRoot(parts[0])
	for _, p := range parts[1:] {
		base = a.forest.EnsureChild(base, KindInstance, p)
	}

	for _, item := range n.ChildrenByField("name") {
		var name, alias string
		switch item.Kind {
		case syntax.KindDottedName:
			name = dottedPath(item)
			alias = name
		case syntax.KindAliasedImport:
			as := item.ChildByField("alias")
			if as == nil {
				continue
			}
			name = dottedPath(item.ChildByField("name"))
			alias = as.Text()
		default:
			continue
		}
		node := base
		for _, p := range strings.Split(name, ".") {
			node = a.forest.EnsureChild(node, KindInstance, p)
		}
		a.bindImport(node, ctx, alias)
	}
}

func dottedPath(n *syntax.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind != syntax.KindDottedName {
		return n.Text()
	}
	parts := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		parts = append(parts, c.Text())
	}
	return strings.Join(parts, ".")
}

// ============================================================================
// Control flow
// ============================================================================

func visitIf(a *Analyzer, n *syntax.Node) {
	a.visit(n.ChildByField("condition"))
	a.branch("If", n, n.ChildByField("consequence"))
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.KindElif:
			a.visit(c.ChildByField("condition"))
			a.branch("If", c, c.ChildByField("consequence"))
		case syntax.KindElse:
			a.branch("Else", c, blockOf(c))
		}
	}
}

func visitWhile(a *Analyzer, n *syntax.Node) {
	a.visit(n.ChildByField("condition"))
	a.branch("While", n, n.ChildByField("body"))
	if alt := elseOf(n); alt != nil {
		a.branch("Else", alt, blockOf(alt))
	}
}

func visitFor(a *Analyzer, n *syntax.Node) {
	a.visit(n.ChildByField("right"))
	a.unbind(n.ChildByField("left"))
	a.visit(n.ChildByField("body"))
	if alt := elseOf(n); alt != nil {
		a.branch("Else", alt, blockOf(alt))
	}
}

func visitTry(a *Analyzer, n *syntax.Node) {
	a.branch("Try", n, n.ChildByField("body"))
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.KindExcept:
			a.inBranch("ExceptHandler", c, func() { visitExcept(a, c) })
		case syntax.KindElse:
			a.branch("Else", c, blockOf(c))
		case syntax.KindFinally:
			a.branch("Finally", c, blockOf(c))
		}
	}
}

// visitExcept handles "except T as e" by binding e to T. The grammar
// spells the clause either as an as_pattern or as two bare expressions.
func visitExcept(a *Analyzer, n *syntax.Node) {
	var body *syntax.Node
	var exprs []*syntax.Node
	for _, c := range n.Children {
		if c.Kind == syntax.KindBlock {
			body = c
		} else {
			exprs = append(exprs, c)
		}
	}

	var typ, name *syntax.Node
	switch {
	case len(exprs) > 0 && exprs[0].Kind == syntax.KindAsPattern:
		typ, name = asPatternParts(exprs[0])
	case len(exprs) > 1:
		typ, name = exprs[0], exprs[1]
	case len(exprs) == 1:
		typ = exprs[0]
	}
	v := a.evaluate(typ)
	if name != nil {
		a.assignTarget(name, v)
	}
	a.visit(body)
}

func visitWith(a *Analyzer, n *syntax.Node) {
	for _, clause := range n.ChildrenOfKind(syntax.KindWithClause) {
		for _, item := range clause.ChildrenOfKind(syntax.KindWithItem) {
			a.visit(item)
		}
	}
	a.visit(n.ChildByField("body"))
}

func visitWithItem(a *Analyzer, n *syntax.Node) {
	value := n.ChildByField("value")
	if value == nil && len(n.Children) > 0 {
		value = n.Children[0]
	}
	if value != nil && value.Kind == syntax.KindAsPattern {
		expr, target := asPatternParts(value)
		a.assignTarget(target, a.evaluate(expr))
		return
	}
	v := a.evaluate(value)
	if alias := n.ChildByField("alias"); alias != nil {
		a.assignTarget(alias, v)
	}
}

func elseOf(n *syntax.Node) *syntax.Node {
	if alt := n.ChildByField("alternative"); alt != nil {
		return alt
	}
	if alts := n.ChildrenOfKind(syntax.KindElse); len(alts) > 0 {
		return alts[0]
	}
	return nil
}

func blockOf(n *syntax.Node) *syntax.Node {
	if body := n.ChildByField("body"); body != nil {
		return body
	}
	if blocks := n.ChildrenOfKind(syntax.KindBlock); len(blocks) > 0 {
		return blocks[0]
	}
	return nil
}

// ============================================================================
// Definitions
// ============================================================================

func visitFunctionDef(a *Analyzer, n *syntax.Node) {
	a.visit(n.ChildByField("parameters"))
	a.visit(n.ChildByField("return_type"))
	a.defineScope(n)
}

func visitClassDef(a *Analyzer, n *syntax.Node) {
	a.visit(n.ChildByField("superclasses"))
	a.defineScope(n)
}

// defineScope rebinds the definition's name, which shadows any import
// of the same name, and visits the body in its own scope.
func (a *Analyzer) defineScope(n *syntax.Node) {
	name := n.ChildByField("name").Text()
	if name != "" {
		a.unbindAlias(name)
	}
	a.scope.push(name, false)
	a.visit(n.ChildByField("body"))
	a.scope.pop()
}
