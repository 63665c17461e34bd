package forest

import (
	"fmt"

	"github.com/jward/apiforest/internal/syntax"
)

type visitFunc func(a *Analyzer, n *syntax.Node)

// visitors is indexed by syntax.Kind. Every kind has an entry; the
// dispatch test fails when a Kind is added without one.
var visitors [syntax.NumKinds]visitFunc

func init() {
	visitors = [syntax.NumKinds]visitFunc{
		syntax.KindUnknown: visitUnknown,

		syntax.KindLiteral:    visitGeneric,
		syntax.KindCollection: visitGeneric,
		syntax.KindPair:       visitGeneric,

		syntax.KindName:    visitPath,
		syntax.KindStarred: visitGeneric,

		syntax.KindUnaryOp:     visitGeneric,
		syntax.KindBinaryOp:    visitGeneric,
		syntax.KindBoolOp:      visitGeneric,
		syntax.KindNotOp:       visitGeneric,
		syntax.KindCompare:     visitGeneric,
		syntax.KindConditional: visitGeneric,

		syntax.KindAttribute:       visitPath,
		syntax.KindCall:            visitPath,
		syntax.KindArguments:       visitGeneric,
		syntax.KindKeywordArgument: visitKeywordArgument,
		syntax.KindSubscript:       visitPath,
		syntax.KindSlice:           visitGeneric,
		syntax.KindParenthesized:   visitGeneric,

		syntax.KindComprehension: visitGeneric,
		syntax.KindGenerator:     visitGeneric,
		syntax.KindForInClause:   visitForInClause,
		syntax.KindIfClause:      visitGeneric,
		syntax.KindYield:         visitGeneric,
		syntax.KindAwait:         visitGeneric,
		syntax.KindNamedExpr:     visitNamedExpr,

		syntax.KindModule:        visitGeneric,
		syntax.KindBlock:         visitGeneric,
		syntax.KindExprStatement: visitGeneric,
		syntax.KindAssign:        visitAssign,
		syntax.KindAugAssign:     visitAugAssign,
		syntax.KindDelete:        visitDelete,
		syntax.KindPass:          visitNothing,
		syntax.KindReturn:        visitGeneric,
		syntax.KindGlobal:        visitNothing,
		syntax.KindNonlocal:      visitNothing,

		syntax.KindRaise:   visitGeneric,
		syntax.KindAssert:  visitGeneric,
		syntax.KindTry:     visitTry,
		syntax.KindExcept:  visitExcept,
		syntax.KindFinally: visitGeneric,

		syntax.KindImport:         visitImport,
		syntax.KindImportFrom:     visitImportFrom,
		syntax.KindDottedName:     visitNothing,
		syntax.KindAliasedImport:  visitNothing,
		syntax.KindRelativeImport: visitNothing,
		syntax.KindWildcardImport: visitNothing,

		syntax.KindIf:         visitIf,
		syntax.KindElif:       visitGeneric,
		syntax.KindElse:       visitGeneric,
		syntax.KindFor:        visitFor,
		syntax.KindWhile:      visitWhile,
		syntax.KindBreak:      visitNothing,
		syntax.KindContinue:   visitNothing,
		syntax.KindWith:       visitWith,
		syntax.KindWithClause: visitGeneric,
		syntax.KindWithItem:   visitWithItem,
		syntax.KindAsPattern:  visitAsPattern,
		syntax.KindAsTarget:   visitNothing,

		syntax.KindFunctionDef: visitFunctionDef,
		syntax.KindClassDef:    visitClassDef,
		syntax.KindDecorated:   visitGeneric,
		syntax.KindDecorator:   visitGeneric,
		syntax.KindLambda:      visitLambda,
		syntax.KindParameters:  visitParameters,
		syntax.KindParameter:   visitParameter,
		syntax.KindType:        visitGeneric,

		syntax.KindPatternList: visitGeneric,

		syntax.KindComment: visitNothing,
		syntax.KindError:   visitUnknown,
	}
}

func visitNothing(*Analyzer, *syntax.Node) {}

func visitGeneric(a *Analyzer, n *syntax.Node) {
	a.visitChildren(n)
}

func visitUnknown(a *Analyzer, n *syntax.Node) {
	a.debugUnknown(n)
	a.visitChildren(n)
}

// ============================================================================
// Expressions
// ============================================================================

func visitPath(a *Analyzer, n *syntax.Node) {
	tokens, ops, ok := a.tokenize(n)
	if !ok {
		visitPathParts(a, n)
		return
	}
	a.resolve(tokens)
	for _, op := range ops {
		a.visit(op)
	}
}

// visitPathParts handles paths rooted in something that is not a name,
// such as "".join(xs) or f()[0] where f is a lambda. Attribute names are
// never loads.
func visitPathParts(a *Analyzer, n *syntax.Node) {
	switch n.Kind {
	case syntax.KindAttribute:
		a.visit(n.ChildByField("object"))
	case syntax.KindCall:
		a.visit(n.ChildByField("function"))
		a.visit(n.ChildByField("arguments"))
	case syntax.KindSubscript:
		a.visit(n.ChildByField("value"))
		for _, s := range n.ChildrenByField("subscript") {
			a.visit(s)
		}
	}
}

func visitKeywordArgument(a *Analyzer, n *syntax.Node) {
	a.visit(n.ChildByField("value"))
}

// Comprehension targets are local to the comprehension.
func visitForInClause(a *Analyzer, n *syntax.Node) {
	for _, c := range n.Children {
		if c.Field != "left" {
			a.visit(c)
		}
	}
}

func visitNamedExpr(a *Analyzer, n *syntax.Node) {
	v := a.evaluate(n.ChildByField("value"))
	a.assignTarget(n.ChildByField("name"), v)
}

func visitAsPattern(a *Analyzer, n *syntax.Node) {
	expr, _ := asPatternParts(n)
	a.visit(expr)
}

func visitLambda(a *Analyzer, n *syntax.Node) {
	a.visit(n.ChildByField("parameters"))
	a.scope.push(fmt.Sprintf("Lambda%d", n.Line()), false)
	a.visit(n.ChildByField("body"))
	a.scope.pop()
}

// Plain parameter names are bindings, not loads; only defaults and
// annotations are visited.
func visitParameters(a *Analyzer, n *syntax.Node) {
	for _, c := range n.Children {
		if c.Kind == syntax.KindParameter {
			a.visit(c)
		}
	}
}

func visitParameter(a *Analyzer, n *syntax.Node) {
	a.visit(n.ChildByField("type"))
	a.visit(n.ChildByField("value"))
}

func asPatternParts(n *syntax.Node) (expr, target *syntax.Node) {
	target = n.ChildByField("alias")
	for _, c := range n.Children {
		if c != target {
			expr = c
			break
		}
	}
	if target == nil && len(n.Children) > 1 {
		target = n.Children[len(n.Children)-1]
	}
	return expr, target
}
