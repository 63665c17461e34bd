package forest

import (
	"fmt"
	"log/slog"

	"github.com/jward/apiforest/internal/syntax"
)

// Stats summarizes one analysis.
type Stats struct {
	Nodes             int `json:"nodes"`
	Resolved          int `json:"resolved"`
	Unresolved        int `json:"unresolved"`
	SkippedImports    int `json:"skipped_imports"`
	UnknownConstructs int `json:"unknown_constructs"`
	Rollbacks         int `json:"rollbacks"`

	// Builtins counts paths rooted at an unshadowed built-in function;
	// they are not included in Unresolved.
	Builtins int `json:"builtins"`

	// UnknownByCategory splits UnknownConstructs by syntax category.
	UnknownByCategory map[string]int `json:"unknown_by_category,omitempty"`
}

// Result is the output of Analyze.
type Result struct {
	Forest *Forest
	Stats  Stats
}

// Option configures an Analyze call.
type Option func(*Analyzer)

// WithMaxDepth caps expression and statement nesting.
func WithMaxDepth(depth int) Option {
	return func(a *Analyzer) {
		if depth > 0 {
			a.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for debug output about unknown constructs.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// Analyzer builds a usage forest from one syntax tree. It is single-use and
// not safe for concurrent use; run one Analyzer per file.
type Analyzer struct {
	forest   *Forest
	scope    *scopeTracker
	branches []*branchFrame
	tz       tokenizer
	maxDepth int
	depth    int
	logger   *slog.Logger
	stats    Stats
}

// Analyze walks root once and returns the usage forest it implies.
func Analyze(root *syntax.Node, opts ...Option) (*Result, error) {
	a := &Analyzer{
		forest:   New(),
		scope:    newScopeTracker(),
		maxDepth: syntax.DefaultMaxDepth,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.tz = tokenizer{maxDepth: a.maxDepth}

	if err := a.run(root); err != nil {
		return nil, err
	}
	a.stats.Nodes = a.forest.Len()
	return &Result{Forest: a.forest, Stats: a.stats}, nil
}

func (a *Analyzer) run(root *syntax.Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()
	a.visit(root)
	return nil
}

func (a *Analyzer) visit(n *syntax.Node) {
	if n == nil {
		return
	}
	a.depth++
	if a.depth > a.maxDepth {
		panic(bailout{fmt.Errorf("%w: nesting deeper than %d at line %d", ErrRecursionLimit, a.maxDepth, n.Line())})
	}
	visitors[n.Kind](a, n)
	a.depth--
}

func (a *Analyzer) visitChildren(n *syntax.Node) {
	for _, c := range n.Children {
		a.visit(c)
	}
}

// tokenize is Tokenize with the analyzer's depth cap; exceeding it aborts
// the analysis.
func (a *Analyzer) tokenize(n *syntax.Node) ([]Token, []*syntax.Node, bool) {
	tokens, ops, ok, err := a.tz.tokenize(n)
	if err != nil {
		panic(bailout{fmt.Errorf("%w: expression at line %d", err, n.Line())})
	}
	return tokens, ops, ok
}

// resolve matches a token path against the forest, extending it where the
// path is new. It returns the matched node per token, or nil when the
// first token is not bound to anything visible.
func (a *Analyzer) resolve(tokens []Token) []*UsageNode {
	for _, t := range tokens {
		for _, arg := range t.Args {
			a.resolve(arg)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	ctx := a.scope.current()
	node := a.forest.Lookup(tokens[0].Content, ctx)
	if node == nil {
		if tokens[0].Kind == TokenInstance && IsBuiltin(tokens[0].Content) {
			a.stats.Builtins++
		} else {
			a.stats.Unresolved++
		}
		return nil
	}
	node.count++
	matched := make([]*UsageNode, 1, len(tokens))
	matched[0] = node

	for i := 1; i < len(tokens); i++ {
		t := tokens[i]
		kind := nodeKindFor(t.Kind)
		child := node.Child(kind, t.Content)
		if child == nil {
			child = node.addChild(kind, t.Content)
			alias := PathString(tokens[:i+1])
			a.forest.bind(child, ctx, alias)
			a.deferRetraction(child, alias)
		}
		child.count++
		matched = append(matched, child)
		node = child
	}
	a.stats.Resolved++
	return matched
}

// evaluate resolves an expression that produces a value for a binding and
// returns the node it refers to, or nil when it is not a known path.
func (a *Analyzer) evaluate(n *syntax.Node) *UsageNode {
	n = n.Unwrap()
	if n == nil {
		return nil
	}
	// await f() binds the awaited call's result.
	if n.Kind == syntax.KindAwait && len(n.Children) == 1 {
		return a.evaluate(n.Children[0])
	}
	tokens, ops, ok := a.tokenize(n)
	if !ok {
		a.visit(n)
		return nil
	}
	matched := a.resolve(tokens)
	for _, op := range ops {
		a.visit(op)
	}
	if len(matched) == 0 {
		return nil
	}
	return matched[len(matched)-1]
}

func (a *Analyzer) debugUnknown(n *syntax.Node) {
	category := n.Category()
	a.stats.UnknownConstructs++
	if a.stats.UnknownByCategory == nil {
		a.stats.UnknownByCategory = make(map[string]int)
	}
	a.stats.UnknownByCategory[category]++
	a.logger.Debug("generic visit", "type", n.Type, "category", category, "line", n.Line())
}
