package forest

import (
	"github.com/jward/apiforest/internal/syntax"
)

// Tokenize splits an access-path expression into tokens. It reports false
// for anything that is not a path: literals, operators, comprehensions, or
// a call whose callee is not itself a path.
func Tokenize(n *syntax.Node) ([]Token, bool) {
	tz := tokenizer{maxDepth: syntax.DefaultMaxDepth}
	tokens, _, ok, err := tz.tokenize(n)
	if err != nil {
		return nil, false
	}
	return tokens, ok
}

// OpaqueOperands returns the argument and index subtrees of a path
// expression that are not paths themselves. They still need an ordinary
// visit; path-shaped operands are covered by Token.Args.
func OpaqueOperands(n *syntax.Node) []*syntax.Node {
	tz := tokenizer{maxDepth: syntax.DefaultMaxDepth}
	_, ops, ok, err := tz.tokenize(n)
	if err != nil || !ok {
		return nil
	}
	return ops
}

type tokenizer struct {
	maxDepth int
}

func (tz tokenizer) tokenize(n *syntax.Node) ([]Token, []*syntax.Node, bool, error) {
	var ops []*syntax.Node
	tokens, ok, err := tz.path(n, 0, &ops)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	return tokens, ops, true, nil
}

func (tz tokenizer) path(n *syntax.Node, depth int, ops *[]*syntax.Node) ([]Token, bool, error) {
	if depth > tz.maxDepth {
		return nil, false, ErrRecursionLimit
	}
	n = n.Unwrap()
	if n == nil {
		return nil, false, nil
	}

	switch n.Kind {
	case syntax.KindName:
		return []Token{{Content: n.Text(), Kind: TokenInstance}}, true, nil

	case syntax.KindAttribute:
		attr := n.ChildByField("attribute")
		if attr == nil {
			return nil, false, nil
		}
		base, ok, err := tz.path(n.ChildByField("object"), depth+1, ops)
		if err != nil || !ok {
			return nil, false, err
		}
		return append(base, Token{Content: attr.Text(), Kind: TokenInstance}), true, nil

	case syntax.KindCall:
		base, ok, err := tz.path(n.ChildByField("function"), depth+1, ops)
		if err != nil || !ok {
			return nil, false, err
		}
		tok, err := tz.operands(TokenCall, callArguments(n), depth+1, ops)
		if err != nil {
			return nil, false, err
		}
		return append(base, tok), true, nil

	case syntax.KindSubscript:
		base, ok, err := tz.path(n.ChildByField("value"), depth+1, ops)
		if err != nil || !ok {
			return nil, false, err
		}
		tok, err := tz.operands(TokenSubscript, n.ChildrenByField("subscript"), depth+1, ops)
		if err != nil {
			return nil, false, err
		}
		return append(base, tok), true, nil
	}
	return nil, false, nil
}

// operands builds a call or subscript token. Each operand is rendered as
// its token path when it is one, otherwise as its source text.
func (tz tokenizer) operands(kind TokenKind, nodes []*syntax.Node, depth int, ops *[]*syntax.Node) (Token, error) {
	tok := Token{Kind: kind}
	parts := make([]string, 0, len(nodes))
	for _, arg := range nodes {
		prefix, val := splitArgument(arg)
		if val == nil {
			parts = append(parts, prefix)
			continue
		}
		sub, ok, err := tz.path(val, depth+1, ops)
		if err != nil {
			return Token{}, err
		}
		if ok {
			tok.Args = append(tok.Args, sub)
			parts = append(parts, prefix+PathString(sub))
			continue
		}
		*ops = append(*ops, val)
		parts = append(parts, prefix+val.Text())
	}
	tok.Content = digest(parts)
	return tok, nil
}

// splitArgument separates keyword names and splat markers from the value
// expression of one argument.
func splitArgument(arg *syntax.Node) (string, *syntax.Node) {
	switch arg.Kind {
	case syntax.KindKeywordArgument:
		name := arg.ChildByField("name")
		return name.Text() + "=", arg.ChildByField("value")
	case syntax.KindStarred:
		prefix := "*"
		if arg.Type == "dictionary_splat" {
			prefix = "**"
		}
		if len(arg.Children) == 0 {
			return prefix, nil
		}
		return prefix, arg.Children[0]
	}
	return "", arg
}

func callArguments(call *syntax.Node) []*syntax.Node {
	args := call.ChildByField("arguments")
	if args == nil {
		return nil
	}
	// f(x for x in y) passes a bare generator instead of an argument list.
	if args.Kind != syntax.KindArguments {
		return []*syntax.Node{args}
	}
	return args.Children
}
