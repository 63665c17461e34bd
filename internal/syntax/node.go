package syntax

// Position is a 1-based line and 0-based column in the source.
type Position struct {
	Line int
	Col  int
}

// Node is one named node of a parsed Python module. Children are owned by
// their parent; Parent is a back-reference only.
type Node struct {
	Kind     Kind
	Type     string // tree-sitter grammar type
	Field    string // field name under the parent, if any
	Async    bool   // async def / async for / async with
	Start    Position
	End      Position
	Parent   *Node
	Children []*Node

	src        []byte
	start, end uint32
}

// Tree is a converted syntax tree together with the source it was parsed from.
type Tree struct {
	Root   *Node
	Source []byte
}

// Text returns the source text spanned by the node.
func (n *Node) Text() string {
	if n == nil || int(n.end) > len(n.src) || n.start > n.end {
		return ""
	}
	return string(n.src[n.start:n.end])
}

// Line returns the 1-based line the node starts on.
func (n *Node) Line() int {
	return n.Start.Line
}

// ChildByField returns the first child stored under the given field name.
func (n *Node) ChildByField(field string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// ChildrenByField returns every child stored under the given field name.
func (n *Node) ChildrenByField(field string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Field == field {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenOfKind returns the direct children of kind k.
func (n *Node) ChildrenOfKind(k Kind) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Category returns the report category of the node's grammar type.
func (n *Node) Category() string {
	if n.Kind == KindError {
		return "Other"
	}
	return CategoryOf(n.Type)
}

// Unwrap strips parenthesized expressions and as-pattern targets that wrap a
// single child.
func (n *Node) Unwrap() *Node {
	for n != nil && (n.Kind == KindParenthesized || n.Kind == KindAsTarget) && len(n.Children) == 1 {
		n = n.Children[0]
	}
	return n
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}
