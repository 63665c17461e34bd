package forest

import (
	"slices"
	"strings"
)

// NodeKind classifies a usage node.
type NodeKind uint8

const (
	KindModule NodeKind = iota
	KindInstance
	KindCall
	KindSubscript
)

func (k NodeKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindCall:
		return "call"
	case KindSubscript:
		return "subscript"
	}
	return "instance"
}

// ParseNodeKind is the inverse of NodeKind.String.
func ParseNodeKind(s string) (NodeKind, bool) {
	switch s {
	case "module":
		return KindModule, true
	case "instance":
		return KindInstance, true
	case "call":
		return KindCall, true
	case "subscript":
		return KindSubscript, true
	}
	return KindInstance, false
}

func nodeKindFor(t TokenKind) NodeKind {
	switch t {
	case TokenCall:
		return KindCall
	case TokenSubscript:
		return KindSubscript
	}
	return KindInstance
}

// displayID is the ID shown for a node: the name for modules and
// instances, a fixed marker for calls and subscripts.
func displayID(kind NodeKind, key string) string {
	switch kind {
	case KindCall:
		return "call"
	case KindSubscript:
		return "sub"
	}
	return key
}

type childKey struct {
	kind NodeKind
	key  string
}

// UsageNode is one access path in a usage tree. Nodes are owned by their
// Forest and are never removed.
type UsageNode struct {
	ID   string
	Kind NodeKind
	// Key is the name for modules and instances and the argument digest
	// for calls and subscripts.
	Key string

	count    int
	parent   *UsageNode
	children []*UsageNode
	index    map[childKey]*UsageNode

	aliases map[Context]map[string]struct{}
	// refs counts, per alias, how many contexts bind it to this node.
	refs map[string]int
}

func newUsageNode(kind NodeKind, key string, parent *UsageNode) *UsageNode {
	return &UsageNode{
		ID:      displayID(kind, key),
		Kind:    kind,
		Key:     key,
		parent:  parent,
		aliases: make(map[Context]map[string]struct{}),
		refs:    make(map[string]int),
	}
}

// Count is the number of times the path was observed.
func (n *UsageNode) Count() int { return n.count }

// Observe adds times to the node's count.
func (n *UsageNode) Observe(times int) error {
	if times < 0 {
		return ErrNegativeCount
	}
	n.count += times
	return nil
}

// Parent returns nil for module roots.
func (n *UsageNode) Parent() *UsageNode { return n.parent }

// Children returns the node's children in creation order.
func (n *UsageNode) Children() []*UsageNode { return slices.Clone(n.children) }

// Child looks up a direct child by kind and key.
func (n *UsageNode) Child(kind NodeKind, key string) *UsageNode {
	return n.index[childKey{kind, key}]
}

// Root walks parent links up to the module root.
func (n *UsageNode) Root() *UsageNode {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Path renders the node's position from its root, e.g.
// "numpy.random.rand()" or "os.environ[]".
func (n *UsageNode) Path() string {
	var chain []*UsageNode
	for cur := n; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	var b strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		switch c := chain[i]; c.Kind {
		case KindCall:
			b.WriteString("()")
		case KindSubscript:
			b.WriteString("[]")
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(c.ID)
		}
	}
	return b.String()
}

// Aliases returns the sorted aliases bound to the node in ctx.
func (n *UsageNode) Aliases(ctx Context) []string {
	set := n.aliases[ctx]
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// Contexts returns the sorted contexts in which the node has any alias.
func (n *UsageNode) Contexts() []Context {
	out := make([]Context, 0, len(n.aliases))
	for ctx := range n.aliases {
		out = append(out, ctx)
	}
	slices.Sort(out)
	return out
}

// HasAlias reports whether alias is bound to the node in exactly ctx.
func (n *UsageNode) HasAlias(ctx Context, alias string) bool {
	_, ok := n.aliases[ctx][alias]
	return ok
}

// visibleDepth returns the segment depth of the innermost context that
// encloses ctx and binds alias to the node.
func (n *UsageNode) visibleDepth(alias string, ctx Context) (int, bool) {
	best, found := -1, false
	for c, set := range n.aliases {
		if _, ok := set[alias]; !ok || !c.Encloses(ctx) {
			continue
		}
		if d := c.Depth(); d > best {
			best, found = d, true
		}
	}
	return best, found
}

func (n *UsageNode) addChild(kind NodeKind, key string) *UsageNode {
	child := newUsageNode(kind, key, n)
	if n.index == nil {
		n.index = make(map[childKey]*UsageNode)
	}
	n.index[childKey{kind, key}] = child
	n.children = append(n.children, child)
	return child
}
