package syntax

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// DefaultMaxDepth bounds the nesting depth of converted trees.
const DefaultMaxDepth = 1000

// ErrTooDeep is returned when the parsed tree nests deeper than the
// configured maximum depth.
var ErrTooDeep = errors.New("syntax: nesting exceeds maximum depth")

type parseConfig struct {
	maxDepth int
}

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

// WithMaxDepth caps the nesting depth accepted by Parse. Values below 1 keep
// the default.
func WithMaxDepth(depth int) ParseOption {
	return func(c *parseConfig) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// Parse parses Python source with tree-sitter and converts the result into a
// Tree of named nodes. Comments and anonymous tokens are dropped; an "async"
// keyword sets Async on its parent.
func Parse(ctx context.Context, src []byte, opts ...ParseOption) (*Tree, error) {
	cfg := parseConfig{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(Language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root, err := convert(tree.RootNode(), nil, "", src, 0, cfg.maxDepth)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root, Source: src}, nil
}

func convert(sn *sitter.Node, parent *Node, field string, src []byte, depth, maxDepth int) (*Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrTooDeep, maxDepth)
	}
	n := &Node{
		Kind:   KindOf(sn.Type()),
		Type:   sn.Type(),
		Field:  field,
		Start:  position(sn.StartPoint()),
		End:    position(sn.EndPoint()),
		Parent: parent,
		src:    src,
		start:  sn.StartByte(),
		end:    sn.EndByte(),
	}

	count := int(sn.ChildCount())
	for i := 0; i < count; i++ {
		child := sn.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			if child.Type() == "async" {
				n.Async = true
			}
			continue
		}
		if child.Type() == "comment" {
			continue
		}
		c, err := convert(child, n, sn.FieldNameForChild(i), src, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}

func position(p sitter.Point) Position {
	return Position{Line: int(p.Row) + 1, Col: int(p.Column)}
}
