package forest

import (
	"fmt"
	"strings"
)

// GlobalContext is the module-level scope.
const GlobalContext Context = "global"

// Context is a dot-joined chain of scope segments, e.g.
// "global.Loader.load.If12".
type Context string

// Encloses reports whether c is other or one of its ancestors.
func (c Context) Encloses(other Context) bool {
	if c == other {
		return true
	}
	return strings.HasPrefix(string(other), string(c)+".")
}

// Depth is the number of segments in c.
func (c Context) Depth() int {
	if c == "" {
		return 0
	}
	return strings.Count(string(c), ".") + 1
}

// Parent drops the last segment. The global context has no parent.
func (c Context) Parent() Context {
	i := strings.LastIndexByte(string(c), '.')
	if i < 0 {
		return ""
	}
	return c[:i]
}

type segment struct {
	ctx    Context
	branch bool
}

// scopeTracker maintains the stack of open scopes during traversal.
type scopeTracker struct {
	stack []segment
	// used counts segment names per parent so a repeated name gets a
	// "#n" suffix and a context string never denotes two scopes.
	used map[Context]map[string]int
}

func newScopeTracker() *scopeTracker {
	return &scopeTracker{
		stack: []segment{{ctx: GlobalContext}},
		used:  make(map[Context]map[string]int),
	}
}

func (s *scopeTracker) current() Context {
	return s.stack[len(s.stack)-1].ctx
}

func (s *scopeTracker) push(name string, branch bool) Context {
	parent := s.current()
	names := s.used[parent]
	if names == nil {
		names = make(map[string]int)
		s.used[parent] = names
	}
	names[name]++
	if n := names[name]; n > 1 {
		name = fmt.Sprintf("%s#%d", name, n)
	}
	ctx := parent + "." + Context(name)
	s.stack = append(s.stack, segment{ctx: ctx, branch: branch})
	return ctx
}

func (s *scopeTracker) pop() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

func (s *scopeTracker) inBranch() bool {
	return s.stack[len(s.stack)-1].branch
}

// retractionChain lists the current context and its enclosing contexts up
// to and including the nearest non-branch scope.
func (s *scopeTracker) retractionChain() []Context {
	var out []Context
	for i := len(s.stack) - 1; i >= 0; i-- {
		out = append(out, s.stack[i].ctx)
		if !s.stack[i].branch {
			break
		}
	}
	return out
}
