package forest

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apiforest/internal/syntax"
)

func analyze(t *testing.T, src string, opts ...Option) *Result {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	res, err := Analyze(tree.Root, opts...)
	require.NoError(t, err)
	return res
}

// lookupPath follows instance children from a module root.
func lookupPath(t *testing.T, f *Forest, module string, attrs ...string) *UsageNode {
	t.Helper()
	n := f.Root(module)
	require.NotNil(t, n, "root %s", module)
	for _, a := range attrs {
		next := n.Child(KindInstance, a)
		require.NotNil(t, next, "child %s of %s", a, n.Path())
		n = next
	}
	return n
}

// onlyCall returns the single call child of n.
func onlyCall(t *testing.T, n *UsageNode) *UsageNode {
	t.Helper()
	var calls []*UsageNode
	for _, c := range n.Children() {
		if c.Kind == KindCall {
			calls = append(calls, c)
		}
	}
	require.Len(t, calls, 1, "calls under %s", n.Path())
	return calls[0]
}

func hasAliasAnywhere(f *Forest, ctx Context, alias string) bool {
	found := false
	f.Walk(func(n *UsageNode) bool {
		if n.HasAlias(ctx, alias) {
			found = true
		}
		return !found
	})
	return found
}

// ============================================================================
// Imports
// ============================================================================

func TestAnalyze_ImportAsAndCall(t *testing.T) {
	t.Parallel()
	res := analyze(t, `import numpy as np
x = np.array([1, 2])
`)
	f := res.Forest

	root := lookupPath(t, f, "numpy")
	assert.Equal(t, KindModule, root.Kind)
	assert.Equal(t, 1, root.Count())
	assert.True(t, root.HasAlias(GlobalContext, "np"))

	arr := lookupPath(t, f, "numpy", "array")
	assert.Equal(t, 1, arr.Count())
	assert.True(t, arr.HasAlias(GlobalContext, "np.array"))

	call := onlyCall(t, arr)
	assert.Equal(t, "call", call.ID)
	assert.Equal(t, 1, call.Count())
	assert.True(t, call.HasAlias(GlobalContext, "x"))
	assert.Equal(t, "numpy.array()", call.Path())

	assert.Equal(t, 1, res.Stats.Resolved)
	assert.Equal(t, 1, res.Stats.Unresolved) // the target x
	assert.Equal(t, 3, res.Stats.Nodes)
}

func TestAnalyze_ImportCreatesZeroCountNodes(t *testing.T) {
	t.Parallel()
	f := analyze(t, "import os.path\n").Forest

	root := lookupPath(t, f, "os")
	path := lookupPath(t, f, "os", "path")
	assert.Equal(t, 0, root.Count())
	assert.Equal(t, 0, path.Count())
	assert.True(t, root.HasAlias(GlobalContext, "os"))
	assert.True(t, path.HasAlias(GlobalContext, "os.path"))
}

func TestAnalyze_DottedImportUse(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os.path
os.path.join("a")
`).Forest

	assert.Equal(t, 1, lookupPath(t, f, "os").Count())
	assert.Equal(t, 1, lookupPath(t, f, "os", "path").Count())
	join := lookupPath(t, f, "os", "path", "join")
	assert.Equal(t, 1, onlyCall(t, join).Count())
}

func TestAnalyze_DottedImportAsAliasesTerminalOnly(t *testing.T) {
	t.Parallel()
	f := analyze(t, "import os.path as osp\n").Forest

	assert.Empty(t, lookupPath(t, f, "os").Contexts())
	assert.Equal(t, []string{"osp"}, lookupPath(t, f, "os", "path").Aliases(GlobalContext))
}

func TestAnalyze_FromImport(t *testing.T) {
	t.Parallel()
	f := analyze(t, `from collections import OrderedDict as OD, defaultdict
OD()
defaultdict(list)
`).Forest

	root := lookupPath(t, f, "collections")
	assert.Empty(t, root.Contexts())
	assert.Equal(t, 0, root.Count())

	od := lookupPath(t, f, "collections", "OrderedDict")
	assert.Equal(t, []string{"OD"}, od.Aliases(GlobalContext))
	assert.Equal(t, 1, od.Count())

	dd := lookupPath(t, f, "collections", "defaultdict")
	assert.Equal(t, 1, dd.Count())
	assert.Equal(t, 1, onlyCall(t, dd).Count())
}

func TestAnalyze_ReimportReusesRoot(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import numpy
import numpy as np
`).Forest

	require.Len(t, f.Roots(), 1)
	assert.Equal(t, []string{"np", "numpy"}, f.Root("numpy").Aliases(GlobalContext))
}

func TestAnalyze_SkipsRelativeAndWildcardImports(t *testing.T) {
	t.Parallel()
	res := analyze(t, `from . import sibling
from os import *
from __future__ import annotations
`)
	assert.Equal(t, 3, res.Stats.SkippedImports)
	assert.Empty(t, res.Forest.Roots())
}

func TestAnalyze_UnknownBaseCreatesNothing(t *testing.T) {
	t.Parallel()
	res := analyze(t, "foo.bar()\n")
	assert.Empty(t, res.Forest.Roots())
	assert.Equal(t, 1, res.Stats.Unresolved)
	assert.Equal(t, 0, res.Stats.Resolved)
}

func TestAnalyze_BuiltinsAreNotUnresolved(t *testing.T) {
	t.Parallel()
	res := analyze(t, "print(abs(1))\nfoo()\n")
	assert.Empty(t, res.Forest.Roots())
	assert.Equal(t, 2, res.Stats.Builtins)
	assert.Equal(t, 1, res.Stats.Unresolved)
}

func TestAnalyze_ImportedNameShadowsBuiltin(t *testing.T) {
	t.Parallel()
	res := analyze(t, "from os import open\nopen(1)\n")
	open := lookupPath(t, res.Forest, "os", "open")
	assert.Equal(t, 1, onlyCall(t, open).Count())
	assert.Equal(t, 0, res.Stats.Builtins)
	assert.Equal(t, 0, res.Stats.Unresolved)
}

func TestAnalyze_UnknownConstructsByCategory(t *testing.T) {
	t.Parallel()
	res := analyze(t, "import os\nmatch os.name:\n    case 1:\n        os.getcwd()\n")
	require.Positive(t, res.Stats.UnknownConstructs)
	assert.Positive(t, res.Stats.UnknownByCategory["Control Flow"])

	total := 0
	for _, n := range res.Stats.UnknownByCategory {
		total += n
	}
	assert.Equal(t, res.Stats.UnknownConstructs, total)
	assert.Equal(t, 1, onlyCall(t, lookupPath(t, res.Forest, "os", "getcwd")).Count())
}

func TestAnalyze_ImportInBranchIsRolledBack(t *testing.T) {
	t.Parallel()
	res := analyze(t, `import os
if os.environ:
    import numpy as np
    np.zeros(1)
np.array()
`)
	f := res.Forest

	np := lookupPath(t, f, "numpy")
	assert.Empty(t, np.Contexts(), "np must not outlive the if branch")
	assert.False(t, hasAliasAnywhere(f, GlobalContext, "np"))
	assert.Equal(t, 1, np.Count())
	assert.Nil(t, np.Child(KindInstance, "array"))
	assert.NotNil(t, np.Child(KindInstance, "zeros"))
	assert.Equal(t, 1, res.Stats.Unresolved) // np.array outside the branch
}

func TestAnalyze_ImportInTryIsRolledBack(t *testing.T) {
	t.Parallel()
	f := analyze(t, `try:
    import yaml
    from json import loads as ld
except ImportError:
    pass
yaml.safe_load("x")
ld("{}")
`).Forest

	assert.Nil(t, lookupPath(t, f, "yaml").Child(KindInstance, "safe_load"))
	assert.Equal(t, 0, lookupPath(t, f, "yaml").Count())
	assert.Empty(t, lookupPath(t, f, "json", "loads").Contexts())
	assert.Equal(t, 0, lookupPath(t, f, "json", "loads").Count())
}

func TestAnalyze_FromImportWithoutAliasNameIsSkipped(t *testing.T) {
	t.Parallel()
	tree, err := syntax.Parse(context.Background(), []byte("from os import path as p\n"))
	require.NoError(t, err)

	// Drop the alias the way a partial parse leaves it.
	stmt := tree.Root.Children[0]
	item := stmt.ChildByField("name")
	require.NotNil(t, item)
	require.Equal(t, syntax.KindAliasedImport, item.Kind)
	var kept []*syntax.Node
	for _, c := range item.Children {
		if c.Field != "alias" {
			kept = append(kept, c)
		}
	}
	item.Children = kept

	res, err := Analyze(tree.Root)
	require.NoError(t, err)
	f := res.Forest
	assert.Nil(t, lookupPath(t, f, "os").Child(KindInstance, "path"))
	assert.False(t, hasAliasAnywhere(f, GlobalContext, ""))
}

func TestAnalyze_ImportInFunctionIsScoped(t *testing.T) {
	t.Parallel()
	f := analyze(t, `def f():
    import os
def f():
    import sys
`).Forest

	assert.Equal(t, []Context{"global.f"}, lookupPath(t, f, "os").Contexts())
	assert.Equal(t, []Context{"global.f#2"}, lookupPath(t, f, "sys").Contexts())
}

// ============================================================================
// Counting and matching
// ============================================================================

func TestAnalyze_IdenticalArgumentsCollapse(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import numpy as np
np.array(1)
np.array(1)
np.array(2)
`).Forest

	arr := lookupPath(t, f, "numpy", "array")
	assert.Equal(t, 3, arr.Count())
	children := arr.Children()
	require.Len(t, children, 2)
	assert.Equal(t, 2, children[0].Count())
	assert.Equal(t, 1, children[1].Count())
	assert.NotEqual(t, children[0].Key, children[1].Key)
}

func TestAnalyze_AttributeUsesAcrossScopesShareNode(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
def f():
    os.getcwd()
os.getcwd()
`).Forest

	root := lookupPath(t, f, "os")
	require.Len(t, root.Children(), 1)
	getcwd := lookupPath(t, f, "os", "getcwd")
	assert.Equal(t, 2, getcwd.Count())
	assert.Equal(t, 2, onlyCall(t, getcwd).Count())
}

func TestAnalyze_PathArgumentsAreRecorded(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import numpy as np
print(np.pi)
`).Forest
	assert.Equal(t, 1, lookupPath(t, f, "numpy", "pi").Count())
}

func TestAnalyze_NamesThatAreNotLoads(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import numpy as np
print(np=1)
obj.np
def g(np=None):
    pass
`).Forest
	assert.Equal(t, 0, f.Root("numpy").Count())
}

func TestAnalyze_DecoratorsAndBases(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import abc
import functools
class Base(abc.ABC):
    @functools.cache
    def run(self):
        pass
`).Forest

	assert.Equal(t, 1, lookupPath(t, f, "abc", "ABC").Count())
	assert.Equal(t, 1, lookupPath(t, f, "functools", "cache").Count())
}

// ============================================================================
// Assignment
// ============================================================================

func TestAnalyze_UnconditionalAssignmentPersists(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import requests
s = requests.Session()
s.get("u")
s.get("u")
`).Forest

	session := onlyCall(t, lookupPath(t, f, "requests", "Session"))
	assert.True(t, session.HasAlias(GlobalContext, "s"))
	get := session.Child(KindInstance, "get")
	require.NotNil(t, get)
	assert.Equal(t, 2, get.Count())
	assert.Equal(t, 2, onlyCall(t, get).Count())
}

func TestAnalyze_ReassignmentMovesAlias(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import numpy as np
import pandas as pd
x = np.array(1)
x = pd.DataFrame()
x.head()
`).Forest

	arr := onlyCall(t, lookupPath(t, f, "numpy", "array"))
	df := onlyCall(t, lookupPath(t, f, "pandas", "DataFrame"))

	assert.False(t, arr.HasAlias(GlobalContext, "x"))
	assert.True(t, df.HasAlias(GlobalContext, "x"))
	assert.NotNil(t, df.Child(KindInstance, "head"))
	assert.Nil(t, arr.Child(KindInstance, "head"))
	assert.Equal(t, 2, arr.Count())
}

func TestAnalyze_SelfAssignmentIsNoop(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import numpy as np
x = np.a
x = x
`).Forest

	a := lookupPath(t, f, "numpy", "a")
	assert.True(t, a.HasAlias(GlobalContext, "x"))
	assert.Equal(t, 3, a.Count())
}

func TestAnalyze_TuplePairing(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
a, b = os.path, os.sep
c, d = os.getcwd()
`).Forest

	assert.True(t, lookupPath(t, f, "os", "path").HasAlias(GlobalContext, "a"))
	assert.True(t, lookupPath(t, f, "os", "sep").HasAlias(GlobalContext, "b"))
	cwd := onlyCall(t, lookupPath(t, f, "os", "getcwd"))
	assert.True(t, cwd.HasAlias(GlobalContext, "c"))
	assert.True(t, cwd.HasAlias(GlobalContext, "d"))
}

func TestAnalyze_SingleTargetTupleValueIsUnknown(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
t = os.sep, os.name
`).Forest

	assert.Equal(t, 1, lookupPath(t, f, "os", "sep").Count())
	assert.Equal(t, 1, lookupPath(t, f, "os", "name").Count())
	assert.False(t, hasAliasAnywhere(f, GlobalContext, "t"))
}

func TestAnalyze_ChainedAssignmentEvaluatesOnce(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
a = b = os.sep
`).Forest

	sep := lookupPath(t, f, "os", "sep")
	assert.Equal(t, 1, sep.Count())
	assert.Equal(t, []string{"a", "b", "os.sep"}, sep.Aliases(GlobalContext))
}

func TestAnalyze_AugmentedAssignmentKeepsBinding(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
x = os.sep
x += os.name
`).Forest

	sep := lookupPath(t, f, "os", "sep")
	assert.True(t, sep.HasAlias(GlobalContext, "x"))
	assert.Equal(t, 2, sep.Count())
	assert.Equal(t, 1, lookupPath(t, f, "os", "name").Count())
}

func TestAnalyze_DeleteAndForUnbind(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
p = os.path
del p
p.join("x")
for os in items:
    pass
os.getcwd()
`).Forest

	root := lookupPath(t, f, "os")
	assert.Equal(t, 1, root.Count())
	assert.False(t, root.HasAlias(GlobalContext, "os"))
	assert.Nil(t, root.Child(KindInstance, "getcwd"))
	assert.Nil(t, lookupPath(t, f, "os", "path").Child(KindInstance, "join"))
}

func TestAnalyze_WalrusBindsInEnclosingContext(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import re
if (m := re.match("a", s)):
    m.group(1)
`).Forest

	match := onlyCall(t, lookupPath(t, f, "re", "match"))
	assert.True(t, match.HasAlias(GlobalContext, "m"))
	assert.NotNil(t, match.Child(KindInstance, "group"))
}

func TestAnalyze_WithAs(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import threading
with threading.Lock() as lk:
    lk.acquire()
`).Forest

	lock := onlyCall(t, lookupPath(t, f, "threading", "Lock"))
	assert.True(t, lock.HasAlias(GlobalContext, "lk"))
	assert.NotNil(t, lock.Child(KindInstance, "acquire"))
}

func TestAnalyze_AsyncFormsMatchSync(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import aiohttp
import m
async def main():
    async with aiohttp.ClientSession() as s:
        await s.get("u")
    async for r in m.stream():
        r.json()
`).Forest

	session := onlyCall(t, lookupPath(t, f, "aiohttp", "ClientSession"))
	assert.Equal(t, []Context{"global.main"}, session.Contexts())
	assert.True(t, session.HasAlias("global.main", "s"))
	assert.Equal(t, 1, onlyCall(t, lookupPath(t, f, "aiohttp", "ClientSession")).Count())

	get := session.Child(KindInstance, "get")
	require.NotNil(t, get)
	assert.Equal(t, 1, onlyCall(t, get).Count())

	stream := onlyCall(t, lookupPath(t, f, "m", "stream"))
	assert.Equal(t, 1, stream.Count())
	assert.Nil(t, stream.Child(KindInstance, "json"), "the loop target is not bound to the iterable")
}

// ============================================================================
// Scopes
// ============================================================================

func TestAnalyze_InnermostBindingWins(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
import sys
x = os.sep
def f():
    x = sys.path
    x.append("a")
x.join([])
`).Forest

	sep := lookupPath(t, f, "os", "sep")
	path := lookupPath(t, f, "sys", "path")
	assert.True(t, path.HasAlias("global.f", "x"))
	assert.NotNil(t, path.Child(KindInstance, "append"))
	assert.Nil(t, sep.Child(KindInstance, "append"))
	assert.NotNil(t, sep.Child(KindInstance, "join"))
}

func TestAnalyze_DefinitionShadowsImport(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import json
def load(path):
    data = json.load(open(path))
    return data.keys()
def json():
    pass
`).Forest

	root := lookupPath(t, f, "json")
	load := onlyCall(t, lookupPath(t, f, "json", "load"))
	assert.True(t, load.HasAlias("global.load", "data"))
	assert.NotNil(t, load.Child(KindInstance, "keys"))
	assert.False(t, root.HasAlias(GlobalContext, "json"))
}

func TestAnalyze_LambdaScope(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
g = lambda p: os.path.join(p)
`).Forest

	join := lookupPath(t, f, "os", "path", "join")
	assert.Equal(t, []Context{"global.Lambda2"}, join.Contexts())
}

// ============================================================================
// Branches
// ============================================================================

func TestAnalyze_BranchAliasRolledBack(t *testing.T) {
	t.Parallel()
	res := analyze(t, `import numpy as np
if cond:
    x = np.zeros(3)
    x.sum()
x.mean()
`)
	f := res.Forest

	zeros := lookupPath(t, f, "numpy", "zeros")
	call := onlyCall(t, zeros)
	assert.NotNil(t, call.Child(KindInstance, "sum"))
	assert.Nil(t, call.Child(KindInstance, "mean"))
	assert.Empty(t, call.Contexts())
	assert.Empty(t, zeros.Contexts())
	assert.True(t, f.Root("numpy").HasAlias(GlobalContext, "np"))
	assert.Positive(t, res.Stats.Rollbacks)
}

func TestAnalyze_BranchUnbindRetractsEnclosing(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import numpy as np
x = np.ones(2)
if c:
    x = 5
    x.sum()
x.max()
`).Forest

	ones := onlyCall(t, lookupPath(t, f, "numpy", "ones"))
	assert.NotNil(t, ones.Child(KindInstance, "sum"))
	assert.Nil(t, ones.Child(KindInstance, "max"))
	assert.False(t, ones.HasAlias(GlobalContext, "x"))
}

func TestAnalyze_ElifBranchesAreIndependent(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
if a:
    p = os.path
elif b:
    p.join("x")
`).Forest

	path := lookupPath(t, f, "os", "path")
	assert.Nil(t, path.Child(KindInstance, "join"))
	assert.Empty(t, path.Contexts())
}

func TestAnalyze_ExceptAliasRolledBack(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import requests
try:
    requests.get("u")
except requests.HTTPError as err:
    err.response
err.request
`).Forest

	herr := lookupPath(t, f, "requests", "HTTPError")
	assert.NotNil(t, herr.Child(KindInstance, "response"))
	assert.Nil(t, herr.Child(KindInstance, "request"))
	assert.Empty(t, herr.Contexts())
}

func TestAnalyze_LoopElseIsBranch(t *testing.T) {
	t.Parallel()
	f := analyze(t, `import os
for i in r:
    pass
else:
    p = os.sep
p.x
`).Forest

	sep := lookupPath(t, f, "os", "sep")
	assert.Nil(t, sep.Child(KindInstance, "x"))
	assert.Empty(t, sep.Contexts())
}

// ============================================================================
// Limits and plumbing
// ============================================================================

func TestAnalyze_RecursionLimit(t *testing.T) {
	t.Parallel()
	tree, err := syntax.Parse(context.Background(), []byte("x = f(g(h(i(j(k(1))))))\n"))
	require.NoError(t, err)

	res, err := Analyze(tree.Root, WithMaxDepth(5))
	require.ErrorIs(t, err, ErrRecursionLimit)
	assert.Nil(t, res)

	res, err = Analyze(tree.Root)
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestVisitors_CoverEveryKind(t *testing.T) {
	t.Parallel()
	for k := 0; k < syntax.NumKinds; k++ {
		assert.NotNil(t, visitors[k], "no visitor for %s", syntax.Kind(k))
	}
}

func TestForest_Merge(t *testing.T) {
	t.Parallel()
	a := analyze(t, `import os
os.getcwd()
`).Forest
	b := analyze(t, `import os as o
o.getcwd()
import sys
`).Forest

	a.Merge(b)
	root := lookupPath(t, a, "os")
	assert.Equal(t, 2, root.Count())
	assert.Equal(t, []string{"o", "os"}, root.Aliases(GlobalContext))
	assert.Equal(t, 2, onlyCall(t, lookupPath(t, a, "os", "getcwd")).Count())
	assert.NotNil(t, a.Root("sys"))
}

func TestUsageNode_ObserveRejectsNegative(t *testing.T) {
	t.Parallel()
	f := New()
	n := f.EnsureRoot("os")
	require.NoError(t, n.Observe(3))
	require.ErrorIs(t, n.Observe(-1), ErrNegativeCount)
	assert.Equal(t, 3, n.Count())
}

func TestForest_BindIsExclusivePerContext(t *testing.T) {
	t.Parallel()
	f := New()
	a := f.EnsureRoot("a")
	b := f.EnsureRoot("b")

	f.bind(a, GlobalContext, "x")
	f.bind(a, "global.f", "x")
	f.bind(b, GlobalContext, "x")

	assert.False(t, a.HasAlias(GlobalContext, "x"))
	assert.True(t, a.HasAlias("global.f", "x"))
	assert.True(t, b.HasAlias(GlobalContext, "x"))
	assert.Same(t, b, f.Lookup("x", GlobalContext))
	assert.Same(t, a, f.Lookup("x", "global.f.If3"))

	f.DelAlias(a, "global.f", "x")
	assert.Same(t, b, f.Lookup("x", "global.f"))
	f.DelAlias(b, GlobalContext, "x")
	assert.Nil(t, f.Lookup("x", GlobalContext))
}

func TestForest_Dump(t *testing.T) {
	t.Parallel()
	f := analyze(t, "import numpy as np\n").Forest
	var buf bytes.Buffer
	require.NoError(t, f.Dump(&buf))
	assert.Equal(t, "numpy [module] 0  {global: np}\n", buf.String())
}
