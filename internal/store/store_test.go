package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/apiforest/internal/forest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{Path: path, Language: "python", Hash: "abc123", LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

// sampleForest builds:
//
//	numpy (0) {global: np}
//	  array (3)
//	    call (2) {global.f: x}
func sampleForest(t *testing.T) *forest.Forest {
	t.Helper()
	f := forest.New()
	root := f.EnsureRoot("numpy")
	f.AddAlias(root, forest.GlobalContext, "np")
	arr := f.EnsureChild(root, forest.KindInstance, "array")
	require.NoError(t, arr.Observe(3))
	call := f.EnsureChild(arr, forest.KindCall, "0123abcd4567")
	require.NoError(t, call.Observe(2))
	f.AddAlias(call, "global.f", "x")
	return f
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "usage_nodes", "node_aliases", "runs", "metadata"} {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())

	v, err := s.GetMetadata("schema_version")
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestMetadata_Roundtrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("k", "one"))
	require.NoError(t, s.SetMetadata("k", "two"))
	v, err = s.GetMetadata("k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestQueryRows_ReadOnly(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.SetMetadata("k", "v"))

	cols, rows, err := s.QueryRows(context.Background(), "SELECT key, value FROM metadata WHERE key = ?", "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"key", "value"}, cols)
	require.Len(t, rows, 1)

	_, _, err = s.QueryRows(context.Background(), "WITH x AS (SELECT 1) DELETE FROM metadata")
	require.Error(t, err)
	_, _, err = s.QueryRows(context.Background(), "DELETE FROM metadata")
	require.Error(t, err)

	v, err := s.GetMetadata("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	// Connections used for reads must accept writes again afterwards.
	for i := 0; i < 4; i++ {
		require.NoError(t, s.SetMetadata("k", "w"))
	}
}

// =============================================================================
// Files
// =============================================================================

func TestFiles_InsertAndLookup(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/src/app.py")

	got, err := s.FileByPath("/src/app.py")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "python", got.Language)
	assert.Equal(t, "abc123", got.Hash)
	assert.Equal(t, StatusPending, got.Status)

	missing, err := s.FileByPath("/nope.py")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFiles_UpdateResultAndFilterByStatus(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ok := insertTestFile(t, s, "/a.py")
	bad := insertTestFile(t, s, "/b.py")

	require.NoError(t, s.UpdateFileResult(ok.ID, StatusIndexed, "", FileStats{Resolved: 4, Unresolved: 1, Rollbacks: 2}))
	require.NoError(t, s.UpdateFileResult(bad.ID, StatusFailed, "recursion limit exceeded", FileStats{}))

	indexed, err := s.FilesByStatus(StatusIndexed)
	require.NoError(t, err)
	require.Len(t, indexed, 1)
	assert.Equal(t, "/a.py", indexed[0].Path)
	assert.Equal(t, FileStats{Resolved: 4, Unresolved: 1, Rollbacks: 2}, indexed[0].Stats)

	failed, err := s.FilesByStatus(StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "recursion limit exceeded", failed[0].Error)

	all, err := s.Files()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFiles_PruneMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	keep := insertTestFile(t, s, "/keep.py")
	gone := insertTestFile(t, s, "/gone.py")
	require.NoError(t, WriteForest(s, gone.ID, sampleForest(t)))

	ids, err := s.FilesNotIn("/other", []string{"/keep.py"})
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.FilesNotIn("", []string{"/keep.py"})
	require.NoError(t, err)
	assert.Equal(t, []int64{gone.ID}, ids)

	require.NoError(t, s.DeleteFiles(ids))
	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, keep.ID, files[0].ID)

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM usage_nodes").Scan(&n))
	assert.Zero(t, n)
}

// =============================================================================
// Forests
// =============================================================================

func TestWriteForest_LoadRoundtrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	file := insertTestFile(t, s, "/a.py")
	require.NoError(t, WriteForest(s, file.ID, sampleForest(t)))

	f, err := s.LoadForest(file.ID)
	require.NoError(t, err)

	root := f.Root("numpy")
	require.NotNil(t, root)
	assert.Equal(t, []string{"np"}, root.Aliases(forest.GlobalContext))

	arr := root.Child(forest.KindInstance, "array")
	require.NotNil(t, arr)
	assert.Equal(t, 3, arr.Count())

	call := arr.Child(forest.KindCall, "0123abcd4567")
	require.NotNil(t, call)
	assert.Equal(t, 2, call.Count())
	assert.Equal(t, []forest.Context{"global.f"}, call.Contexts())
	assert.Equal(t, "numpy.array()", call.Path())
}

func TestWriteForest_Rows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	file := insertTestFile(t, s, "/a.py")
	require.NoError(t, WriteForest(s, file.ID, sampleForest(t)))

	nodes, err := s.UsageNodesByFile(file.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Nil(t, nodes[0].ParentID)
	assert.Equal(t, "module", nodes[0].Kind)
	require.NotNil(t, nodes[2].ParentID)
	assert.Equal(t, nodes[1].ID, *nodes[2].ParentID)
	assert.Equal(t, "call", nodes[2].Name)
	assert.Equal(t, "numpy", nodes[2].Module)

	children, err := s.NodeChildren(nodes[0].ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "array", children[0].Name)

	aliases, err := s.AliasesForNode(nodes[2].ID)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "global.f", aliases[0].Context)
	assert.Equal(t, "x", aliases[0].Alias)
}

func TestDeleteFileData_KeepsFileRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	file := insertTestFile(t, s, "/a.py")
	require.NoError(t, WriteForest(s, file.ID, sampleForest(t)))

	require.NoError(t, s.DeleteFileData(file.ID))

	nodes, err := s.UsageNodesByFile(file.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	aliases, err := s.AliasesByFile(file.ID)
	require.NoError(t, err)
	assert.Empty(t, aliases)

	got, err := s.FileByPath("/a.py")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestModulesAndUsages_AggregateAcrossFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/a.py")
	b := insertTestFile(t, s, "/b.py")
	require.NoError(t, WriteForest(s, a.ID, sampleForest(t)))
	require.NoError(t, WriteForest(s, b.ID, sampleForest(t)))

	other := forest.New()
	os := other.EnsureRoot("os")
	require.NoError(t, os.Observe(1))
	require.NoError(t, WriteForest(s, b.ID, other))

	mods, err := s.Modules()
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "os", mods[0].Module)
	assert.Equal(t, 1, mods[0].Uses)
	assert.Equal(t, "numpy", mods[1].Module)
	assert.Equal(t, 2, mods[1].Paths)
	assert.Equal(t, 2, mods[1].Files)

	usages, err := s.Usages("numpy", 0)
	require.NoError(t, err)
	require.Len(t, usages, 2)
	assert.Equal(t, "numpy.array", usages[0].Path)
	assert.Equal(t, 6, usages[0].Count)
	assert.Equal(t, 2, usages[0].Files)
	assert.Equal(t, "numpy.array()", usages[1].Path)
	assert.Equal(t, 4, usages[1].Count)

	top, err := s.Usages("", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "numpy.array", top[0].Path)
}

func TestLoadMergedForest(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/a.py")
	b := insertTestFile(t, s, "/b.py")
	for _, f := range []*File{a, b} {
		require.NoError(t, WriteForest(s, f.ID, sampleForest(t)))
		require.NoError(t, s.UpdateFileResult(f.ID, StatusIndexed, "", FileStats{}))
	}

	merged, err := s.LoadMergedForest()
	require.NoError(t, err)
	arr := merged.Root("numpy").Child(forest.KindInstance, "array")
	require.NotNil(t, arr)
	assert.Equal(t, 6, arr.Count())
}

// =============================================================================
// Runs
// =============================================================================

func TestRuns_InsertFinishList(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	r := &Run{ID: "run-1", Root: "/src", StartedAt: time.Now().Add(-time.Minute)}
	require.NoError(t, s.InsertRun(r))
	r.FilesIndexed, r.FilesSkipped, r.FilesFailed, r.Nodes = 3, 1, 1, 42
	require.NoError(t, s.FinishRun(r))
	require.NotNil(t, r.FinishedAt)

	require.NoError(t, s.InsertRun(&Run{ID: "run-2", StartedAt: time.Now()}))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, 42, runs[1].Nodes)
	assert.Equal(t, 3, runs[1].FilesIndexed)
	assert.NotNil(t, runs[1].FinishedAt)
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ContentHash([]byte("x")), ContentHash([]byte("x")))
	assert.NotEqual(t, ContentHash([]byte("x")), ContentHash([]byte("y")))
	assert.Len(t, ContentHash(nil), 64)
}
