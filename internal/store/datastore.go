package store

// NodeWriter is the interface for writing usage forests. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// indexing) implement it.
type NodeWriter interface {
	// Each insert returns the assigned ID.
	InsertUsageNode(n *UsageNode) (int64, error)
	InsertNodeAlias(a *NodeAlias) (int64, error)
}

// Compile-time check: *Store satisfies NodeWriter.
var _ NodeWriter = (*Store)(nil)
