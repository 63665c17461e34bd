package store

import "sync"

// BatchedStore buffers a file's forest in memory using fake (negative)
// IDs. It implements NodeWriter so workers can build rows without touching
// SQLite; CommitBatch later writes them in one transaction.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Nodes   []UsageNode
	Aliases []NodeAlias

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies NodeWriter.
var _ NodeWriter = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertUsageNode(n *UsageNode) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	n.ID = fakeID
	b.Nodes = append(b.Nodes, *n)
	return fakeID, nil
}

func (b *BatchedStore) InsertNodeAlias(a *NodeAlias) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	a.ID = fakeID
	b.Aliases = append(b.Aliases, *a)
	return fakeID, nil
}

// Len returns the number of buffered nodes.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Nodes)
}
