package store

import "sync"

// BatchedStore buffers one file's index rows in memory using fake
// (negative) IDs, so that a file can be extracted without holding a
// transaction open and then replaced atomically by CommitBatch.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Path string
	Hash string

	Documents []Document
	Fragments []Fragment
	Spreads   []Spread

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty batch for the file at path whose text
// hashes to hash.
func NewBatchedStore(path, hash string) *BatchedStore {
	return &BatchedStore{
		Path:       path,
		Hash:       hash,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertDocument(d *Document) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Documents = append(b.Documents, *d)
	return fakeID, nil
}

func (b *BatchedStore) InsertFragment(f *Fragment) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	f.ID = fakeID
	b.Fragments = append(b.Fragments, *f)
	return fakeID, nil
}

func (b *BatchedStore) InsertSpread(sp *Spread) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	sp.ID = fakeID
	b.Spreads = append(b.Spreads, *sp)
	return fakeID, nil
}
