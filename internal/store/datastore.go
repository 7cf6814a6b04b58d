package store

// DataStore is the interface for index writes. Both Store (direct SQLite)
// and BatchedStore (in-memory buffering for one file) implement it.
type DataStore interface {
	// Inserts; each returns the assigned ID.
	InsertDocument(d *Document) (int64, error)
	InsertFragment(f *Fragment) (int64, error)
	InsertSpread(sp *Spread) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
