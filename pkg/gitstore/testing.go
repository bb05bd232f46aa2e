package gitstore

// NewTestStore creates a bare repository under dir and returns a Store
// backed by it, for use from table-driven tests that need a real
// libgit2-backed objstore.Store rather than pkg/memstore's pure-Go stand-in.
func NewTestStore(dir string) (*Store, error) {
	return Init(dir)
}
