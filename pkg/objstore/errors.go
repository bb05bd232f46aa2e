package objstore

import "errors"

// ErrRefConflict is returned by UpdateRef when the observed value no longer
// matches, i.e. another writer raced the compare-and-set. Callers retry from
// a fresh ReadRef.
var ErrRefConflict = errors.New("objstore: reference compare-and-set conflict")

// ErrNotFound is returned when a ref, blob, tree, or commit lookup misses.
var ErrNotFound = errors.New("objstore: object not found")
