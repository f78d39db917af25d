package collection

import (
	"copacabana/pkg/keys"
	"copacabana/pkg/store"
)

// Allocator hands out identifiers for a (namespace, collection) pair from
// a dedicated counter key, independent of the resource set itself. Two
// concurrent calls never return the same value; the counter never
// decreases. An id allocated for an insert that later fails is skipped
// forever; re-issuing it under retries would break uniqueness.
type Allocator struct{}

// Next returns the next unique id for (namespace, collection).
func (Allocator) Next(namespace, collection string) (int64, error) {
	k, err := keys.Index(namespace, collection)
	if err != nil {
		return 0, ErrInvalidName
	}
	return store.Incr(k)
}
