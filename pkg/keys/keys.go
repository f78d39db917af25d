// Package keys derives the storage addresses used for collections and
// their index counters, and validates the caller-supplied name parts.
package keys

import (
	"errors"
	"strconv"
	"strings"
)

// Separator joins namespace and collection into a set key. Names must not
// contain it; that is what keeps counter keys from colliding with any
// resource set.
const Separator = ":"

// indexSuffix marks the per-collection id counter key.
const indexSuffix = ":_index"

var (
	ErrInvalidName = errors.New("invalid name")
	ErrInvalidID   = errors.New("invalid resource id")
)

// ValidName reports whether s may be used as a namespace or collection
// name: non-empty and free of the key separator.
func ValidName(s string) bool {
	return s != "" && !strings.Contains(s, Separator)
}

// Collection returns the set key for (namespace, collection), e.g.
// "app:todo".
func Collection(namespace, collection string) (string, error) {
	if !ValidName(namespace) || !ValidName(collection) {
		return "", ErrInvalidName
	}
	return namespace + Separator + collection, nil
}

// Index returns the counter key for a collection's id allocator, e.g.
// "app:todo:_index". The suffix contains the separator, so no valid
// collection key can ever equal another collection's index key.
func Index(namespace, collection string) (string, error) {
	k, err := Collection(namespace, collection)
	if err != nil {
		return "", err
	}
	return k + indexSuffix, nil
}

// ParseID parses a path id segment into a positive integer identifier.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
