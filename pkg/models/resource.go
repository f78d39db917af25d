package models

import (
	"encoding/json"
	"errors"
)

// IDField is the single system-assigned attribute of a resource.
const IDField = "id"

var ErrNotObject = errors.New("resource is not a JSON object")

// Resource is a caller-defined JSON object. The store owns the serialized
// form at rest; callers and the broadcaster always receive their own copy.
type Resource map[string]any

// ParseResource decodes b into a Resource. Anything other than a JSON
// object (arrays, scalars, null) is rejected.
func ParseResource(b []byte) (Resource, error) {
	var r Resource
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, ErrNotObject
	}
	if r == nil {
		return nil, ErrNotObject
	}
	return r, nil
}

// Valid reports whether the resource is a non-empty object. The empty
// check is defined as zero top-level keys.
func (r Resource) Valid() bool {
	return len(r) > 0
}

// ID returns the resource's id field, coercing the numeric forms JSON
// decoding can produce. Zero means absent or malformed.
func (r Resource) ID() int64 {
	switch v := r[IDField].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	return 0
}

// SetID forces the system-assigned id, overwriting any caller-supplied
// value.
func (r Resource) SetID(id int64) {
	r[IDField] = id
}
