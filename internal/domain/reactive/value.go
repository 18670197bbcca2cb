package reactive

import (
	"reflect"
	"time"
)

// Value is an immutable snapshot of a stored value and the time it last
// changed. A write replaces the whole record; nothing mutates in place.
type Value struct {
	Data        any       `json:"data"`
	LastUpdated time.Time `json:"last_updated"`
}

// equalValues reports whether two stored values are equal by value.
// Deep equality so slices and maps held by collection adapters compare
// element-wise, not by header identity.
func equalValues(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
