package store

import "reflect"

// defaultEqual compares comparable values with == (so pointers compare by
// identity) and falls back to reflect.DeepEqual for maps, slices and structs
// holding them.
func defaultEqual(a, b any) (eq bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	// Interface-typed fields can still hold uncomparable values.
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}
