package element

import (
	"math"
	"reflect"
)

// MaxChangedBits is the default changed-bits mask: every bit changed.
// Changed bits are constrained to 31 bits so they survive int32 storage on
// dependency records.
const MaxChangedBits int32 = 0x7fffffff

// ChangedBitsFunc computes which sub-parts of a context value changed.
// It is only consulted after ObjectIs has already reported a change.
type ChangedBitsFunc func(old, new any) int32

// Context is a named channel through which a value is supplied down a
// subtree and read by descendants without explicit parameter passing.
//
// The descriptor itself is immutable; the current value lives in the engine's
// provider stack, mutated only under strict push/pop discipline. Context
// identity is pointer identity - two cells with the same name are distinct
// channels.
type Context struct {
	// Name labels the cell in logs and traces.
	Name string
	// Default is returned by reads below no provider.
	Default any
	// CalculateChangedBits, if set, refines change detection to a bitmask.
	// Nil means every change sets all bits.
	CalculateChangedBits ChangedBitsFunc
}

// NewContext creates a context cell with a default value.
func NewContext(name string, def any) *Context {
	return &Context{Name: name, Default: def}
}

// ObjectIs reports same-value identity: like ==, except NaN is identical to
// NaN and +0 is not identical to -0. This is the comparison the engine uses
// for "did the value change" decisions, so a NaN-valued context does not
// re-render the world every pass, while a 0 -> -0 transition does propagate.
func ObjectIs(a, b any) bool {
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		if !ok {
			return false
		}
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		if fa == 0 && fb == 0 {
			return math.Signbit(fa) == math.Signbit(fb)
		}
		return fa == fb
	}
	if _, ok := b.(float64); ok {
		return false
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	// Reference types compare by identity, not contents. == on these would
	// panic (maps, slices, funcs).
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return ra.Pointer() == rb.Pointer()
	}
	if !ra.Type().Comparable() {
		return false
	}
	return a == b
}
