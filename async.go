package statefold

import (
	"fmt"
	"reflect"
)

// AsyncKind identifies the variant of an Async value
type AsyncKind int

const (
	// KindUninitialized means the work has not started
	KindUninitialized AsyncKind = iota
	// KindLoading means the work is in flight
	KindLoading
	// KindSuccess means the work completed with a value
	KindSuccess
	// KindFail means the work completed with an error
	KindFail
)

func (k AsyncKind) String() string {
	switch k {
	case KindUninitialized:
		return "uninitialized"
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindFail:
		return "fail"
	default:
		return fmt.Sprintf("asyncKind(%d)", int(k))
	}
}

// Async represents the lifecycle of an asynchronous computation folded
// into state: uninitialized, loading, success(value), or fail(error).
// Loading and Fail may retain the value of a previous Success so a
// refresh can show stale data while new data loads.
type Async[T any] struct {
	kind     AsyncKind
	value    T
	hasValue bool
	err      error
	metadata any
}

// Uninitialized returns the not-yet-started variant
func Uninitialized[T any]() Async[T] {
	return Async[T]{kind: KindUninitialized}
}

// Loading returns the in-flight variant with no retained value
func Loading[T any]() Async[T] {
	return Async[T]{kind: KindLoading}
}

// LoadingRetaining returns the in-flight variant, carrying over the
// value of prev if prev has one
func LoadingRetaining[T any](prev Async[T]) Async[T] {
	a := Async[T]{kind: KindLoading}
	if v, ok := prev.Value(); ok {
		a.value = v
		a.hasValue = true
	}
	return a
}

// Success returns the completed variant carrying value
func Success[T any](value T) Async[T] {
	return Async[T]{kind: KindSuccess, value: value, hasValue: true}
}

// SuccessMeta returns a Success carrying opaque metadata alongside the value
func SuccessMeta[T any](value T, metadata any) Async[T] {
	return Async[T]{kind: KindSuccess, value: value, hasValue: true, metadata: metadata}
}

// Fail returns the failed variant with no retained value
func Fail[T any](err error) Async[T] {
	return Async[T]{kind: KindFail, err: err}
}

// FailRetaining returns the failed variant, carrying over the value of
// prev if prev has one
func FailRetaining[T any](err error, prev Async[T]) Async[T] {
	a := Async[T]{kind: KindFail, err: err}
	if v, ok := prev.Value(); ok {
		a.value = v
		a.hasValue = true
	}
	return a
}

// Kind returns the variant tag
func (a Async[T]) Kind() AsyncKind {
	return a.kind
}

func (a Async[T]) IsUninitialized() bool { return a.kind == KindUninitialized }
func (a Async[T]) IsLoading() bool       { return a.kind == KindLoading }
func (a Async[T]) IsSuccess() bool       { return a.kind == KindSuccess }
func (a Async[T]) IsFail() bool          { return a.kind == KindFail }

// Complete reports whether the work finished, successfully or not
func (a Async[T]) Complete() bool {
	return a.kind == KindSuccess || a.kind == KindFail
}

// Value returns the success value, or the retained value for Loading
// and Fail variants that carry one
func (a Async[T]) Value() (T, bool) {
	if !a.hasValue {
		var zero T
		return zero, false
	}
	return a.value, true
}

// ValueOr returns the success or retained value, or fallback
func (a Async[T]) ValueOr(fallback T) T {
	if v, ok := a.Value(); ok {
		return v
	}
	return fallback
}

// Err returns the error of a Fail variant, nil otherwise
func (a Async[T]) Err() error {
	if a.kind != KindFail {
		return nil
	}
	return a.err
}

// Metadata returns the opaque metadata attached at Success time
func (a Async[T]) Metadata() any {
	return a.metadata
}

// Equal reports structural equality: same variant, equal value and
// retained value, equal error, equal metadata
func (a Async[T]) Equal(other Async[T]) bool {
	if a.kind != other.kind || a.hasValue != other.hasValue {
		return false
	}
	if a.hasValue && !reflect.DeepEqual(a.value, other.value) {
		return false
	}
	if (a.err == nil) != (other.err == nil) {
		return false
	}
	if a.err != nil && a.err != other.err && a.err.Error() != other.err.Error() {
		return false
	}
	return reflect.DeepEqual(a.metadata, other.metadata)
}

func (a Async[T]) String() string {
	switch a.kind {
	case KindSuccess:
		return fmt.Sprintf("Success(%v)", a.value)
	case KindFail:
		if a.hasValue {
			return fmt.Sprintf("Fail(%v, retained=%v)", a.err, a.value)
		}
		return fmt.Sprintf("Fail(%v)", a.err)
	case KindLoading:
		if a.hasValue {
			return fmt.Sprintf("Loading(retained=%v)", a.value)
		}
		return "Loading"
	default:
		return "Uninitialized"
	}
}
