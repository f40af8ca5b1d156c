package statefold

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Codec serializes state to a transport form and reconstructs it,
// letting missing fields fall back to the reference default passed to
// Decode. Only the debug restorability check uses it; installing a
// codec matching the host's persistence layer makes the check
// meaningful for process-death save/restore.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, into any) error
}

// JSONCodec is the default codec for the restorability check.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, into any) error {
	return json.Unmarshal(data, into)
}

// purityInterceptor wraps every reducer in debug mode: the reducer
// runs twice against the same pristine input and the outputs must be
// structurally equal. A mismatch means the reducer read or wrote
// something outside its input and panics with a diagnostic naming the
// first differing field.
func purityInterceptor[S any](owner string) func(func(S) S) func(S) S {
	return func(reducer func(S) S) func(S) S {
		return func(s S) S {
			first := reducer(s)
			second := reducer(s)
			if !reflect.DeepEqual(first, second) {
				if field := firstDifferingField(first, second); field != "" {
					panic(&PurityError{Owner: owner, Field: field})
				}
				panic(&PurityError{Owner: owner, Diff: stateDiff(first, second)})
			}
			return first
		}
	}
}

// verifyRestorable round-trips initial through the codec and asserts
// equality, with initial itself as the reference default for fields
// the transport form does not carry.
func verifyRestorable[S any](codec Codec, initial S, owner string) {
	data, err := codec.Encode(initial)
	if err != nil {
		panic(&RestorabilityError{Owner: owner, Cause: err})
	}
	restored := initial
	if err := codec.Decode(data, &restored); err != nil {
		panic(&RestorabilityError{Owner: owner, Cause: err})
	}
	if !reflect.DeepEqual(initial, restored) {
		panic(&RestorabilityError{Owner: owner, Diff: stateDiff(initial, restored)})
	}
}

// verifyImmutable asserts no declared state field is a mutable
// container. State is only ever replaced whole; a map, slice, channel
// or function field invites in-place mutation that the serialized set
// path cannot see.
func verifyImmutable[S any](initial S, owner string) {
	t := reflect.TypeOf(initial)
	if t == nil || t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		switch f.Type.Kind() {
		case reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			panic(&ImmutabilityError{Owner: owner, Field: f.Name, Type: f.Type.String()})
		}
	}
}

// firstDifferingField names the first top-level exported field that
// differs between a and b, or "" when the mismatch is elsewhere.
func firstDifferingField[S any](a, b S) string {
	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Kind() != reflect.Struct {
		return ""
	}
	t := va.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		if !reflect.DeepEqual(va.Field(i).Interface(), vb.Field(i).Interface()) {
			return t.Field(i).Name
		}
	}
	return ""
}

// stateDiff renders a readable diff of two states. cmp refuses some
// values (non-nil funcs, for one); fall back to plain dumps rather
// than masking the original violation.
func stateDiff(a, b any) (out string) {
	defer func() {
		if recover() != nil {
			out = fmt.Sprintf("first:  %+v\nsecond: %+v", a, b)
		}
	}()
	return cmp.Diff(a, b, cmp.Exporter(func(reflect.Type) bool { return true }))
}
