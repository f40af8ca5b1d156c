package statefold

import (
	"fmt"
)

// PurityError reports a reducer that produced different outputs for the
// same input. Field names the first differing top-level field; when no
// single field explains the mismatch, Diff carries a full dump of both
// outputs.
type PurityError struct {
	Owner string
	Field string
	Diff  string
}

func (e *PurityError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("impure reducer on %s: field %q changed between two runs on the same input", e.Owner, e.Field)
	}
	return fmt.Sprintf("impure reducer on %s: outputs differ between two runs on the same input:\n%s", e.Owner, e.Diff)
}

// ImmutabilityError reports a state field declared with a mutable
// container type.
type ImmutabilityError struct {
	Owner string
	Field string
	Type  string
}

func (e *ImmutabilityError) Error() string {
	return fmt.Sprintf("state %s: field %q has mutable container type %s; state must be replaced, never mutated in place", e.Owner, e.Field, e.Type)
}

// RestorabilityError reports an initial state that did not survive a
// codec round trip.
type RestorabilityError struct {
	Owner string
	Diff  string
	Cause error
}

func (e *RestorabilityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("state %s is not restorable: %v", e.Owner, e.Cause)
	}
	return fmt.Sprintf("state %s is not restorable: round trip changed the value:\n%s", e.Owner, e.Diff)
}

func (e *RestorabilityError) Unwrap() error {
	return e.Cause
}

// DuplicateSubscriptionError reports two simultaneously active unique
// subscriptions sharing one id.
type DuplicateSubscriptionError struct {
	ID    string
	Owner string
}

func (e *DuplicateSubscriptionError) Error() string {
	return fmt.Sprintf("duplicate active unique subscription %q on owner %s; cancel the existing subscription first or give this one its own id", e.ID, e.Owner)
}

// SelfSubscriptionError reports an owner subscribing to its own store
// through the cross-owner path.
type SelfSubscriptionError struct {
	Owner string
}

func (e *SelfSubscriptionError) Error() string {
	return fmt.Sprintf("owner %s cannot subscribe to itself through WithSubscriber; subscribe directly instead", e.Owner)
}

// ReducerPanicError wraps a panic recovered from a reducer. It is
// passed to the factory's fatal handler after the owner's scope has
// been cancelled.
type ReducerPanicError struct {
	Owner     string
	Recovered any
	Stack     []byte
}

func (e *ReducerPanicError) Error() string {
	return fmt.Sprintf("reducer panicked on %s: %v", e.Owner, e.Recovered)
}
