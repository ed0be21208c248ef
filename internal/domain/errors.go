package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ValidationError represents malformed caller input, such as a bad type
// name or a duplicate collection key. Never retried.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return "validation failed"
	}
	return e.Reason
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}

// UnknownTypeError represents a type name that does not resolve to a
// registered collection. Callers should treat it as a 404-class condition.
type UnknownTypeError struct {
	TypeName string
}

func (e UnknownTypeError) Error() string {
	if e.TypeName == "" {
		return "unknown entity type"
	}
	return fmt.Sprintf("entity type '%s' not found", e.TypeName)
}

func (e UnknownTypeError) Is(target error) bool {
	_, ok := target.(UnknownTypeError)
	if ok {
		return true
	}
	_, ok = target.(*UnknownTypeError)
	return ok
}

var ErrUnknownType = UnknownTypeError{}

// InvalidReferenceError represents an owner id that does not exist in the
// identity source. Raised before any write is committed.
type InvalidReferenceError struct {
	OwnerID string
}

func (e InvalidReferenceError) Error() string {
	if e.OwnerID == "" {
		return "invalid reference"
	}
	return fmt.Sprintf("invalid owner_id: %s does not exist", e.OwnerID)
}

func (e InvalidReferenceError) Is(target error) bool {
	_, ok := target.(InvalidReferenceError)
	if ok {
		return true
	}
	_, ok = target.(*InvalidReferenceError)
	return ok
}

var ErrInvalidReference = InvalidReferenceError{}

// ProtectedTypeError represents an attempted schema edit or deletion of a
// system type.
type ProtectedTypeError struct {
	TypeName string
}

func (e ProtectedTypeError) Error() string {
	if e.TypeName == "" {
		return "entity type is protected"
	}
	return fmt.Sprintf("entity type '%s' is protected", e.TypeName)
}

func (e ProtectedTypeError) Is(target error) bool {
	_, ok := target.(ProtectedTypeError)
	if ok {
		return true
	}
	_, ok = target.(*ProtectedTypeError)
	return ok
}

var ErrProtectedType = ProtectedTypeError{}
