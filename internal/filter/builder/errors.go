package builder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNodeNotFound is returned when an operation targets an id that is
	// not in the tree.
	ErrNodeNotFound = errors.New("filter node not found")

	// ErrRootNotRemovable is returned by RemoveGroup for the root group.
	ErrRootNotRemovable = errors.New("root group cannot be removed")

	// ErrEmptyFilter is returned by Apply when the tree has children but
	// none of them compile to a usable filter.
	ErrEmptyFilter = errors.New("invalid or empty filter")

	// ErrUnsupportedNot is matched by *UnsupportedNotError.
	ErrUnsupportedNot = errors.New("conditions cannot be negated")

	ErrUnknownProperty  = errors.New("unknown property")
	ErrUnknownCondition = errors.New("unknown condition")
	ErrInvalidOperator  = errors.New("invalid logical operator")
)

// UnsupportedNotError lists the rules that block Apply because their
// conditions cannot be negated where they sit in the tree.
type UnsupportedNotError struct {
	Conditions []string
}

func (e *UnsupportedNotError) Error() string {
	return fmt.Sprintf("NOT cannot be applied to: %s", strings.Join(e.Conditions, ", "))
}

func (e *UnsupportedNotError) Is(target error) bool {
	return target == ErrUnsupportedNot
}
