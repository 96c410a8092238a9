package jsonmap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParallelListMapping indicates two sibling segments at the same
	// object level both projected to lists.
	ErrParallelListMapping = errors.New("jsonmap: parallel list mapping")
	// ErrExpectedArrayOrObject indicates an array element projected to a scalar.
	ErrExpectedArrayOrObject = errors.New("jsonmap: expected array or object")
	// ErrMapInternalReturnedInvalidData indicates a nested projection returned
	// a shape other than object, array or nothing. It is a defect.
	ErrMapInternalReturnedInvalidData = errors.New("jsonmap: internal projection returned invalid data")
	// ErrInvalidInput indicates the document holds a scalar where the rules
	// still expect to descend.
	ErrInvalidInput = errors.New("jsonmap: invalid input")
	// ErrEmpty indicates the projection produced no value at all.
	ErrEmpty = errors.New("jsonmap: empty mapping")

	// ErrMalformedSpec indicates a rule specification that is not a flat
	// object of string values.
	ErrMalformedSpec = errors.New("jsonmap: malformed specification")
)

// Kind identifies one of the projection failure modes.
type Kind int

const (
	KindParallelListMapping Kind = iota + 1
	KindExpectedArrayOrObject
	KindMapInternalReturnedInvalidData
	KindInvalidInput
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindParallelListMapping:
		return "ParallelListMapping"
	case KindExpectedArrayOrObject:
		return "ExpectedArrayOrObject"
	case KindMapInternalReturnedInvalidData:
		return "MapInternalReturnedInvalidData"
	case KindInvalidInput:
		return "InvalidInput"
	case KindEmpty:
		return "Empty"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindParallelListMapping:
		return ErrParallelListMapping
	case KindExpectedArrayOrObject:
		return ErrExpectedArrayOrObject
	case KindMapInternalReturnedInvalidData:
		return ErrMapInternalReturnedInvalidData
	case KindInvalidInput:
		return ErrInvalidInput
	case KindEmpty:
		return ErrEmpty
	default:
		return nil
	}
}

// ProjectionError reports a failed projection and the document path at
// which it happened. It unwraps to the sentinel for its Kind.
type ProjectionError struct {
	Kind Kind
	Path []string
}

func newError(kind Kind, path []string) *ProjectionError {
	return &ProjectionError{Kind: kind, Path: append([]string(nil), path...)}
}

func (e *ProjectionError) Error() string {
	if len(e.Path) == 0 {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s at %q", e.Kind.sentinel(), strings.Join(e.Path, PathSeparator))
}

func (e *ProjectionError) Unwrap() error { return e.Kind.sentinel() }

// SpecError reports a malformed rule specification.
type SpecError struct {
	Key    string // offending destination, empty when the document itself is wrong
	Reason string
}

func (e *SpecError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s: %s", ErrMalformedSpec, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedSpec, e.Reason)
}

func (e *SpecError) Unwrap() error { return ErrMalformedSpec }
