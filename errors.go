package ecs

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Error kinds. Every error returned by this package matches exactly one of
// them under errors.Is.
var (
	ErrNotFound           = eris.New("not found")
	ErrInvalidUsage       = eris.New("invalid usage")
	ErrInvalidFormat      = eris.New("invalid format")
	ErrUnsupportedVersion = eris.New("unsupported version")
	ErrDuplicated         = eris.New("duplicated")
	ErrUnknown            = eris.New("unknown error")
)

// Result is the status code reported to hosts.
type Result int

const (
	Success Result = iota
	NotFound
	InvalidFormat
	InvalidUsage
	UnsupportedVersion
	Duplicated
	Unknown
)

func (r Result) String() string {
	switch r {
	case Success:
		return "Success"
	case NotFound:
		return "NotFound"
	case InvalidFormat:
		return "InvalidFormat"
	case InvalidUsage:
		return "InvalidUsage"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case Duplicated:
		return "Duplicated"
	default:
		return "Unknown"
	}
}

// ResultOf classifies err. A nil error is Success; anything unrecognized is
// Unknown.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrInvalidFormat):
		return InvalidFormat
	case errors.Is(err, ErrInvalidUsage):
		return InvalidUsage
	case errors.Is(err, ErrUnsupportedVersion):
		return UnsupportedVersion
	case errors.Is(err, ErrDuplicated):
		return Duplicated
	default:
		return Unknown
	}
}

type LockedSceneError struct{}

func (e LockedSceneError) Error() string {
	return "scene is currently locked"
}

func (e LockedSceneError) Is(target error) bool { return target == ErrInvalidUsage }

type DeadEntityError struct {
	Entity Entity
}

func (e DeadEntityError) Error() string {
	return fmt.Sprintf("entity %d does not exist", e.Entity)
}

func (e DeadEntityError) Is(target error) bool { return target == ErrInvalidUsage }

type EntityRelationError struct {
	Child, Parent Entity
}

func (e EntityRelationError) Error() string {
	return fmt.Sprintf("entity %d cannot be parented to %d: it is the entity or one of its descendants", e.Child, e.Parent)
}

func (e EntityRelationError) Is(target error) bool { return target == ErrInvalidUsage }

type ComponentExistsError struct {
	Entity    Entity
	Component CompID
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component %d already exists on entity %d", e.Component, e.Entity)
}

func (e ComponentExistsError) Is(target error) bool { return target == ErrInvalidUsage }

type ComponentNotFoundError struct {
	Entity    Entity
	Component CompID
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component %d does not exist on entity %d", e.Component, e.Entity)
}

func (e ComponentNotFoundError) Is(target error) bool { return target == ErrNotFound }
