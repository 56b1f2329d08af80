package attendance

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected submission.
type Kind string

const (
	KindLocationOutOfRange  Kind = "LOCATION_OUT_OF_RANGE"
	KindLocationUnavailable Kind = "LOCATION_UNAVAILABLE"
	KindMissingNote         Kind = "MISSING_NOTE"
	KindInvalidStatus       Kind = "INVALID_STATUS"
)

var (
	ErrLocationOutOfRange  = errors.New("location out of range")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrMissingNote         = errors.New("note required")
	ErrInvalidStatus       = errors.New("invalid status")
)

var kindErrors = map[Kind]error{
	KindLocationOutOfRange:  ErrLocationOutOfRange,
	KindLocationUnavailable: ErrLocationUnavailable,
	KindMissingNote:         ErrMissingNote,
	KindInvalidStatus:       ErrInvalidStatus,
}

// ResolveError reports why a submission was rejected. No record exists for it.
type ResolveError struct {
	Kind     Kind
	Distance *float64
	Radius   float64
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case KindLocationOutOfRange:
		return fmt.Sprintf("must be within %.0fm of school, currently %.0fm away", e.Radius, *e.Distance)
	case KindLocationUnavailable:
		return fmt.Sprintf("location unavailable, must be within %.0fm of school", e.Radius)
	case KindMissingNote:
		return "a note is required for sick or permission"
	default:
		return "status must be present, sick or permission"
	}
}

// Is lets errors.Is match the sentinel for the kind. An unavailable location
// also matches ErrLocationOutOfRange.
func (e *ResolveError) Is(target error) bool {
	if target == kindErrors[e.Kind] {
		return true
	}
	return e.Kind == KindLocationUnavailable && target == ErrLocationOutOfRange
}

// KindOf returns the rejection kind of err, if it is a ResolveError.
func KindOf(err error) (Kind, bool) {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}
