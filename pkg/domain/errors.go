package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure. Every kind is a caller error except
// ErrorKindExternalService, which reports a failing upstream dependency.
type ErrorKind string

// Error kinds surfaced by the service layer.
const (
	ErrorKindMissingField        ErrorKind = "missing_field"
	ErrorKindInvalidField        ErrorKind = "invalid_field"
	ErrorKindInvalidBreed        ErrorKind = "invalid_breed"
	ErrorKindExternalService     ErrorKind = "external_service"
	ErrorKindCatNotFound         ErrorKind = "cat_not_found"
	ErrorKindCatAlreadyAssigned  ErrorKind = "cat_already_assigned"
	ErrorKindInvalidTargetsShape ErrorKind = "invalid_targets_shape"
	ErrorKindTargetCount         ErrorKind = "target_count"
	ErrorKindMissingCountry      ErrorKind = "missing_country"
	ErrorKindCountryNotFound     ErrorKind = "country_not_found"
	ErrorKindTargetNotFound      ErrorKind = "target_not_found"
	ErrorKindTargetCap           ErrorKind = "target_cap"
	ErrorKindNotesLocked         ErrorKind = "notes_locked"
	ErrorKindMissionLocked       ErrorKind = "mission_locked"
	ErrorKindMissionHasCat       ErrorKind = "mission_has_cat"
)

// Error is a classified domain failure. Two errors match under errors.Is when
// their kinds are equal, so the sentinel values below can be used as targets.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// Sentinel errors for errors.Is checks.
var (
	ErrMissingField        = &Error{Kind: ErrorKindMissingField, Message: "this field is required"}
	ErrInvalidField        = &Error{Kind: ErrorKindInvalidField, Message: "invalid value"}
	ErrInvalidBreed        = &Error{Kind: ErrorKindInvalidBreed, Field: "breed_name", Message: "invalid breed name"}
	ErrExternalService     = &Error{Kind: ErrorKindExternalService, Field: "breed_name", Message: "could not validate breed name at this time"}
	ErrCatNotFound         = &Error{Kind: ErrorKindCatNotFound, Field: "cat", Message: "cat does not exist"}
	ErrCatAlreadyAssigned  = &Error{Kind: ErrorKindCatAlreadyAssigned, Field: "cat", Message: "this cat already has an assigned mission"}
	ErrInvalidTargetsShape = &Error{Kind: ErrorKindInvalidTargetsShape, Field: "targets", Message: "targets must be a list of objects"}
	ErrTargetCount         = &Error{Kind: ErrorKindTargetCount, Field: "targets", Message: "mission must have between 1 and 3 targets"}
	ErrMissingCountry      = &Error{Kind: ErrorKindMissingCountry, Field: "country_name", Message: "each target must have a country_name"}
	ErrCountryNotFound     = &Error{Kind: ErrorKindCountryNotFound, Field: "country", Message: "country does not exist"}
	ErrTargetNotFound      = &Error{Kind: ErrorKindTargetNotFound, Field: "targets", Message: "target does not exist in this mission"}
	ErrTargetCap           = &Error{Kind: ErrorKindTargetCap, Field: "targets", Message: "cannot have more than 3 targets in a mission"}
	ErrNotesLocked         = &Error{Kind: ErrorKindNotesLocked, Field: "notes", Message: "cannot update notes of a completed target or mission"}
	ErrMissionLocked       = &Error{Kind: ErrorKindMissionLocked, Message: "cannot update a completed mission"}
	ErrMissionHasCat       = &Error{Kind: ErrorKindMissionHasCat, Field: "cat", Message: "cannot delete a mission assigned to a cat"}
)

// NewError derives a detailed error from a sentinel, keeping its kind.
func NewError(sentinel *Error, field, format string, args ...any) *Error {
	e := &Error{Kind: sentinel.Kind, Field: sentinel.Field, Message: sentinel.Message}
	if field != "" {
		e.Field = field
	}
	if format != "" {
		e.Message = fmt.Sprintf(format, args...)
	}
	return e
}

// WrapError attaches a cause to a sentinel kind.
func WrapError(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Field: sentinel.Field, Message: sentinel.Message, Err: cause}
}

// KindOf extracts the error kind, if err is a domain error.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// ErrNotFound is returned when a record lookup by id fails.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsNotFound reports whether err is an ErrNotFound, optionally for a given entity.
func IsNotFound(err error, entity EntityType) bool {
	var nf ErrNotFound
	if !errors.As(err, &nf) {
		return false
	}
	return entity == "" || nf.Entity == entity
}
