package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports bad or missing input. Fields lists every
// offending field; Messages optionally holds a message per field.
type ValidationError struct {
	Field    string
	Fields   []string
	Messages map[string]string
	Msg      string
	Err      error
}

func (e ValidationError) Error() string {
	switch {
	case e.Msg != "" && e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Field != "":
		return fmt.Sprintf("invalid %s", e.Field)
	case len(e.Fields) > 0:
		return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
	default:
		return "validation error"
	}
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg == "" {
		return "access denied"
	}
	return e.Msg
}

// UpstreamError wraps a failed call to the database or an external
// provider. Msg is safe to show to the user; Err carries the detail for logs.
type UpstreamError struct {
	Msg string
	Err error
}

func (e UpstreamError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "upstream error"
}

func (e UpstreamError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target UpstreamError
	return errors.As(err, &target)
}

type FieldMessage struct {
	Field   string
	Message string
}

// FieldMessages returns one message per offending field of a
// ValidationError, in field order.
func FieldMessages(err error) []FieldMessage {
	var target ValidationError
	if !errors.As(err, &target) {
		return nil
	}
	fields := target.Fields
	if len(fields) == 0 && target.Field != "" {
		fields = []string{target.Field}
	}
	out := make([]FieldMessage, 0, len(fields))
	for _, f := range fields {
		msg := target.Messages[f]
		switch {
		case msg != "":
		case target.Msg != "" && len(fields) == 1:
			msg = target.Msg
		default:
			msg = fmt.Sprintf("%s is required", f)
		}
		out = append(out, FieldMessage{Field: f, Message: msg})
	}
	return out
}

// MissingFields returns the field list of a ValidationError, if any.
func MissingFields(err error) []string {
	var target ValidationError
	if errors.As(err, &target) {
		return target.Fields
	}
	return nil
}
