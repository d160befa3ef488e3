package progress

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRequiredField            = errors.New("required field missing")
	ErrInvalidDate              = errors.New("invalid date")
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrOrderNotInProgress       = errors.New("order is not in progress")
	ErrProgressLocked           = errors.New("order progress is locked")
	ErrStageNotFound            = errors.New("progress stage not found")
	ErrOrderItemSizeNotFound    = errors.New("order item size not found")
	ErrProgressItemNotFound     = errors.New("progress item not found")
	ErrProgressDetailNotFound   = errors.New("progress detail not found")
	ErrQuantityExceedsRemaining = errors.New("quantity exceeds remaining amount")
	ErrDeadlineInPast           = errors.New("deadline is in the past")
	ErrDeadlineAfterOrder       = errors.New("deadline is after the order deadline")
	ErrConfirmationRequired     = errors.New("deletion must be confirmed")
)

// FieldError ties one failed rule to the form field it belongs to.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// ValidationError collects every FieldError found for one mutation. It is
// returned before any network call is made.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes each field's sentinel so errors.Is works on the aggregate.
func (e *ValidationError) Unwrap() []error {
	out := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f)
	}
	return out
}

// FieldMap renders the errors as field → message for inline form display.
func (e *ValidationError) FieldMap() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, seen := out[f.Field]; !seen {
			out[f.Field] = f.Message
		}
	}
	return out
}

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type validator struct {
	fields []FieldError
}

func (v *validator) add(field string, err error, format string, args ...interface{}) {
	v.fields = append(v.fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...), Err: err})
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	sort.SliceStable(v.fields, func(i, j int) bool {
		return v.fields[i].Field < v.fields[j].Field
	})
	return &ValidationError{Fields: v.fields}
}
