package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/repository"
)

// ErrNotFound and ErrForbidden are shared with the store layer so a
// repository miss and a service-level miss compare equal.
var (
	ErrNotFound  = repository.ErrNotFound
	ErrForbidden = repository.ErrForbidden
)

// ErrCycleFull marks a CycleFullError for errors.Is checks.
var ErrCycleFull = errors.New("daily cycle full")

// ValidationError reports malformed input.  Handlers answer 400.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// NotFoundError names what was missing and unwraps to ErrNotFound.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return e.What + " not found" }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ForbiddenError carries a user-facing reason and unwraps to ErrForbidden.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }
func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// CycleFullError is returned when a viewer's three daily slots are taken by
// other targets.  RetryAfter is the time left until the next day starts.
type CycleFullError struct {
	DayKey     string
	RetryAfter time.Duration
}

func (e *CycleFullError) Error() string {
	return fmt.Sprintf("Daily cycle limit reached (%d). Revisit today's %d.", model.MaxDailySlots, model.MaxDailySlots)
}

func (e *CycleFullError) Unwrap() error { return ErrCycleFull }

// UpstreamError wraps a failed call to an external dependency.  Handlers
// answer 502.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string { return e.Service + ": " + e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }
