// Package schederr defines the error taxonomy shared by the parser, the
// scheduling engine and the public timer API.
//
// Callers inspect the kind with errors.Is against the sentinel values:
//
//	if errors.Is(err, schederr.ErrDateOverflow) { ... }
package schederr

import (
	"errors"
	"fmt"
)

// Kind classifies a scheduling error.
type Kind int

const (
	// KindOther wraps a lower-level failure (conversion, lock, channel, lookup).
	KindOther Kind = iota
	// KindBadFormat is a structurally malformed cadence string.
	KindBadFormat
	// KindWeekDay is a weekday outside [0,6].
	KindWeekDay
	// KindDateOverflow is a day of month that does not exist in the resolved month.
	KindDateOverflow
	// KindAllocTicker is a spawn request the pool could not accept.
	KindAllocTicker
)

func (k Kind) String() string {
	switch k {
	case KindBadFormat:
		return "bad_format"
	case KindWeekDay:
		return "week_day"
	case KindDateOverflow:
		return "date_overflow"
	case KindAllocTicker:
		return "alloc_ticker"
	default:
		return "other"
	}
}

var defaultMsg = map[Kind]string{
	KindBadFormat:    "bad date format",
	KindWeekDay:      "bad week day",
	KindDateOverflow: "date overflow",
	KindAllocTicker:  "bad alloc ticker",
}

// Error is the concrete error type returned by this module.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = defaultMsg[e.Kind]
	}
	if e.Err != nil {
		if msg == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if msg == "" {
		return e.Kind.String()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

var (
	ErrBadFormat    = &Error{Kind: KindBadFormat}
	ErrWeekDay      = &Error{Kind: KindWeekDay}
	ErrDateOverflow = &Error{Kind: KindDateOverflow}
	ErrAllocTicker  = &Error{Kind: KindAllocTicker}
	ErrOther        = &Error{Kind: KindOther}
)

// New returns an error of the given kind with an optional message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Other wraps err as a KindOther error. It returns nil for a nil err.
func Other(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOther, Err: err}
}

// KindOf reports the kind of err. Errors not produced by this package are KindOther.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}
