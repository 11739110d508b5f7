package domain

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindConfig         Kind = "ConfigError"
	KindIO             Kind = "IoError"
	KindNetwork        Kind = "NetworkError"
	KindProtocol       Kind = "ProtocolError"
	KindServerRejected Kind = "ServerRejected"
)

// Error is returned by every pipeline stage. Status and Body are set for
// ServerRejected.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Kind == KindServerRejected {
		msg = fmt.Sprintf("%s: server rejected (%d): %s", e.Op, e.Status, e.Body)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	}
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap returns nil when err is nil. An *Error already in the chain keeps its kind.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Rejected builds a ServerRejected error.
func Rejected(op string, status int, body string) error {
	return &Error{Kind: KindServerRejected, Op: op, Status: status, Body: body}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
