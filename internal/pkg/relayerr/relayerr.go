package relayerr

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers are expected to react. NotFound and
// InvalidState reflect real-world state and are never retried. Integrity
// means a caller bypassed the delivery-before-persistence contract and is
// always fatal to the operation. Transport wraps a messaging-surface
// failure and carries a transient/permanent hint.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidState
	KindIntegrity
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindIntegrity:
		return "integrity_violation"
	case KindTransport:
		return "transport_failure"
	default:
		return "unknown"
	}
}

const (
	CodeNotFound             = "not_found"
	CodeThreadClosed         = "thread_closed"
	CodeAlreadyClosed        = "already_closed"
	CodeAlreadyDeleted       = "already_deleted"
	CodeNotEditable          = "not_editable"
	CodeEmptyReply           = "empty_reply"
	CodeMissingCounterpartID = "missing_counterpart_id"
	CodeThreadCreateFailed   = "thread_creation_failed"
	CodeTransportFailed      = "transport_failed"
)

type Error struct {
	Kind      Kind
	Code      string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Err: fmt.Errorf("%s not found", what)}
}

func InvalidState(code string) *Error {
	return &Error{Kind: KindInvalidState, Code: code}
}

func Integrity(code string, err error) *Error {
	return &Error{Kind: KindIntegrity, Code: code, Err: err}
}

func Transport(err error, transient bool) *Error {
	return &Error{Kind: KindTransport, Code: CodeTransportFailed, Transient: transient, Err: err}
}

// HasCode reports whether err (or anything it wraps) is a relay error with
// the given code.
func HasCode(err error, code string) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == code
}

// KindOf returns the kind of err, or 0 when err is not a relay error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// CodeOf returns the code of err, or "" when err is not a relay error.
func CodeOf(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
