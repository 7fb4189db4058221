// Package apperr defines the error taxonomy shared by the account workflow,
// the access-control layer and the HTTP boundary.
//
// Every error carries a Kind. errors.Is against one of the package sentinels
// (ErrNotFound, ErrValidation, ...) matches any error of that kind; errors.Is
// against an error built with a Code matches only that code.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindPermissionDenied
	KindAuthentication
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindPermissionDenied:
		return "permission_denied"
	case KindAuthentication:
		return "authentication"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

// Default messages, matching what API clients of the previous service saw.
const (
	MessageNotFound         = "Not found."
	MessagePermissionDenied = "You do not have permission to perform this action."
	MessageNotAuthenticated = "Authentication credentials were not provided."
)

var (
	ErrNotFound         = &Error{Kind: KindNotFound, Message: MessageNotFound}
	ErrValidation       = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied, Message: MessagePermissionDenied}
	ErrAuthentication   = &Error{Kind: KindAuthentication, Message: MessageNotAuthenticated}
	ErrConfiguration    = &Error{Kind: KindConfiguration, Message: "improperly configured"}
)

// Error is an application error with a kind, an optional machine-readable
// code and optional per-field messages.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
		}
		msg = strings.Join(parts, ", ")
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind and, when target
// has a code, the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithCode returns a copy of e carrying code.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// Messages returns the non-field messages of the error.
func (e *Error) Messages() []string {
	if e.Message == "" {
		return nil
	}
	return []string{e.Message}
}

func NotFound(message string) *Error {
	if message == "" {
		message = MessageNotFound
	}
	return &Error{Kind: KindNotFound, Message: message}
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// ValidationFields builds a validation error keyed by input field.
func ValidationFields(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Fields: fields}
}

func PermissionDenied() *Error {
	return &Error{Kind: KindPermissionDenied, Message: MessagePermissionDenied}
}

func Authentication(code, message string) *Error {
	if message == "" {
		message = MessageNotAuthenticated
	}
	return &Error{Kind: KindAuthentication, Code: code, Message: message}
}

func Configuration(message string, err error) *Error {
	return &Error{Kind: KindConfiguration, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
