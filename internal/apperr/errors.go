// Package apperr holds the typed failures returned by the account core.
// Callers branch on Kind, never on message text.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindIncompleteInput
	KindIncorrectCredentials
	KindAccountDeactivated
	KindAccessRights
	KindStorageFailure
	KindHashingFailure
	KindPasswordReuse
)

// Key is the envelope key a client sees for this kind.
func (k Kind) Key() string {
	switch k {
	case KindIncompleteInput:
		return "INCOMPLETE_DATA"
	case KindIncorrectCredentials:
		return "INCORRECT_DATA"
	case KindAccountDeactivated:
		return "USER_DEACTIVATED"
	case KindAccessRights:
		return "INSUFFICIENT_ACCESS_RIGHTS"
	case KindStorageFailure:
		return "SQL_QUERY_FAILED"
	case KindHashingFailure:
		return "MODULE_OPERATION_FAILED"
	case KindPasswordReuse:
		return "PASSWORD_UNCHANGED"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) defaultMessage() string {
	switch k {
	case KindIncompleteInput:
		return "The submitted data is incomplete."
	case KindIncorrectCredentials:
		return "The submitted data is incorrect."
	case KindAccountDeactivated:
		return "The user account is deactivated."
	case KindAccessRights:
		return "Insufficient access rights."
	case KindStorageFailure:
		return "The executed SQL query failed."
	case KindHashingFailure:
		return "External module operation failed."
	case KindPasswordReuse:
		return "Choose a different password than the current one."
	default:
		return "Unknown error."
	}
}

type Error struct {
	Kind    Kind
	Message string
	Data    map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Key(), e.Message, e.Err)
	}
	return e.Kind.Key() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind. A target with a message only
// matches errors carrying that exact message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func New(kind Kind, message string) *Error {
	if message == "" {
		message = kind.defaultMessage()
	}
	return &Error{Kind: kind, Message: message}
}

func Incomplete(message string) *Error {
	return New(KindIncompleteInput, message)
}

// IncorrectCredentials deliberately carries no detail about which part was wrong.
func IncorrectCredentials() *Error {
	return New(KindIncorrectCredentials, "")
}

// Deactivated is the one failure that discloses account state: the client
// is told when it may try again.
func Deactivated(until time.Time) *Error {
	e := New(KindAccountDeactivated, "The user account is deactivated until "+until.UTC().Format(time.RFC3339)+".")
	e.Data = map[string]any{"deactivatedUntil": until}
	return e
}

func AccessRights() *Error {
	return New(KindAccessRights, "")
}

func Storage(err error) *Error {
	e := New(KindStorageFailure, "")
	e.Err = err
	return e
}

func Hashing(message string, err error) *Error {
	e := New(KindHashingFailure, message)
	e.Err = err
	return e
}

// Wrap keeps typed errors untouched and turns anything else into a storage failure.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Storage(err)
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinels matched with errors.Is.
var (
	ErrUserExists = New(KindIncorrectCredentials, "The username already exists.")
	ErrIncomplete = &Error{Kind: KindIncompleteInput}
	ErrIncorrect  = &Error{Kind: KindIncorrectCredentials}
	ErrAccess     = &Error{Kind: KindAccessRights}
	ErrStorage    = &Error{Kind: KindStorageFailure}
	ErrHashing    = &Error{Kind: KindHashingFailure}
	ErrReuse      = &Error{Kind: KindPasswordReuse}
	ErrDeactivate = &Error{Kind: KindAccountDeactivated}
)
