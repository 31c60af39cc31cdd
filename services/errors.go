package services

import "fmt"

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindUpstream
	KindAuth
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream_failure"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Error is the domain error surfaced to the HTTP boundary. Two errors match
// under errors.Is when their codes match, so wrapped sentinels still compare.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

var (
	ErrInvalidKey         = &Error{Kind: KindNotFound, Code: "invalid_key", Message: "invalid key"}
	ErrKeyAlreadyUsed     = &Error{Kind: KindConflict, Code: "key_already_used", Message: "key has already been used"}
	ErrKeyQuotaExceeded   = &Error{Kind: KindConflict, Code: "key_quota_exceeded", Message: "quantity exceeds the remaining key quota"}
	ErrKeyNotFound        = &Error{Kind: KindNotFound, Code: "key_not_found", Message: "key not found"}
	ErrDuplicateKey       = &Error{Kind: KindConflict, Code: "duplicate_key", Message: "key value already exists"}
	ErrKeyInUse           = &Error{Kind: KindConflict, Code: "key_in_use", Message: "key is referenced by orders"}
	ErrServiceNotFound    = &Error{Kind: KindNotFound, Code: "service_not_found", Message: "service not found"}
	ErrServiceInactive    = &Error{Kind: KindNotFound, Code: "service_inactive", Message: "service is inactive"}
	ErrServiceUnavailable = &Error{Kind: KindNotFound, Code: "service_unavailable", Message: "service not available"}
	ErrDuplicateService   = &Error{Kind: KindConflict, Code: "duplicate_service", Message: "a service with this name already exists on the platform"}
	ErrServiceInUse       = &Error{Kind: KindConflict, Code: "service_in_use", Message: "service is referenced by orders, deactivate it instead"}
	ErrOrderNotFound      = &Error{Kind: KindNotFound, Code: "order_not_found", Message: "order not found"}
	ErrInvalidCredentials = &Error{Kind: KindAuth, Code: "invalid_credentials", Message: "invalid credentials"}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: fmt.Sprintf(format, args...)}
}

func Upstream(cause error) *Error {
	return &Error{Kind: KindUpstream, Code: "upstream_failure", Message: cause.Error(), Err: cause}
}
