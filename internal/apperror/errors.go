// internal/apperror/errors.go
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies a board error.
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindValidation      Kind = "VALIDATION"
	KindDuplicateEmail  Kind = "DUPLICATE_EMAIL"
	KindOwnerRemoval    Kind = "OWNER_REMOVAL"
	KindProjectArchived Kind = "PROJECT_ARCHIVED"
	KindNotInList       Kind = "NOT_IN_LIST"
	KindIndexOutOfRange Kind = "INDEX_OUT_OF_RANGE"
	KindConflict        Kind = "CONFLICT"
	KindCascadeFailed   Kind = "CASCADE_FAILED"
	KindInternal        Kind = "INTERNAL"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
)

// Error provides detailed error information
type Error struct {
	Kind    Kind   // Error classification
	Op      string // Operation that failed
	Field   string // Field path for validation errors
	Message string // Human readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	parts = append(parts, string(e.Kind))
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so errors.Is(err, apperror.NotFound)
// works for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	NotFound        = &Error{Kind: KindNotFound}
	Forbidden       = &Error{Kind: KindForbidden}
	Validation      = &Error{Kind: KindValidation}
	DuplicateEmail  = &Error{Kind: KindDuplicateEmail}
	OwnerRemoval    = &Error{Kind: KindOwnerRemoval}
	ProjectArchived = &Error{Kind: KindProjectArchived}
	NotInList       = &Error{Kind: KindNotInList}
	IndexOutOfRange = &Error{Kind: KindIndexOutOfRange}
	Conflict        = &Error{Kind: KindConflict}
	CascadeFailed   = &Error{Kind: KindCascadeFailed}
	Internal        = &Error{Kind: KindInternal}
	Unauthenticated = &Error{Kind: KindUnauthenticated}
)

// New creates an error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewNotFound reports a missing entity.
func NewNotFound(op, entity string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: entity + " not found"}
}

// NewForbidden reports an authorization failure.
func NewForbidden(op, reason string) *Error {
	return &Error{Kind: KindForbidden, Op: op, Message: reason}
}

// NewValidation reports an invalid field.
func NewValidation(op, field, reason string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Message: reason}
}

// KindOf returns the Kind of err, INTERNAL for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FieldOf returns the field path carried by a validation error.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// MessageOf returns a caller-safe message. Foreign errors are hidden.
func MessageOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Kind == KindInternal || e.Err == nil {
		return strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	return e.Err.Error()
}

// GRPCStatus maps the error onto a gRPC status.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(grpcCode(e.Kind), MessageOf(e))
}

func grpcCode(k Kind) codes.Code {
	switch k {
	case KindNotFound:
		return codes.NotFound
	case KindForbidden:
		return codes.PermissionDenied
	case KindValidation, KindNotInList, KindIndexOutOfRange:
		return codes.InvalidArgument
	case KindDuplicateEmail:
		return codes.AlreadyExists
	case KindOwnerRemoval, KindProjectArchived:
		return codes.FailedPrecondition
	case KindConflict:
		return codes.Aborted
	case KindUnauthenticated:
		return codes.Unauthenticated
	default:
		return codes.Internal
	}
}

// HTTPStatus maps a kind onto an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation, KindNotInList, KindIndexOutOfRange:
		return http.StatusBadRequest
	case KindDuplicateEmail, KindConflict:
		return http.StatusConflict
	case KindOwnerRemoval, KindProjectArchived:
		return http.StatusUnprocessableEntity
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Payload is the wire shape of an error.
type Payload struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// PayloadOf renders err for a client.
func PayloadOf(err error) Payload {
	return Payload{Kind: KindOf(err), Message: MessageOf(err), Field: FieldOf(err)}
}
