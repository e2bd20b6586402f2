// internal/apperror/errors_test.go
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIs(t *testing.T) {
	err := NewNotFound("GetTask", "task")
	wrapped := fmt.Errorf("loading board: %w", err)

	assert.True(t, errors.Is(wrapped, NotFound))
	assert.False(t, errors.Is(wrapped, Forbidden))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindCascadeFailed, "DeleteProject", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, CascadeFailed))
	assert.Contains(t, err.Error(), "DeleteProject")
	assert.Contains(t, err.Error(), "boom")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindValidation, KindOf(NewValidation("CreateTask", "title", "required")))
}

func TestFieldAndMessage(t *testing.T) {
	err := NewValidation("CreateLabel", "color", "must be #RRGGBB")
	assert.Equal(t, "color", FieldOf(err))
	assert.Equal(t, "must be #RRGGBB", MessageOf(err))
	assert.Equal(t, "internal error", MessageOf(errors.New("secret detail")))
	assert.Equal(t, "conflict", MessageOf(&Error{Kind: KindConflict}))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		kind     Kind
		httpCode int
		grpcCode codes.Code
	}{
		{KindNotFound, http.StatusNotFound, codes.NotFound},
		{KindForbidden, http.StatusForbidden, codes.PermissionDenied},
		{KindValidation, http.StatusBadRequest, codes.InvalidArgument},
		{KindIndexOutOfRange, http.StatusBadRequest, codes.InvalidArgument},
		{KindDuplicateEmail, http.StatusConflict, codes.AlreadyExists},
		{KindConflict, http.StatusConflict, codes.Aborted},
		{KindProjectArchived, http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{KindUnauthenticated, http.StatusUnauthorized, codes.Unauthenticated},
		{KindCascadeFailed, http.StatusInternalServerError, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := &Error{Kind: tt.kind, Message: "x"}
			assert.Equal(t, tt.httpCode, HTTPStatus(err))
			st, ok := status.FromError(err)
			assert.True(t, ok)
			assert.Equal(t, tt.grpcCode, st.Code())
		})
	}
}

func TestPayloadOf(t *testing.T) {
	p := PayloadOf(fmt.Errorf("create: %w", NewValidation("CreateTask", "title", "title is required")))
	assert.Equal(t, Payload{Kind: KindValidation, Message: "title is required", Field: "title"}, p)

	p = PayloadOf(Wrap(KindInternal, "GetProject", errors.New("pq: connection refused")))
	assert.Equal(t, KindInternal, p.Kind)
	assert.NotContains(t, p.Message, "pq")
}
