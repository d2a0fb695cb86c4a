package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{Validation, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{Authorization, http.StatusForbidden},
		{Authentication, http.StatusUnauthorized},
		{Upstream, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, Status(New(tc.kind, "m")))
	}
}

func TestStatusUnclassifiedError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("plain")))
}

func TestStatusWrappedError(t *testing.T) {
	cause := New(NotFound, "Post not found")
	wrapped := Wrap(Upstream, "outer", cause)

	// errors.As finds the outermost Error.
	assert.Equal(t, http.StatusInternalServerError, Status(wrapped))
	assert.ErrorIs(t, wrapped, cause)
}

func TestUserMessageHidesCause(t *testing.T) {
	err := Wrap(Upstream, "Error uploading media", errors.New("cloudinary: 503 with request id abc"))

	assert.Equal(t, "Error uploading media", UserMessage(err))
	assert.Contains(t, err.Error(), "cloudinary")
}

func TestUserMessageUnclassified(t *testing.T) {
	assert.Equal(t, "Internal server error", UserMessage(errors.New("sql: connection reset")))
}
