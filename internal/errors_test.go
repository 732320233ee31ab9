package internal_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
)

func TestIsHTTPError(t *testing.T) {
	t.Parallel()

	t.Run("direct HTTPError", func(t *testing.T) {
		t.Parallel()
		err := internal.ErrNotFound("")
		require.True(t, internal.IsHTTPError(err))
	})

	t.Run("double-wrapped HTTPError", func(t *testing.T) {
		t.Parallel()
		httpErr := internal.ErrBadRequest("bad")
		err := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", httpErr))
		require.True(t, internal.IsHTTPError(err))
		require.Same(t, httpErr, internal.AsHTTPError(err))
	})

	t.Run("unrelated error", func(t *testing.T) {
		t.Parallel()
		require.False(t, internal.IsHTTPError(errors.New("boom")))
		require.False(t, internal.IsHTTPError(nil))
		require.Nil(t, internal.AsHTTPError(nil))
	})
}

func TestHTTPError_Body(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  *internal.HTTPError
		body string
		msg  string
	}{
		{internal.ErrBadRequest("Missing required parameter 'x'"), "400 Bad Request: Missing required parameter 'x'", "Missing required parameter 'x'"},
		{internal.ErrNotFound(""), "404 Not Found", "Not Found"},
		{internal.ErrInternal(""), "500 Internal Server Error", "Internal Server Error"},
		{internal.ErrPayloadTooLarge(""), "413 Request Entity Too Large", "Request Entity Too Large"},
		{internal.ErrTooManyRequests("slow down"), "429 Too Many Requests: slow down", "slow down"},
		{internal.ErrForbidden(""), "403 Forbidden", "Forbidden"},
		{internal.ErrMethodNotAllowed(""), "405 Method Not Allowed", "Method Not Allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.body, tt.err.Body())
			require.Equal(t, tt.msg, tt.err.Error())
			require.Equal(t, http.StatusText(tt.err.StatusCode()), tt.err.StatusText())
		})
	}
}

func TestHTTPError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	err := internal.ErrInternal("", internal.WithError(cause))
	require.ErrorIs(t, err, cause)
}

func TestStreamError(t *testing.T) {
	t.Parallel()

	cause := errors.New("broken pipe")
	err := &internal.StreamError{Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "broken pipe")
}
