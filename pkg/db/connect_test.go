package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), Config{URL: "://not a url"})
	require.ErrorIs(t, err, ErrFailedToParseDBConfig)
}

func TestHealthcheck_NilPool(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Healthcheck(nil)(context.Background()), ErrHealthcheckFailed)
}
