package errors_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := pkgerrors.NewNotFoundError("url", "https://example.com/x")
		assert.Equal(t, "url https://example.com/x not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		wrapped := fmt.Errorf("fetch: %w", pkgerrors.NewNotFoundError("url", "x"))
		assert.True(t, pkgerrors.IsNotFound(wrapped))
		assert.False(t, pkgerrors.IsTransient(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("title", "", "is required")
		assert.Equal(t, "validation failed for field title: is required", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "empty record"}
		assert.Equal(t, "validation failed: empty record", err.Error())
	})
}

func TestTransientNetworkError(t *testing.T) {
	t.Run("status code", func(t *testing.T) {
		err := &pkgerrors.TransientNetworkError{URL: "https://a.test", StatusCode: 503}
		assert.Contains(t, err.Error(), "503")
		assert.True(t, pkgerrors.IsTransient(err))
	})

	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &pkgerrors.TransientNetworkError{URL: "https://a.test", Err: cause}
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestStoreWriteError(t *testing.T) {
	cause := errors.New("conflict")
	err := pkgerrors.NewStoreWriteError("create", "My Rule", "", cause)
	assert.Equal(t, `store create of "My Rule" failed: conflict`, err.Error())
	assert.True(t, pkgerrors.IsStoreWrite(err))
	assert.ErrorIs(t, err, cause)

	byID := pkgerrors.NewStoreWriteError("archive", "", "page-1", cause)
	assert.Contains(t, byID.Error(), "page-1")
}

func TestSearchUnavailableError(t *testing.T) {
	err := &pkgerrors.SearchUnavailableError{Provider: "duckduckgo", Query: "x", Err: errors.New("timeout")}
	assert.True(t, pkgerrors.IsSearchUnavailable(err))
	assert.Contains(t, err.Error(), "duckduckgo")
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status    int
		notFound  bool
		transient bool
		limited   bool
	}{
		{status: 404, notFound: true},
		{status: 429, transient: true, limited: true},
		{status: 500, transient: true},
		{status: 502, transient: true},
		{status: 400},
		{status: 401},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := pkgerrors.NewAPIError("notion", tt.status, "boom")
			assert.Equal(t, tt.notFound, pkgerrors.IsNotFound(err))
			assert.Equal(t, tt.transient, pkgerrors.IsTransient(err))
			assert.Equal(t, tt.limited, pkgerrors.IsRateLimited(err))
		})
	}
}

func TestWrapHelpers(t *testing.T) {
	t.Run("nil passthrough", func(t *testing.T) {
		assert.NoError(t, pkgerrors.WrapIO("write", "x", nil))
		assert.NoError(t, pkgerrors.WrapResource("list", "records", "", nil))
		assert.NoError(t, pkgerrors.WrapParse("json", "", nil))
		assert.NoError(t, pkgerrors.WrapAPI("telegram", 500, nil))
	})

	t.Run("wraps", func(t *testing.T) {
		base := errors.New("disk full")
		err := pkgerrors.WrapIO("write", "/tmp/backup.json", base)
		assert.ErrorIs(t, err, base)
		assert.Contains(t, err.Error(), "/tmp/backup.json")

		err = pkgerrors.WrapResource("list", "records", "", base)
		assert.Equal(t, "failed to list records: disk full", err.Error())

		err = pkgerrors.WrapAPI("telegram", 503, base)
		assert.True(t, pkgerrors.IsTransient(err))
	})
}
