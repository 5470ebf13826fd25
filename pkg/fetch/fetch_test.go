package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
)

type countingSleeper struct {
	delays []time.Duration
}

func (s *countingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newServer(t *testing.T, handler func(n int32, w http.ResponseWriter)) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		handler(n, w)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchSuccess(t *testing.T) {
	srv, hits := newServer(t, func(_ int32, w http.ResponseWriter) {
		_, _ = w.Write([]byte("rules body"))
	})
	s := &countingSleeper{}
	res := New(WithSleeper(s)).Fetch(context.Background(), srv.URL)

	require.True(t, res.OK())
	assert.Equal(t, "rules body", res.Text)
	assert.Equal(t, 1, res.Attempts)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
	assert.Empty(t, s.delays)
}

func TestFetchNotFoundIsTerminal(t *testing.T) {
	srv, hits := newServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusNotFound)
	})
	s := &countingSleeper{}
	res := New(WithSleeper(s)).Fetch(context.Background(), srv.URL)

	assert.Equal(t, NotFound, res.Kind)
	assert.False(t, res.OK())
	assert.Equal(t, 1, res.Attempts)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
	assert.True(t, errors.IsNotFound(res.Err))
	assert.Empty(t, s.delays)
}

func TestFetchEmptyBodyIsTerminal(t *testing.T) {
	srv, hits := newServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
	})
	res := New(WithSleeper(retry.NoSleep)).Fetch(context.Background(), srv.URL)

	assert.Equal(t, EmptyBody, res.Kind)
	assert.Equal(t, 1, res.Attempts)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	srv, hits := newServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	s := &countingSleeper{}
	res := New(WithSleeper(s)).Fetch(context.Background(), srv.URL)

	assert.Equal(t, TransientFailure, res.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(hits))
	assert.True(t, errors.IsTransient(res.Err))
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, s.delays)
}

func TestFetchRecoversOnRetry(t *testing.T) {
	srv, hits := newServer(t, func(n int32, w http.ResponseWriter) {
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	res := New(WithSleeper(retry.NoSleep)).Fetch(context.Background(), srv.URL)

	require.True(t, res.OK())
	assert.Equal(t, 2, res.Attempts)
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))
}

func TestFetchConnectionErrorUsesFullBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := &countingSleeper{}
	res := New(WithSleeper(s), WithTimeout(time.Second)).Fetch(context.Background(), url)

	assert.Equal(t, TransientFailure, res.Kind)
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, s.delays, 2)
}

func TestFetchCanceledContext(t *testing.T) {
	srv, _ := newServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(WithSleeper(retry.NoSleep)).Fetch(ctx, srv.URL)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, res.Attempts)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
