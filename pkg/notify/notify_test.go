package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
)

func TestTelegramSend(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("123:abc", "42", srv.URL, 0)
	require.NoError(t, tg.Send(context.Background(), Report("Created: 1")))

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Equal(t, "<b>Inspection report</b>\nCreated: 1", got.Text)
}

func TestTelegramFailureIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewTelegram("t", "c", srv.URL, 0).Send(context.Background(), "x")
	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotContains(t, err.Error(), "/bott/")
}

func TestTelegramUnconfiguredSkips(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	tg := NewTelegram("", "42", "http://127.0.0.1:1", 0)
	assert.False(t, tg.Configured())
	assert.NoError(t, tg.Send(ctx, "x"))
	assert.True(t, tl.Contains("Telegram configuration missing"))
}

type fakeSendCloser struct {
	from   string
	to     []string
	body   bytes.Buffer
	closed bool
}

func (f *fakeSendCloser) Send(from string, to []string, msg io.WriterTo) error {
	f.from, f.to = from, to
	_, err := msg.WriteTo(&f.body)
	return err
}

func (f *fakeSendCloser) Close() error {
	f.closed = true
	return nil
}

type fakeDialer struct {
	sc  *fakeSendCloser
	err error
}

func (d *fakeDialer) Dial() (gomail.SendCloser, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.sc, nil
}

func TestEmailSend(t *testing.T) {
	sc := &fakeSendCloser{}
	e := NewEmailWithDialer(&fakeDialer{sc: sc}, EmailConfig{From: "agent@example.com", To: []string{"ops@example.com"}})

	require.NoError(t, e.Send(context.Background(), Alert(errors.New("listing failed"))))
	assert.Equal(t, "agent@example.com", sc.from)
	assert.Equal(t, []string{"ops@example.com"}, sc.to)
	assert.True(t, sc.closed)
	assert.Contains(t, sc.body.String(), "Subject: knowledge-agent: Alert")
	assert.Contains(t, sc.body.String(), "Cycle failed: listing failed")
}

func TestEmailErrors(t *testing.T) {
	e := NewEmailWithDialer(&fakeDialer{}, EmailConfig{})
	assert.True(t, errors.IsValidationError(e.Send(context.Background(), "x")))

	e = NewEmailWithDialer(&fakeDialer{err: errors.New("refused")}, EmailConfig{To: []string{"a@b.c"}})
	assert.True(t, errors.IsTransient(e.Send(context.Background(), "x")))
}

func TestMultiJoinsErrors(t *testing.T) {
	var calls int
	ok := Func(func(context.Context, string) error { calls++; return nil })
	bad := Func(func(context.Context, string) error { calls++; return errors.New("down") })

	err := Multi{ok, nil, bad, ok}.Send(context.Background(), "x")
	assert.Equal(t, 3, calls)
	assert.EqualError(t, err, "down")
	assert.NoError(t, Multi{ok}.Send(context.Background(), "x"))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "<b>Dead link repaired</b>\n<b>A &amp; B</b>\nOld: http://a\nNew: http://b", Healed("A & B", "http://a", "http://b"))
	assert.Equal(t, "<b>Backup failed</b>\ndisk full", BackupFailed(errors.New("disk full")))
	assert.Equal(t, "Source marked Broken\nA & B\nSource: u", StripTags(Broken("A & B", "u")))
}

func TestBestLogsFailure(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	Best(ctx, Func(func(context.Context, string) error { return errors.New("nope") }), "x")
	assert.True(t, tl.Contains("Notification delivery failed"))
	Best(ctx, nil, "x")
}
