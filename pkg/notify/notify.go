// Package notify delivers short HTML-formatted operator messages. Delivery is
// best effort: callers log a returned error and carry on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
)

// Notifier sends one message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, text string) error

// Send implements Notifier.
func (f Func) Send(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes messages to the context logger. It is the fallback when no
// remote channel is configured.
type Log struct{}

// Send implements Notifier.
func (Log) Send(ctx context.Context, text string) error {
	logging.Ctx(ctx).Info().Str("notification", StripTags(text)).Msg("Notification")
	return nil
}

// Best sends text and logs, rather than returns, any failure.
func Best(ctx context.Context, n Notifier, text string) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, text); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Notification delivery failed")
	}
}

// Healed reports an automatically repaired source link.
func Healed(title, oldURL, newURL string) string {
	return fmt.Sprintf("<b>Dead link repaired</b>\n<b>%s</b>\nOld: %s\nNew: %s",
		html.EscapeString(title), html.EscapeString(oldURL), html.EscapeString(newURL))
}

// Broken reports a record whose source could not be reached or repaired.
func Broken(title, url string) string {
	return fmt.Sprintf("<b>Source marked Broken</b>\n<b>%s</b>\nSource: %s",
		html.EscapeString(title), html.EscapeString(url))
}

// Report is the end-of-cycle summary.
func Report(summary string) string {
	return "<b>Inspection report</b>\n" + html.EscapeString(summary)
}

// Alert reports a failed cycle.
func Alert(err error) string {
	return "<b>Alert</b>\nCycle failed: " + html.EscapeString(err.Error())
}

// BackupFailed reports a failed snapshot.
func BackupFailed(err error) string {
	return "<b>Backup failed</b>\n" + html.EscapeString(err.Error())
}

// StripTags removes the small tag set used in messages, for plain-text channels.
func StripTags(text string) string {
	r := strings.NewReplacer("<b>", "", "</b>", "", "<i>", "", "</i>", "", "<code>", "", "</code>", "")
	return html.UnescapeString(r.Replace(text))
}
