// Package notify pushes job alerts (new arbitrage opportunities, failed
// runs, run summaries) to Telegram and Discord.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Event types accepted by Notify.
const (
	EventArbDetected = "arb_detected"
	EventJobFailed   = "job_failed"
	EventJobSummary  = "job_summary"
)

// sendTimeout bounds a single delivery so a stuck webhook cannot hold up a
// job run.
const sendTimeout = 10 * time.Second

// Sender delivers one message to one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs, e.g. "telegram".
	Name() string
}

// Notifier fans an alert out to every configured Sender. A nil *Notifier is
// valid and drops everything.
type Notifier struct {
	senders []Sender
	// allow is the event whitelist; empty lets every event through.
	allow  []string
	logger *slog.Logger
}

// NewNotifier builds a Notifier. events limits which event types Notify
// forwards; pass nil to forward all of them.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	n := &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			n.allow = append(n.allow, e)
		}
	}
	return n
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify delivers title and message to all senders concurrently when event
// passes the whitelist. Every sender is attempted; failures are joined into
// the returned error.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Enabled() {
		return nil
	}
	if len(n.allow) > 0 && !slices.Contains(n.allow, event) {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}

	errs := make([]error, len(n.senders))
	var g errgroup.Group
	for i, s := range n.senders {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, sendTimeout)
			defer cancel()

			if err := s.Send(sctx, title, message); err != nil {
				n.logger.ErrorContext(ctx, "sender failed",
					slog.String("sender", s.Name()),
					slog.String("event", event),
					slog.String("error", err.Error()),
				)
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return nil
			}
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("event", event),
			)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify %s: %w", event, err)
	}
	return nil
}
