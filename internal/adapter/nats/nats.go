// Package nats implements the eventbus port over core NATS pub/sub.
//
// Invalidations are fire-and-forget: a peer that misses one still converges
// once the affected entries expire, so no JetStream persistence is used.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Strob0t/Tally/internal/logger"
	"github.com/Strob0t/Tally/internal/port/eventbus"
	"github.com/Strob0t/Tally/internal/resilience"
)

const (
	headerRequestID = "X-Request-ID"
	handlerTimeout  = 5 * time.Second

	// Publishing stops for breakerCooldown after breakerFailures consecutive
	// errors so writes do not keep paying for a dead broker.
	breakerFailures = 5
	breakerCooldown = 30 * time.Second
)

// Bus implements eventbus.Bus using NATS.
type Bus struct {
	nc      *nats.Conn
	subject string
	breaker *resilience.Breaker
}

var _ eventbus.Bus = (*Bus)(nil)

// Connect establishes a connection to NATS. Invalidations travel on
// "<prefix>.invalidate".
func Connect(url, prefix string) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Name("tally"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	subject := prefix + "." + eventbus.SubjectInvalidate
	slog.Info("nats connected", "url", url, "subject", subject)
	return &Bus{
		nc:      nc,
		subject: subject,
		breaker: resilience.NewBreaker("nats", breakerFailures, breakerCooldown),
	}, nil
}

// Subject returns the subject invalidations are published on.
func (b *Bus) Subject() string {
	return b.subject
}

// Publish broadcasts inv to every subscriber, this process included.
func (b *Bus) Publish(ctx context.Context, inv eventbus.Invalidation) error {
	msg, err := encode(ctx, b.subject, inv)
	if err != nil {
		return err
	}
	err = b.breaker.Execute(func() error { return b.nc.PublishMsg(msg) })
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return fmt.Errorf("nats publish %s skipped: %w", b.subject, err)
	case err != nil:
		return fmt.Errorf("nats publish %s: %w", b.subject, err)
	}
	return nil
}

// Subscribe registers a handler for invalidations. Malformed messages are
// logged and dropped.
func (b *Bus) Subscribe(ctx context.Context, handler eventbus.Handler) (func(), error) {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handlerTimeout)
		defer cancel()

		hctx, inv, err := decode(hctx, msg)
		if err != nil {
			slog.Error("invalid invalidation message", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(hctx, inv); err != nil {
			slog.ErrorContext(hctx, "invalidation handler failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", b.subject, err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("nats unsubscribe failed", "error", err)
		}
	}, nil
}

// IsConnected reports whether the underlying connection is up.
func (b *Bus) IsConnected() bool {
	return b.nc.IsConnected()
}

// Close drains pending messages and shuts down the NATS connection.
func (b *Bus) Close() error {
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

func encode(ctx context.Context, subject string, inv eventbus.Invalidation) (*nats.Msg, error) {
	data, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("marshal invalidation: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}
	return msg, nil
}

func decode(ctx context.Context, msg *nats.Msg) (context.Context, eventbus.Invalidation, error) {
	var inv eventbus.Invalidation
	if err := json.Unmarshal(msg.Data, &inv); err != nil {
		return ctx, inv, fmt.Errorf("unmarshal invalidation: %w", err)
	}
	if id := msg.Header.Get(headerRequestID); id != "" {
		ctx = logger.WithRequestID(ctx, id)
	}
	return ctx, inv, nil
}
