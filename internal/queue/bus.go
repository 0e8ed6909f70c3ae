// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

const (
	StreamName     = "TASKS"
	StreamSubjects = "tasks.>"
	DurableName    = "care-worker"

	// AckWait bounds a single handler run, retries are scheduled through NakWithDelay
	AckWait = 2 * time.Minute
)

var ErrNilBus = errors.New("nil bus")

// Handler processes one message.
// A RetryError naks it with a delay, any other error naks it for immediate redelivery.
type Handler func(ctx context.Context, subject string, data []byte) error

// Bus wraps a NATS JetStream connection for publishing and consuming tasks
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// EnsureStream creates the task stream when it does not exist yet
func (b *Bus) EnsureStream(ctx context.Context) error {
	if b == nil {
		return ErrNilBus
	}

	_, err := b.js.StreamInfo(StreamName, nats.Context(ctx))
	if err == nil {
		return nil
	}

	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", StreamName, err)
	}

	_, err = b.js.AddStream(
		&nats.StreamConfig{
			Name:      StreamName,
			Subjects:  []string{StreamSubjects},
			Retention: nats.WorkQueuePolicy,
			Storage:   nats.FileStorage,
			MaxAge:    7 * 24 * time.Hour,
		},
		nats.Context(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}

	b.logger.Infof("created stream %s", StreamName)

	return nil
}

// Publish encodes v as JSON and publishes it to subject, it returns once the stream acknowledged it
func (b *Bus) Publish(ctx context.Context, subject string, v any) error {
	if b == nil {
		return ErrNilBus
	}

	ctx, span := b.tracer.Start(ctx, "queue.Bus.Publish")
	defer span.End()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message for %s: %w", subject, err)
	}

	if _, err := b.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		b.setAvailability(0)
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	b.setAvailability(1)

	return nil
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// Subscribe creates a durable consumer on subject and invokes fn for each message.
// The subscription is drained when ctx is done.
func (b *Bus) Subscribe(ctx context.Context, subject, durable string, fn Handler) (io.Closer, error) {
	if b == nil {
		return nil, ErrNilBus
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	handler := func(msg *nats.Msg) {
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		handlerCtx, span := b.tracer.Start(handlerCtx, "queue.Bus.Handle")
		defer span.End()

		attempt := 1
		if meta, err := msg.Metadata(); err == nil {
			attempt = int(meta.NumDelivered)
		}

		b.settle(msg, fn(WithAttempt(handlerCtx, attempt), msg.Subject, msg.Data))
	}

	sub, err := b.js.Subscribe(
		subject,
		handler,
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.AckWait(AckWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s := &subscription{sub: sub}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}

// settle acks or naks msg according to the handler result
func (b *Bus) settle(msg *nats.Msg, err error) {
	var retry *RetryError

	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.As(err, &retry):
		b.logger.Infof("redelivering message on %s in %s: %v", msg.Subject, retry.Delay, retry.Err)
		_ = msg.NakWithDelay(retry.Delay)
	default:
		b.logger.Errorf("failed to handle message on %s: %v", msg.Subject, err)
		_ = msg.Nak()
	}
}

// Ping reports whether the connection to the server is up
func (b *Bus) Ping(context.Context) error {
	if b == nil {
		return ErrNilBus
	}

	if !b.conn.IsConnected() {
		return fmt.Errorf("nats connection is %s", b.conn.Status())
	}

	return nil
}

// Close drains the underlying NATS connection
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

func (b *Bus) setAvailability(v float64) {
	if err := b.monitor.SetDependencyAvailability(map[string]string{"component": "nats"}, v); err != nil {
		b.logger.Debugf("failed to record nats availability: %v", err)
	}
}

// NewBus connects to the NATS server at url
func NewBus(url string, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface, opts ...nats.Option) (*Bus, error) {
	opts = append([]nats.Option{nats.Name("care-service")}, opts...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open jetstream context: %w", err)
	}

	b := new(Bus)
	b.conn = nc
	b.js = js

	b.tracer = tracer
	b.monitor = monitor
	b.logger = logger

	return b, nil
}
