// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/stox-gateway/internal/config"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus is closed")

// Publisher is what the upload path and the CDN retrier depend on.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Bus publishes JSON events on prefixed topics.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	prefix     string

	mu     sync.RWMutex
	closed bool
}

// New creates a NATS-backed bus when cfg.NATSURL is set and an in-process
// bus otherwise.
func New(cfg config.EventsConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}
	if cfg.NATSURL == "" {
		return NewInProcess(cfg.TopicPrefix, logger), nil
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("stox-gateway"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	return &Bus{publisher: pub, prefix: cfg.TopicPrefix}, nil
}

// NewInProcess creates a bus backed by a Watermill go channel. Events are
// dropped when nobody subscribes.
func NewInProcess(prefix string, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return &Bus{publisher: ch, subscriber: ch, prefix: prefix}
}

// Topic returns the wire topic for name.
func (b *Bus) Topic(name string) string {
	if b.prefix == "" {
		return name
	}
	return b.prefix + "." + name
}

// Publish marshals payload and publishes it on topic. The message carries
// the request's correlation id in its metadata.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", topic)
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set("correlation_id", cid)
	}
	if _, ok := b.publisher.(*wmNats.Publisher); ok {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	err = b.publisher.Publish(b.Topic(topic), msg)
	metrics.RecordPublish(topic, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe is available on in-process buses only.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if b.subscriber == nil {
		return nil, errors.New("subscribe is not supported on this bus")
	}
	return b.subscriber.Subscribe(ctx, b.Topic(topic))
}

// Close shuts the underlying publisher down. It is safe to call twice.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.publisher.Close()
}
