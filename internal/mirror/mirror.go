// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package mirror republishes live envelopes to NATS JetStream.
//
// The mirror is an ordinary fan-out subscriber: it never blocks the writer,
// and if it falls behind it loses envelopes like any other subscriber.
// Publishes go through Watermill behind a circuit breaker so a dead broker
// costs one failed call per envelope only until the breaker opens.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/heimdall/internal/broadcast"
	"github.com/tomtom215/heimdall/internal/config"
	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/metrics"
	"github.com/tomtom215/heimdall/internal/models"
)

// Publish results recorded in mirror_published_total.
const (
	ResultPublished = "published"
	ResultFailed    = "failed"
	ResultRejected  = "rejected"
	ResultEncode    = "encode_error"
)

// Metadata keys set on every mirrored message.
const (
	MetadataType     = "type"
	MetadataPlayerID = "player_id"
)

const streamSetupTimeout = 10 * time.Second

// Source is the fan-out the mirror subscribes to.
type Source interface {
	Subscribe() *broadcast.Subscription[models.Envelope]
}

// Mirror forwards envelopes from a Source to a Watermill publisher.
type Mirror struct {
	source    Source
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
	prefix    string
	log       zerolog.Logger

	server    *EmbeddedServer
	closeOnce sync.Once
}

// New connects to the configured broker, starting an embedded server first
// if cfg asks for one, and ensures the JetStream stream exists.
func New(cfg *config.NATSConfig, source Source) (*Mirror, error) {
	var embedded *EmbeddedServer
	url := cfg.URL
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(ServerConfig{
			StoreDir:  cfg.StoreDir,
			MaxMemory: cfg.MaxMemory,
			MaxStore:  cfg.MaxStore,
		})
		if err != nil {
			return nil, err
		}
		embedded = srv
		url = srv.ClientURL()
	}

	cleanup := func() {
		if embedded != nil {
			embedded.Shutdown()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), streamSetupTimeout)
	defer cancel()
	if err := EnsureStream(ctx, url, cfg.TopicPrefix); err != nil {
		cleanup()
		return nil, err
	}

	pub, err := newNATSPublisher(url)
	if err != nil {
		cleanup()
		return nil, err
	}

	m := NewWithPublisher(pub, source, cfg.TopicPrefix, cfg.BreakerMaxFailures, cfg.BreakerTimeout)
	m.server = embedded
	m.log.Info().
		Str("url", url).
		Bool("embedded", embedded != nil).
		Str("topic_prefix", cfg.TopicPrefix).
		Msg("Envelope mirror connected")
	return m, nil
}

// NewWithPublisher builds a mirror around an existing Watermill publisher.
func NewWithPublisher(pub message.Publisher, source Source, prefix string, breakerFailures uint32, breakerTimeout time.Duration) *Mirror {
	return &Mirror{
		source:    source,
		publisher: pub,
		breaker:   newCircuitBreaker(breakerFailures, breakerTimeout),
		prefix:    prefix,
		log:       logging.WithComponent("mirror"),
	}
}

func newNATSPublisher(url string) (message.Publisher, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return pub, nil
}

// StreamName derives the JetStream stream name from a topic prefix.
func StreamName(prefix string) string {
	return strings.ToUpper(strings.ReplaceAll(prefix, ".", "_")) + "_ENVELOPES"
}

// Topic returns the subject an envelope of type envType is published on.
func Topic(prefix, envType string) string {
	return prefix + "." + envType
}

// EnsureStream creates or updates the stream capturing prefix.>.
func EnsureStream(ctx context.Context, url, prefix string) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName(prefix),
		Subjects:   []string{prefix + ".>"},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", StreamName(prefix), err)
	}
	return nil
}

// Serve mirrors envelopes until ctx is done or the source closes. It
// implements suture.Service.
func (m *Mirror) Serve(ctx context.Context) error {
	sub := m.source.Subscribe()
	defer func() {
		if dropped := sub.Dropped(); dropped > 0 {
			m.log.Warn().Uint64("dropped", dropped).Msg("Mirror lagged behind the live stream")
		}
		sub.Unsubscribe()
	}()

	for {
		env, err := sub.Recv(ctx)
		if err != nil {
			if errors.Is(err, broadcast.ErrClosed) {
				m.log.Info().Msg("Live stream closed, mirror stopping")
				return nil
			}
			return err
		}
		m.forward(env)
	}
}

func (m *Mirror) forward(env models.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		metrics.RecordMirrorPublish(ResultEncode)
		m.log.Error().Err(err).Str("type", env.Type()).Msg("Failed to encode envelope")
		return
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(MetadataType, env.Type())
	msg.Metadata.Set(MetadataPlayerID, strconv.FormatInt(env.PlayerID(), 10))
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	topic := Topic(m.prefix, env.Type())
	_, err = m.breaker.Execute(func() (any, error) {
		return nil, m.publisher.Publish(topic, msg)
	})
	switch {
	case err == nil:
		metrics.RecordMirrorPublish(ResultPublished)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordMirrorPublish(ResultRejected)
	default:
		metrics.RecordMirrorPublish(ResultFailed)
		m.log.Warn().Err(err).Str("topic", topic).Msg("Failed to mirror envelope")
	}
}

// BreakerState returns the circuit breaker state name.
func (m *Mirror) BreakerState() string {
	return m.breaker.State().String()
}

// Close closes the publisher and stops the embedded server, if any.
func (m *Mirror) Close() error {
	var err error
	m.closeOnce.Do(func() {
		err = m.publisher.Close()
		if m.server != nil {
			m.server.Shutdown()
		}
	})
	return err
}

// String implements fmt.Stringer for supervisor logs.
func (m *Mirror) String() string {
	return "nats-mirror"
}
