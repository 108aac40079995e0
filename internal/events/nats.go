package events

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
)

// NATSConfig holds connection settings for the NATS publisher
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS settings
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "wordrank.games",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes events on core NATS subjects "<prefix>.<gameId>.<type>"
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSPublisher connects to NATS
func NewNATSPublisher(cfg NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	logger = logger.With(slog.String("component", "nats"))
	opts := []nats.Option{
		nats.Name("wordrank"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNATSPublisherWithConn(conn, cfg.SubjectPrefix, logger), nil
}

// NewNATSPublisherWithConn wraps an existing connection
func NewNATSPublisherWithConn(conn *nats.Conn, prefix string, logger *slog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultNATSConfig().SubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the subject an event is published on
func Subject(prefix string, event *model.Event) string {
	return fmt.Sprintf("%s.%s.%s", prefix, event.GameID, event.Type)
}

// Publish sends the event; failures are logged
func (p *NATSPublisher) Publish(_ context.Context, event *model.Event) {
	data, err := Encode(event)
	if err != nil {
		p.logger.Error("failed to encode event",
			slog.String("game_id", string(event.GameID)),
			slog.String("error", err.Error()),
		)
		return
	}

	msg := &nats.Msg{
		Subject: Subject(p.prefix, event),
		Data:    data,
		Header: nats.Header{
			"Event-Type":    []string{string(event.Type)},
			"Game-ID":       []string{string(event.GameID)},
			"Event-Version": []string{strconv.FormatInt(event.Version, 10)},
		},
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Error("failed to publish event",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
	}
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
