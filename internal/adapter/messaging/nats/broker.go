package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("garala/nats")

// Broker publishes domain events and feeds live subscribers over one
// connection.
type Broker struct {
	conn   *nats.Conn
	logger *logger.Logger
}

func NewBroker(url string, log *logger.Logger, appName string) (*Broker, error) {
	log.Info("NATS: connecting...", zap.String("url", url))

	opts := []nats.Option{
		nats.Name(fmt.Sprintf("%s NATS Broker", appName)),
		nats.Timeout(10 * time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("NATS error", zap.String("subject", subject), zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		log.Error("NATS: failed to connect", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Info("NATS: successfully connected", zap.String("url", conn.ConnectedUrl()))

	return &Broker{
		conn:   conn,
		logger: log.Named("NATSBroker"),
	}, nil
}

// Publish sends data as JSON with the caller's trace context in the headers.
func (b *Broker) Publish(ctx context.Context, subject string, data interface{}) error {
	ctx, span := tracer.Start(ctx, "NATS.Publish "+subject, trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	jsonData, err := json.Marshal(data)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal data for subject %s: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = jsonData
	msg.Header = make(nats.Header)
	otel.GetTextMapPropagator().Inject(ctx, HeaderCarrier(msg.Header))

	if err := b.conn.PublishMsg(msg); err != nil {
		b.logger.Error("NATS: failed to publish message", zap.String("subject", subject), zap.Error(err))
		span.RecordError(err)
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}

	b.logger.Debug("NATS: message published", zap.String("subject", subject), zap.Int("data_size_bytes", len(jsonData)))
	return nil
}

// Subscribe calls fn with the payload of every message on subject until the
// returned unsubscribe function is called. fn runs on the subscription's
// goroutine, so messages arrive in publish order.
func (b *Broker) Subscribe(subject string, fn func(data []byte)) (func() error, error) {
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	b.logger.Debug("NATS: subscribed", zap.String("subject", subject))
	return sub.Unsubscribe, nil
}

// Healthy reports whether the connection is currently usable.
func (b *Broker) Healthy() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Close drains and closes the NATS connection.
func (b *Broker) Close() {
	if b.conn == nil || b.conn.IsClosed() {
		return
	}
	b.logger.Info("NATS: closing connection...")
	if err := b.conn.Drain(); err != nil {
		b.logger.Error("NATS: failed to drain connection", zap.Error(err))
		b.conn.Close()
	}
}

// HeaderCarrier adapts nats.Header to the OpenTelemetry propagation API.
type HeaderCarrier nats.Header

func (c HeaderCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c HeaderCarrier) Set(key string, value string) {
	nats.Header(c).Set(key, value)
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
