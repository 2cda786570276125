package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	obsmetrics "github.com/smallbiznis/nurture/internal/observability/metrics"
	"go.uber.org/zap"
)

const routingKeyPrefix = "analytics."

// Publisher is the subset of *amqp.Channel the sink needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPConfig struct {
	Exchange      string
	BufferSize    int
	FlushInterval time.Duration
}

// AMQPSink publishes each event as JSON to a topic exchange, routed by
// "analytics.<event name>".
type AMQPSink struct {
	exchange  string
	publisher Publisher
	worker    *worker
}

func NewAMQPSink(cfg AMQPConfig, publisher Publisher, log *zap.Logger, metrics *obsmetrics.Metrics) *AMQPSink {
	s := &AMQPSink{
		exchange:  cfg.Exchange,
		publisher: publisher,
	}
	s.worker = newWorker("amqp", log.Named("analytics.amqp"), metrics, cfg.BufferSize, cfg.FlushInterval, s.publish)
	return s
}

func (s *AMQPSink) Start() { s.worker.start() }

func (s *AMQPSink) Stop(ctx context.Context) error { return s.worker.stop(ctx) }

func (s *AMQPSink) Capture(ctx context.Context, event Event) {
	s.worker.enqueue(ctx, event)
}

func (s *AMQPSink) publish(ctx context.Context, batch []Event) error {
	var errs []error
	for _, event := range batch {
		body, err := json.Marshal(event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		err = s.publisher.PublishWithContext(ctx, s.exchange, routingKeyPrefix+event.Name, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
			Body:         body,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// dialAMQP connects and declares the durable topic exchange.
func dialAMQP(rawURL, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, nil, err
	}

	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, channel, nil
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("amqp url must use amqp:// or amqps://")
	}
	return clean, nil
}
