package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/estatehub/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

var ErrInvalidURL = errors.New("amqp: scheme must be amqp:// or amqps://")

// Publisher sends JSON events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any, headers map[string]string) error
	Close() error
}

type Config struct {
	URL      string
	Exchange string
}

// NoOpPublisher drops every event. Used when no broker is configured.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(ctx context.Context, routingKey string, body any, headers map[string]string) error {
	return nil
}

func (NoOpPublisher) Close() error { return nil }

// RabbitPublisher owns one connection and one channel. Channels are not safe
// for concurrent publishing, so every publish holds mu.
type RabbitPublisher struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewRabbitPublisher(cfg Config, log *zap.Logger) (*RabbitPublisher, error) {
	clean, err := sanitizeURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	cfg.URL = clean
	if strings.TrimSpace(cfg.Exchange) == "" {
		return nil, errors.New("amqp: exchange is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := &RabbitPublisher{cfg: cfg, log: log.Named("amqp.publisher")}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitPublisher) connect() error {
	conn, err := amqp091.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.cfg.Exchange,
		amqp091.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return fmt.Errorf("amqp exchange declare: %w", err)
	}

	p.conn = conn
	p.channel = channel
	return nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, body any, headers map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("amqp encode: %w", err)
	}

	table := amqp091.Table{}
	for key, value := range headers {
		table[key] = value
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
		p.log.Info("amqp connection re-established", zap.String("exchange", p.cfg.Exchange))
	}

	err = p.channel.PublishWithContext(ctx,
		p.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    correlation.NewID(),
			Timestamp:    time.Now().UTC(),
			Headers:      table,
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}

	p.log.Debug("published event",
		zap.String("exchange", p.cfg.Exchange),
		zap.String("routing_key", routingKey),
	)
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *RabbitPublisher) closeLocked() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", ErrInvalidURL
	}
	return clean, nil
}
