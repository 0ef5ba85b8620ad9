// Package amqp publishes and consumes movement events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	applog "gastos/internal/log"
)

const (
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var (
	ErrNotConnected = errors.New("amqp channel not open")
	ErrCircuitOpen  = errors.New("circuit breaker is open")
)

// Handler processes one decoded event. Returning an error requeues it.
type Handler func(ctx context.Context, e *MovementEvent) error

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	cb *gobreaker.CircuitBreaker
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		cb:           newBreaker("amqp-publish"),
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// newBreaker trips after at least 5 publishes with a 60% failure ratio and
// probes again after 10 seconds.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("AMQP circuit breaker state changed",
				applog.FieldComponent, applog.ComponentAMQP,
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Publish sends e as a persistent JSON message through the circuit breaker.
// A dropped connection is re-dialled once before the failure is reported.
func (c *Client) Publish(ctx context.Context, e *MovementEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.cb.Execute(func() (any, error) {
		err := c.publish(ctx, body)
		if isConnectionError(err) && c.url != "" {
			if rerr := c.connect(); rerr == nil {
				err = c.publish(ctx, body)
			}
		}
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published movement event",
		applog.FieldComponent, applog.ComponentAMQP,
		applog.FieldOperation, applog.OpPublish,
		applog.FieldEventKind, e.Kind,
		applog.FieldMovementID, e.MovementID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ch := c.currentChannel()
	if ch == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Consume delivers events to handler until ctx is done, re-dialling with
// exponential backoff when the broker connection drops.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption",
				applog.FieldComponent, applog.ComponentAMQP,
				"reason", ctx.Err())
			return ctx.Err()
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "Consumer interrupted, reconnecting",
			applog.FieldComponent, applog.ComponentAMQP,
			applog.FieldError, err,
			"attempt", attempt+1,
			"backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := c.connect(); err != nil {
			attempt++
			continue
		}
		attempt = 0
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler) error {
	ch := c.currentChannel()
	if ch == nil {
		return ErrNotConnected
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming movement events",
		applog.FieldComponent, applog.ComponentAMQP,
		"queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

// handleDelivery acks handled events, drops malformed ones and requeues
// events whose handler failed.
func handleDelivery(ctx context.Context, d amqp091.Delivery, handler Handler) {
	e, err := MovementEventFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed movement event",
			applog.FieldComponent, applog.ComponentAMQP,
			applog.FieldError, err)
		d.Nack(false, false)
		return
	}

	if err := handler(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to handle movement event",
			applog.FieldComponent, applog.ComponentAMQP,
			applog.FieldOperation, applog.OpConsume,
			applog.FieldEventKind, e.Kind,
			applog.FieldMovementID, e.MovementID,
			applog.FieldError, err)
		d.Nack(false, true)
		return
	}

	d.Ack(false)
	slog.DebugContext(ctx, "Processed movement event",
		applog.FieldComponent, applog.ComponentAMQP,
		applog.FieldEventKind, e.Kind,
		applog.FieldMovementID, e.MovementID)
}

// exponentialBackoff doubles from one second and caps at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, ErrNotConnected) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
