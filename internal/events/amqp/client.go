// Package amqp publishes ledger events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/hongminglow/ledger-be/internal/events"
	applog "github.com/hongminglow/ledger-be/internal/log"
)

var _ events.Publisher = (*Client)(nil)

const publishTimeout = 5 * time.Second

type Client struct {
	mu           sync.Mutex
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
}

// NewClient dials url and declares a durable topic exchange named exchangeName.
func NewClient(url, exchangeName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Client{conn: conn, channel: channel, exchangeName: exchangeName}, nil
}

// Publish sends ev with its kind as routing key.
func (c *Client) Publish(ctx context.Context, ev events.Event) error {
	msg, err := newPublishing(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName,  // exchange
		string(ev.Kind), // routing key
		false,           // mandatory
		false,           // immediate
		msg,
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}

	applog.FromContext(ctx).DebugContext(ctx, "published ledger event",
		applog.FieldComponent, applog.ComponentAMQP,
		applog.FieldEventKind, ev.Kind,
		applog.FieldTransactionID, ev.TransactionID,
		"exchange", c.exchangeName)
	return nil
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			firstErr = fmt.Errorf("close channel: %w", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close connection: %w", err)
		}
	}
	return firstErr
}

func newPublishing(ev events.Event) (amqp091.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Kind),
		MessageId:    ev.TransactionID + ":" + string(ev.Kind),
		Body:         body,
	}, nil
}
