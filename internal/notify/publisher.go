package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const InquiryExchange = "inquiries_fanout"

// InquiryMessage tells the kitchen that a customer asked for a dish.
type InquiryMessage struct {
	InquiryID     string    `json:"inquiry_id"`
	Type          string    `json:"type"`
	DishID        string    `json:"dish_id"`
	DishName      string    `json:"dish_name"`
	Quantity      int       `json:"quantity"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CreatedAt     time.Time `json:"created_at"`
}

type Publisher interface {
	PublishInquiry(ctx context.Context, msg InquiryMessage) error
	Close() error
}

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	open  func() (Channel, error)
	close func() error
}

func Dial(url string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return NewRabbitPublisher(
		func() (Channel, error) { return conn.Channel() },
		conn.Close,
	), nil
}

func NewRabbitPublisher(open func() (Channel, error), close func() error) *RabbitPublisher {
	return &RabbitPublisher{open: open, close: close}
}

func (p *RabbitPublisher) PublishInquiry(ctx context.Context, msg InquiryMessage) error {
	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(InquiryExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.PublishWithContext(ctx, InquiryExchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    msg.InquiryID,
		Timestamp:    msg.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishInquiry(context.Context, InquiryMessage) error { return nil }

func (NoopPublisher) Close() error { return nil }
