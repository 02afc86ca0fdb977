package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

var (
	// ErrPublishNacked: брокер отказался принять сообщение.
	ErrPublishNacked = errors.New("publish nacked by broker")
	// ErrUnroutable: сообщение не попало ни в одну очередь.
	ErrUnroutable = errors.New("message is unroutable")
	// ErrChannelClosed: канал закрылся до подтверждения публикации.
	ErrChannelClosed = errors.New("channel closed")
)

// PublishMessage публикует сообщение в RabbitMQ без ожидания подтверждения брокера.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Publisher публикует сообщения в обменник в режиме подтверждений. Публикация считается
// успешной, только когда брокер подтвердил приём и сообщение попало хотя бы в одну очередь.
//
// Канал должен использоваться только этим Publisher: номера подтверждений считаются здесь.
// Публикации выполняются по одной.
type Publisher struct {
	mu         sync.Mutex
	ch         *amqp.Channel
	exchange   string
	routingKey string
	timeout    time.Duration
	confirms   chan amqp.Confirmation
	returns    chan amqp.Return
	seq        uint64
}

// NewPublisher переводит канал в режим подтверждений. timeout ограничивает ожидание
// подтверждения одной публикации; 0 означает ожидание до отмены контекста.
func NewPublisher(ch *amqp.Channel, exchange, routingKey string, timeout time.Duration) (*Publisher, error) {
	const op = "rabbitmq.NewPublisher"
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Publisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		timeout:    timeout,
		confirms:   ch.NotifyPublish(make(chan amqp.Confirmation, 16)),
		returns:    ch.NotifyReturn(make(chan amqp.Return, 16)),
	}, nil
}

// Publish сериализует message в JSON и публикует его с ключом маршрутизации Publisher.
func (p *Publisher) Publish(ctx context.Context, message any) error {
	const op = "rabbitmq.Publisher.Publish"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = p.Send(ctx, p.routingKey, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Send публикует msg с ключом routingKey и ждёт подтверждения брокера.
func (p *Publisher) Send(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	const op = "rabbitmq.Publisher.Send"
	p.mu.Lock()
	defer p.mu.Unlock()

	p.drainReturns()
	if err := p.ch.Publish(p.exchange, routingKey, true, false, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.seq++
	tag := p.seq

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	for {
		select {
		case c, ok := <-p.confirms:
			if !ok {
				return fmt.Errorf("%s: %w", op, ErrChannelClosed)
			}
			if c.DeliveryTag < tag {
				// подтверждение публикации, ожидание которой прервано раньше
				p.drainReturns()
				continue
			}
			if !c.Ack {
				return fmt.Errorf("%s: %w", op, ErrPublishNacked)
			}
			// брокер отправляет basic.return до basic.ack того же сообщения
			select {
			case r := <-p.returns:
				return fmt.Errorf("%s: %w: %s", op, ErrUnroutable, r.ReplyText)
			default:
			}
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
}

func (p *Publisher) drainReturns() {
	for {
		select {
		case <-p.returns:
		default:
			return
		}
	}
}
