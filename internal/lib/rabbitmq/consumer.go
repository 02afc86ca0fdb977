package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/music-billing/internal/lib/sl"
)

// RetryCountHeader: заголовок с числом повторов, уже назначенных сообщению.
const RetryCountHeader = "x-retry-count"

var (
	// ErrDiscard помечает ошибку, после которой сообщение не возвращается в очередь.
	ErrDiscard = errors.New("discard message")
	// ErrDeliveryClosed: брокер закрыл канал доставки сообщений.
	ErrDeliveryClosed = errors.New("delivery channel closed")
)

// Discard оборачивает err так, что потребитель отклонит сообщение без повторной постановки.
func Discard(err error) error {
	return fmt.Errorf("%w: %w", ErrDiscard, err)
}

// RetrySender публикует сообщение и ждёт подтверждения брокера.
type RetrySender interface {
	Send(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// Consumer описывает потребителя очереди.
//
// Если задан Retry, сообщение с ошибкой обработки публикуется в RetryQueue с увеличенным
// RetryCountHeader, а исходная доставка подтверждается. Когда повторов набралось RetryLimit,
// следующая ошибка отклоняет сообщение без повторной постановки, и оно уходит в очередь
// недоставленных. Без Retry сообщение с ошибкой сразу возвращается в очередь.
type Consumer struct {
	Queue       string
	Concurrency int
	RetryQueue  string
	RetryLimit  int
	Retry       RetrySender
}

// ConsumerMessage запускает потребителя очереди. Каждое сообщение обрабатывается в своей горутине,
// одновременно не больше c.Concurrency. Успех подтверждается, ошибка с ErrDiscard отклоняется
// без повторной постановки, остальные ошибки уходят на повтор.
//
// Возвращённый канал получает одно значение, когда потребитель остановился и все начатые
// обработчики завершились: nil после отмены ctx, ErrDeliveryClosed, если брокер закрыл доставку.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, c Consumer,
	handler func([]byte) error, log *slog.Logger) (<-chan error, error) {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		c.Queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	log = log.With(slog.String("queue", c.Queue))

	done := make(chan error, 1)
	go func() {
		var wg sync.WaitGroup
		sem := make(chan struct{}, concurrency)
		err := func() error {
			for {
				select {
				case d, ok := <-delivery:
					if !ok {
						return ErrDeliveryClosed
					}
					select {
					case sem <- struct{}{}:
					case <-ctx.Done():
						if nackErr := d.Nack(false, true); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return nil
					}
					wg.Add(1)
					go func(d amqp.Delivery) {
						defer wg.Done()
						defer func() { <-sem }()
						c.settle(ctx, d, handler(d.Body), log)
					}(d)
				case <-ctx.Done():
					return nil
				}
			}
		}()
		wg.Wait()
		done <- err
	}()
	return done, nil
}

func (c Consumer) settle(ctx context.Context, d amqp.Delivery, err error, log *slog.Logger) {
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
		return
	}

	if errors.Is(err, ErrDiscard) {
		log.Warn("message discarded", sl.Err(err))
		nack(d, false, log)
		return
	}
	if c.Retry == nil || ctx.Err() != nil {
		log.Warn("message handling failed", slog.Bool("requeue", true), sl.Err(err))
		nack(d, true, log)
		return
	}

	attempt := retryCount(d.Headers) + 1
	if attempt > c.RetryLimit {
		log.Error("retry limit reached, message dead-lettered",
			slog.Int("retries", attempt-1), sl.Err(err))
		nack(d, false, log)
		return
	}
	if sendErr := c.Retry.Send(ctx, c.RetryQueue, retryPublishing(d, attempt)); sendErr != nil {
		log.Error("failed to schedule retry", sl.Err(sendErr))
		nack(d, true, log)
		return
	}
	log.Warn("message handling failed, retry scheduled", slog.Int("attempt", attempt), sl.Err(err))
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}

func nack(d amqp.Delivery, requeue bool, log *slog.Logger) {
	if err := d.Nack(false, requeue); err != nil {
		log.Error("failed to nack message", sl.Err(err))
	}
}

func retryCount(h amqp.Table) int {
	switch v := h[RetryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func retryPublishing(d amqp.Delivery, attempt int) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		if k == "x-death" {
			continue
		}
		headers[k] = v
	}
	headers[RetryCountHeader] = int32(attempt)

	return amqp.Publishing{
		Headers:         headers,
		ContentType:     d.ContentType,
		ContentEncoding: d.ContentEncoding,
		DeliveryMode:    amqp.Persistent,
		MessageId:       d.MessageId,
		Timestamp:       d.Timestamp,
		Type:            d.Type,
		Body:            d.Body,
	}
}
