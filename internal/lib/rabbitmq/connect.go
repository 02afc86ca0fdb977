// Package rabbitmq содержит помощники для работы с очередью событий биллинга:
// подключение, объявление топологии, публикацию и потребление сообщений.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// QueueConfig описывает очередь и ключ маршрутизации, с которым она привязана к обменнику.
// RetryQueue, если задана, держит сообщения RetryDelay и возвращает их в QueueName.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
	RetryQueue string
}

// Topology описывает обменник, рабочие очереди, очереди отложенного повтора
// и очередь недоставленных сообщений.
type Topology struct {
	Exchange        string
	Queues          []QueueConfig
	DeadLetterQueue string
	RetryDelay      time.Duration
	Prefetch        int
}

// Connect подключается к RabbitMQ, повторяя попытку retries раз с паузой delay.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал и объявляет топологию. Сообщения, отклонённые без повторной
// постановки, уходят через обменник по умолчанию в DeadLetterQueue. Очередь повтора без
// потребителей: по истечении TTL сообщение возвращается в свою рабочую очередь.
func SetupChannel(conn *amqp.Connection, topo Topology) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	prefetch := topo.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		topo.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var queueArgs amqp.Table
	if topo.DeadLetterQueue != "" {
		_, err := ch.QueueDeclare(topo.DeadLetterQueue, true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, topo.DeadLetterQueue, err)
		}
		queueArgs = amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": topo.DeadLetterQueue,
		}
	}

	for _, q := range topo.Queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			queueArgs,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			topo.Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}

		if q.RetryQueue == "" {
			continue
		}
		_, err = ch.QueueDeclare(
			q.RetryQueue,
			true,
			false,
			false,
			false,
			amqp.Table{
				"x-message-ttl":             topo.RetryDelay.Milliseconds(),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": q.QueueName,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.RetryQueue, err)
		}
	}

	return ch, nil
}
