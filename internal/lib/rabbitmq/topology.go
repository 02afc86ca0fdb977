package rabbitmq

import "github.com/magabrotheeeer/music-billing/internal/config"

// EventsTopology возвращает топологию очереди событий биллинга: обменник, рабочую очередь,
// очередь отложенного повтора и очередь недоставленных сообщений.
func EventsTopology(cfg config.RabbitMQ) Topology {
	return Topology{
		Exchange: cfg.Exchange,
		Queues: []QueueConfig{
			{QueueName: cfg.Queue, RoutingKey: cfg.RoutingKey, RetryQueue: cfg.RetryQueue},
		},
		DeadLetterQueue: cfg.DeadLetterQueue,
		RetryDelay:      cfg.RetryDelay,
		Prefetch:        cfg.Concurrency,
	}
}

// EventsConsumer возвращает настройки потребителя очереди событий биллинга.
func EventsConsumer(cfg config.RabbitMQ, retry RetrySender) Consumer {
	return Consumer{
		Queue:       cfg.Queue,
		Concurrency: cfg.Concurrency,
		RetryQueue:  cfg.RetryQueue,
		RetryLimit:  cfg.RetryLimit,
		Retry:       retry,
	}
}
