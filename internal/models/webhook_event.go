package models

import (
	"encoding/json"
	"time"
)

// WebhookEvent: запись журнала входящих событий провайдера, нужна для дедупликации
// повторных доставок и для ручной сверки необработанных событий.
type WebhookEvent struct {
	ID              string
	Type            string
	Payload         json.RawMessage
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
	ProcessingError string
}
