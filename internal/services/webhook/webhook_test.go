package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/music-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/music-billing/internal/models"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
)

type ParserMock struct{ mock.Mock }

func (m *ParserMock) Parse(payload []byte, signature string) (*paymentprovider.Event, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(*paymentprovider.Event)
	return ev, args.Error(1)
}

type LedgerMock struct{ mock.Mock }

func (m *LedgerMock) RecordWebhookEvent(ctx context.Context, ev models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	args := m.Called(ctx, ev)
	existing, _ := args.Get(1).(*models.WebhookEvent)
	return args.Bool(0), existing, args.Error(2)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, message any) error {
	return m.Called(ctx, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestReceive(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	event := &paymentprovider.Event{
		ID:             "evt_1",
		Type:           "customer.subscription.updated",
		Kind:           paymentprovider.EventSubscriptionChanged,
		SubscriptionID: "sub_1",
		CustomerID:     "cus_1",
	}
	processedAt := time.Now()
	ledgerErr := errors.New("db down")
	publishErr := errors.New("channel closed")

	tests := []struct {
		name       string
		parseEvent *paymentprovider.Event
		parseErr   error
		inserted   bool
		existing   *models.WebhookEvent
		ledgerErr  error
		publish    bool
		publishErr error
		want       Result
		wantErr    error
	}{
		{
			name:       "new event is queued",
			parseEvent: event,
			inserted:   true,
			publish:    true,
			want:       ResultQueued,
		},
		{
			name:       "processed duplicate is skipped",
			parseEvent: event,
			existing:   &models.WebhookEvent{ID: "evt_1", ProcessedAt: &processedAt},
			want:       ResultDuplicate,
		},
		{
			name:       "unprocessed duplicate is queued again",
			parseEvent: event,
			existing:   &models.WebhookEvent{ID: "evt_1"},
			publish:    true,
			want:       ResultQueued,
		},
		{
			name:       "unhandled type is ignored",
			parseEvent: &paymentprovider.Event{ID: "evt_2", Type: "invoice.paid"},
			parseErr:   paymentprovider.ErrUnhandledEvent,
			want:       ResultIgnored,
		},
		{
			name:     "bad signature",
			parseErr: paymentprovider.ErrInvalidSignature,
			wantErr:  paymentprovider.ErrInvalidSignature,
		},
		{
			name:       "ledger failure",
			parseEvent: event,
			ledgerErr:  ledgerErr,
			wantErr:    ledgerErr,
		},
		{
			name:       "publish failure",
			parseEvent: event,
			inserted:   true,
			publish:    true,
			publishErr: publishErr,
			wantErr:    publishErr,
		},
		{
			name:       "unconfirmed publish fails the delivery",
			parseEvent: event,
			inserted:   true,
			publish:    true,
			publishErr: fmt.Errorf("rabbitmq.Publisher.Send: %w", rabbitmq.ErrPublishNacked),
			wantErr:    rabbitmq.ErrPublishNacked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := new(ParserMock)
			ledger := new(LedgerMock)
			publisher := new(PublisherMock)

			parser.On("Parse", payload, "sig").Return(tt.parseEvent, tt.parseErr)
			if tt.parseErr == nil {
				ledger.On("RecordWebhookEvent", mock.Anything, models.WebhookEvent{
					ID:      "evt_1",
					Type:    "customer.subscription.updated",
					Payload: payload,
				}).Return(tt.inserted, tt.existing, tt.ledgerErr)
			}
			if tt.publish {
				publisher.On("Publish", mock.Anything, event).Return(tt.publishErr)
			}

			svc := New(parser, ledger, publisher, newNoopLogger())
			got, err := svc.Receive(context.Background(), payload, "sig")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			ledger.AssertExpectations(t)
			publisher.AssertExpectations(t)
			if !tt.publish {
				publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			}
		})
	}
}
