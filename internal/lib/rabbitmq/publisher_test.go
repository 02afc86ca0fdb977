package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishMessage(t *testing.T) {
	ctx := context.Background()
	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer func() {
		if err := ch.Close(); err != nil {
			t.Errorf("failed to close channel: %v", err)
		}
	}()

	queueName := "publish-test"
	_, err = ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	type TestMsg struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	}

	t.Run("success publish and consume", func(t *testing.T) {
		msg := TestMsg{ID: "evt_1", Kind: "product_changed"}

		err = PublishMessage(ch, "", queueName, msg)
		require.NoError(t, err)

		deliveries, err := ch.Consume(queueName, "test-consumer", true, false, false, false, nil)
		require.NoError(t, err)

		select {
		case d := <-deliveries:
			var got TestMsg
			err := json.Unmarshal(d.Body, &got)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
			assert.Equal(t, "application/json", d.ContentType)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("marshal error", func(t *testing.T) {
		// В json marshal нельзя сериализовать канал
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{
			Ch: make(chan int),
		}

		err := PublishMessage(ch, "", queueName, badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
	})
}

func TestPublisher_ToExchangeWithRoutingKey(t *testing.T) {
	ctx := context.Background()
	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := SetupChannel(conn, Topology{
		Exchange: "route-exchange",
		Queues:   []QueueConfig{{QueueName: "route-test", RoutingKey: "rk"}},
	})
	require.NoError(t, err)
	defer func() {
		if err := ch.Close(); err != nil {
			t.Errorf("failed to close channel: %v", err)
		}
	}()

	publisher, err := NewPublisher(ch, "route-exchange", "rk", 5*time.Second)
	require.NoError(t, err)

	msg := map[string]any{"ok": true}
	require.NoError(t, publisher.Publish(ctx, msg))
	require.NoError(t, publisher.Publish(ctx, msg))

	deliveries, err := ch.Consume("route-test", "test-consumer2", true, false, false, false, nil)
	require.NoError(t, err)

	for range 2 {
		select {
		case d := <-deliveries:
			var got map[string]any
			err := json.Unmarshal(d.Body, &got)
			require.NoError(t, err)
			assert.Equal(t, msg["ok"], got["ok"])
			assert.Equal(t, uint8(amqp.Persistent), d.DeliveryMode)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for message via exchange")
		}
	}
}

func TestPublisher_UnroutableMessageFails(t *testing.T) {
	ctx := context.Background()
	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := SetupChannel(conn, Topology{
		Exchange: "unrouted-exchange",
		Queues:   []QueueConfig{{QueueName: "unrouted-test", RoutingKey: "bound"}},
	})
	require.NoError(t, err)

	publisher, err := NewPublisher(ch, "unrouted-exchange", "not-bound", 5*time.Second)
	require.NoError(t, err)

	err = publisher.Publish(ctx, map[string]string{"id": "evt_1"})
	require.ErrorIs(t, err, ErrUnroutable)

	err = publisher.Send(ctx, "bound", amqp.Publishing{Body: []byte(`{}`)})
	require.NoError(t, err, "a routed message after an unroutable one is confirmed")
}

func TestPublisher_ClosedChannel(t *testing.T) {
	ctx := context.Background()
	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := conn.Channel()
	require.NoError(t, err)
	publisher, err := NewPublisher(ch, "", "publish-closed", time.Second)
	require.NoError(t, err)
	require.NoError(t, ch.Close())

	err = publisher.Publish(ctx, map[string]string{"id": "evt_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq.Publisher.Send")
}
