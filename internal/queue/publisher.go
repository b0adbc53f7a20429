package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends PushEvents to the push.outbound queue.  It dials per
// publish; push volume is a handful of messages per match or chat message.
// Errors are logged and returned so callers can fall back to direct delivery.
type Publisher struct {
    url    string
    logger *slog.Logger
}

// NewPublisher returns nil when url is empty so callers can test for a
// configured broker with a nil check.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
    if url == "" {
        return nil
    }
    return &Publisher{url: url, logger: logger}
}

// PublishPush publishes ev as a persistent JSON message.
func (p *Publisher) PublishPush(ctx context.Context, ev PushEvent) error {
    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
    if err != nil {
        p.logger.Warn("rabbitmq.dial.fail", "err", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.logger.Warn("rabbitmq.channel.fail", "err", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(PushQueueName, true, false, false, false, nil); err != nil {
        p.logger.Warn("rabbitmq.declare.fail", "queue", PushQueueName, "err", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.ID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := ch.PublishWithContext(ctx, "", PushQueueName, false, false, pub); err != nil {
        p.logger.Warn("rabbitmq.publish.fail", "queue", PushQueueName, "err", err)
        return err
    }
    return nil
}
