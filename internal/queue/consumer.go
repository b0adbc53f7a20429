package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/tapin-reveal/internal/push"
)

// Deliverer sends a batch of push messages.  *push.ExpoClient satisfies it.
type Deliverer interface {
    Send(ctx context.Context, msgs []push.Message) ([]push.Ticket, error)
}

// StartPushConsumer connects to RabbitMQ, declares push.outbound and
// delivers each event through d.  It reconnects with exponential backoff
// and returns only when ctx is cancelled.  A message that fails to decode is
// dropped; a delivery failure is requeued once and dropped on redelivery so
// a broken batch cannot loop forever.
func StartPushConsumer(ctx context.Context, url string, d Deliverer, logger *slog.Logger) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            logger.Warn("push.consumer.dial.fail", "err", err, "retry_in", backoff.String())
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, d, logger)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logger.Warn("push.consumer.loop.end", "err", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, d Deliverer, logger *slog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(20, 0, false); err != nil {
        logger.Warn("push.consumer.qos.fail", "err", err)
    }
    if _, err := ch.QueueDeclare(PushQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(PushQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case m, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            err := handlePushEvent(ctx, m.Body, d)
            switch {
            case err == nil:
                _ = m.Ack(false)
            case errors.Is(err, errBadPayload):
                logger.Error("push.consumer.decode.fail", "err", err)
                _ = m.Nack(false, false)
            default:
                logger.Warn("push.deliver.fail", "err", err, "redelivered", m.Redelivered)
                _ = m.Nack(false, !m.Redelivered)
            }
        }
    }
}

var errBadPayload = errors.New("bad push event payload")

func handlePushEvent(ctx context.Context, body []byte, d Deliverer) error {
    var ev PushEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("%w: %v", errBadPayload, err)
    }
    if len(ev.Messages) == 0 {
        return nil
    }
    sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
    defer cancel()
    _, err := d.Send(sendCtx, ev.Messages)
    return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
