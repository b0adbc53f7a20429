package queue

import (
    "context"
    "encoding/json"
    "errors"
    "testing"

    "github.com/iliyamo/tapin-reveal/internal/push"
)

type recordingDeliverer struct {
    batches [][]push.Message
    err     error
}

func (r *recordingDeliverer) Send(_ context.Context, msgs []push.Message) ([]push.Ticket, error) {
    r.batches = append(r.batches, msgs)
    return nil, r.err
}

func TestHandlePushEventDelivers(t *testing.T) {
    t.Parallel()

    ev := NewPushEvent("u1", "match", []push.Message{{To: "ExponentPushToken[a]", Title: "TapIn"}})
    if ev.ID == "" || ev.CreatedAt == "" {
        t.Fatalf("event not stamped: %+v", ev)
    }
    body, err := json.Marshal(ev)
    if err != nil {
        t.Fatalf("marshal: %v", err)
    }

    d := &recordingDeliverer{}
    if err := handlePushEvent(context.Background(), body, d); err != nil {
        t.Fatalf("handlePushEvent: %v", err)
    }
    if len(d.batches) != 1 || d.batches[0][0].To != "ExponentPushToken[a]" {
        t.Fatalf("delivered: %+v", d.batches)
    }
}

func TestHandlePushEventBadPayload(t *testing.T) {
    t.Parallel()

    err := handlePushEvent(context.Background(), []byte("{"), &recordingDeliverer{})
    if !errors.Is(err, errBadPayload) {
        t.Fatalf("expected errBadPayload, got %v", err)
    }
}

func TestHandlePushEventDeliveryError(t *testing.T) {
    t.Parallel()

    boom := errors.New("expo down")
    body, _ := json.Marshal(NewPushEvent("u1", "chat_message", []push.Message{{To: "x"}}))
    err := handlePushEvent(context.Background(), body, &recordingDeliverer{err: boom})
    if !errors.Is(err, boom) {
        t.Fatalf("expected delivery error, got %v", err)
    }
}
