package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/service"
)

// maxWebhookBody caps the size of an inbound webhook payload.
const maxWebhookBody = 1 << 20

// WebhookHandler serves server-to-server endpoints guarded by the shared
// webhook secret.
type WebhookHandler struct {
	MessageSvc *service.MessageService
	Blocks     *service.BlocklistManager
}

func NewWebhookHandler(m *service.MessageService, b *service.BlocklistManager) *WebhookHandler {
	return &WebhookHandler{MessageSvc: m, Blocks: b}
}

// messagePayload is the database webhook envelope for an inserted message.
type messagePayload struct {
	Type   string `json:"type"`
	Table  string `json:"table"`
	Record struct {
		ConversationID string `json:"conversation_id"`
		SenderID       string `json:"sender_id"`
		RecipientID    string `json:"recipient_id"`
		Body           string `json:"body"`
	} `json:"record"`
}

// Messages handles POST /v1/webhooks/messages.  Events that cannot be acted
// on are acknowledged with a skip reason so the sender does not retry them.
func (h *WebhookHandler) Messages(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "skipped": "empty body"})
	}
	var p messagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid JSON body"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.MessageSvc.HandleMessage(ctx, service.MessageEvent{
		ConversationID: strings.TrimSpace(p.Record.ConversationID),
		SenderID:       strings.TrimSpace(p.Record.SenderID),
		RecipientID:    strings.TrimSpace(p.Record.RecipientID),
		Body:           p.Record.Body,
	})
	if err != nil {
		return respondError(c, err)
	}
	if res.Skipped != "" {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "skipped": res.Skipped})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":           true,
		"notified":     res.Notified,
		"reveal_ready": res.RevealReady,
	})
}

// Blocklist handles GET /v1/internal/blocklist?a=&b=.
func (h *WebhookHandler) Blocklist(c echo.Context) error {
	a := strings.TrimSpace(c.QueryParam("a"))
	b := strings.TrimSpace(c.QueryParam("b"))
	if a == "" || b == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a and b are required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	blocked, err := h.Blocks.IsBlocked(ctx, a, b)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"is_blocked": blocked})
}
