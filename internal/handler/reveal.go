package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/service"
	"github.com/iliyamo/tapin-reveal/internal/storage"
)

// RevealHandler serves the decision and revealed-media endpoints.
type RevealHandler struct {
	Reveal *service.RevealCoordinator
}

func NewRevealHandler(r *service.RevealCoordinator) *RevealHandler {
	if r == nil {
		panic("nil coordinator passed to NewRevealHandler")
	}
	return &RevealHandler{Reveal: r}
}

type decisionRequest struct {
	ConversationID string `json:"conversation_id"`
	OtherUserID    string `json:"other_user_id"`
	Decision       string `json:"decision"`
}

// Decision handles POST /v2/reveal/decision.
func (h *RevealHandler) Decision(c echo.Context) error {
	uid, ok, err := callerID(c)
	if !ok {
		return err
	}
	var body decisionRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.Reveal.SubmitDecision(ctx, service.DecisionRequest{
		ConversationID: strings.TrimSpace(body.ConversationID),
		UserID:         uid,
		OtherUserID:    strings.TrimSpace(body.OtherUserID),
		Decision:       body.Decision,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":     out.Status,
		"slot":       out.Slot,
		"day_key":    out.DayKey,
		"ai_message": out.Message,
	})
}

// Media handles GET /v2/reveal/media.  Before the reveal it answers 403; a
// revealed participant without a primary photo yields a null url.
func (h *RevealHandler) Media(c echo.Context) error {
	uid, ok, err := callerID(c)
	if !ok {
		return err
	}
	conv := strings.TrimSpace(c.QueryParam("conversation_id"))
	other := strings.TrimSpace(c.QueryParam("other_user_id"))

	ctx, cancel := requestContext(c)
	defer cancel()
	url, found, err := h.Reveal.RevealedPhoto(ctx, uid, conv, other)
	if err != nil {
		return respondError(c, err)
	}
	resp := echo.Map{
		"conversation_id": conv,
		"user_id":         other,
		"url":             nil,
	}
	if found {
		resp["url"] = url
		resp["expires_in"] = int(storage.PhotoURLTTL.Seconds())
	}
	return c.JSON(http.StatusOK, resp)
}
