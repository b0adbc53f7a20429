package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/service"
)

// PushHandler registers device push tokens.
type PushHandler struct {
	Notifier *service.PushNotifier
}

func NewPushHandler(n *service.PushNotifier) *PushHandler {
	return &PushHandler{Notifier: n}
}

type registerPushRequest struct {
	ExpoPushToken string `json:"expo_push_token"`
	Platform      string `json:"platform"`
	DeviceID      string `json:"device_id"`
}

// Register handles POST /v1/push/register.
func (h *PushHandler) Register(c echo.Context) error {
	uid, ok, err := callerID(c)
	if !ok {
		return err
	}
	var body registerPushRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Notifier.RegisterToken(ctx, uid, body.ExpoPushToken, body.Platform, body.DeviceID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
