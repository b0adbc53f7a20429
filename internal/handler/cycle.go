package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/service"
)

// CycleHandler exposes the caller's daily cycle.
type CycleHandler struct {
	Cycle *service.CycleAllocator
}

func NewCycleHandler(cy *service.CycleAllocator) *CycleHandler {
	return &CycleHandler{Cycle: cy}
}

type slotView struct {
	Slot           int     `json:"slot"`
	TargetID       string  `json:"target_id"`
	ConversationID *string `json:"conversation_id"`
	Status         string  `json:"status"`
}

// Today handles GET /v1/cycle/today.
func (h *CycleHandler) Today(c echo.Context) error {
	uid, ok, err := callerID(c)
	if !ok {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	day := h.Cycle.Today()
	slots, err := h.Cycle.Slots(ctx, uid, day)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]slotView, 0, len(slots))
	for _, s := range slots {
		v := slotView{Slot: s.Slot, TargetID: s.TargetID, Status: s.Status}
		if s.ConversationID != "" {
			id := s.ConversationID
			v.ConversationID = &id
		}
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"day_key":   day,
		"slots":     out,
		"remaining": model.MaxDailySlots - len(out),
	})
}
