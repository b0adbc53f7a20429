package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/service"
)

// respondError translates service errors into the JSON error responses the
// app expects.  Anything unrecognised becomes a 500 whose cause is kept as
// the internal error for the request logger.
func respondError(c echo.Context, err error) error {
	var (
		ve   *service.ValidationError
		full *service.CycleFullError
		fe   *service.ForbiddenError
		nf   *service.NotFoundError
		up   *service.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error()})
	case errors.As(err, &full):
		secs := int(math.Ceil(full.RetryAfter.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":       full.Error(),
			"day_key":     full.DayKey,
			"retry_after": secs,
		})
	case errors.As(err, &fe):
		return c.JSON(http.StatusForbidden, echo.Map{"error": fe.Reason})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.As(err, &up):
		return echo.NewHTTPError(http.StatusBadGateway, up.Service+" unavailable").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

// HTTPErrorHandler renders echo errors in the same {"error": "..."} shape as
// the handlers.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": msg})
}
