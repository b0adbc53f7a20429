package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/service"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &service.ValidationError{Field: "lat", Msg: "bad"}, http.StatusBadRequest},
		{"cycle full", fmt.Errorf("wrap: %w", &service.CycleFullError{DayKey: "2026-03-01", RetryAfter: 90 * time.Minute}), http.StatusTooManyRequests},
		{"forbidden", &service.ForbiddenError{Reason: "Not revealed yet"}, http.StatusForbidden},
		{"forbidden sentinel", service.ErrForbidden, http.StatusForbidden},
		{"not found", &service.NotFoundError{What: "conversation"}, http.StatusNotFound},
		{"not found sentinel", service.ErrNotFound, http.StatusNotFound},
		{"upstream", &service.UpstreamError{Service: "media", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			if err := respondError(c, tc.err); err != nil {
				HTTPErrorHandler(err, c)
			}
			if rec.Code != tc.want {
				t.Fatalf("status: got %d want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "5400" {
				t.Fatalf("Retry-After: %q", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestHTTPErrorHandlerShape(t *testing.T) {
	t.Parallel()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	HTTPErrorHandler(echo.ErrNotFound, c)
	if rec.Code != http.StatusNotFound || rec.Body.String() != "{\"error\":\"Not Found\"}\n" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}
