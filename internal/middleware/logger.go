package middleware

import (
    "log/slog"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLogger logs one structured line per request.  Server errors are
// logged at error level, client errors at warn.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURIPath:   true,
        LogStatus:    true,
        LogLatency:   true,
        LogRequestID: true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            attrs := []any{
                "method", v.Method,
                "path", v.URIPath,
                "status", v.Status,
                "latency_ms", v.Latency.Round(time.Microsecond).Seconds() * 1000,
                "request_id", v.RequestID,
            }
            if uid := UserID(c); uid != "" {
                attrs = append(attrs, "user_id", uid)
            }
            switch {
            case v.Error != nil || v.Status >= 500:
                if v.Error != nil {
                    attrs = append(attrs, "err", v.Error)
                }
                logger.Error("http.request", attrs...)
            case v.Status >= 400:
                logger.Warn("http.request", attrs...)
            default:
                logger.Info("http.request", attrs...)
            }
            return nil
        },
    })
}
