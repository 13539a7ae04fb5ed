package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appcontext "github.com/tony-angelo/aletheia-codex/pkg/context"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
)

// Logger emits one structured line per request. Review decisions are audited
// through these lines, so the authenticated user and trace id ride along
// whenever they are present.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			ctx := c.Request().Context()
			fields := map[string]interface{}{
				"request_id":    appcontext.GetRequestID(ctx),
				"method":        req.Method,
				"uri":           req.RequestURI,
				"route":         c.Path(),
				"status":        res.Status,
				"remote_ip":     c.RealIP(),
				"user_agent":    req.UserAgent(),
				"response_time": time.Since(start),
				"response_size": res.Size,
			}
			if userID := appcontext.GetUserID(ctx); userID != "" {
				fields["user_id"] = userID
			}
			if traceID := tracing.GetTraceID(ctx); traceID != "" {
				fields["trace_id"] = traceID
			}

			logger.WithContext(ctx).WithFields(fields).Info("Request")

			return nil
		}
	}
}
