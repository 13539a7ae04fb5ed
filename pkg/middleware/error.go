package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

// MetaErrorCode lets a handler attach an explicit envelope error code to an
// httperror via its meta. Without it the code is derived from the status.
const MetaErrorCode = "error_code"

func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		logger.WithContext(ctx).WithError(err).Error("api is returning an error")
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Internal Server Error"
		meta := map[string]any{}

		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
		}

		if httperror.IsHTTPError(err) {
			httperr := httperror.ToHTTPError(err)
			status = httperror.GetStatusCode(err)
			message = httperr.Error()
			meta = httperr.Meta
		}

		code := errorCode(status, meta)

		_ = c.JSON(status, models.NewErrorResponse(code, message))
	}
}

func errorCode(status int, meta map[string]any) string {
	if override, ok := meta[MetaErrorCode].(string); ok && override != "" {
		return override
	}

	switch status {
	case http.StatusBadRequest:
		return models.ErrCodeInvalidRequest
	case http.StatusUnauthorized:
		return models.ErrCodeUnauthorized
	case http.StatusForbidden:
		return models.ErrCodeForbidden
	case http.StatusNotFound:
		return models.ErrCodeNotFound
	default:
		return models.ErrCodeInternalError
	}
}
