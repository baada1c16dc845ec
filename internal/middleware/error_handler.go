package middleware

import (
	"errors"
	"net/http"
	"novaReco/internal/rest"
	"novaReco/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors that escaped a handler, including echo's own
// routing and binding errors, in the API's error shape.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(status)
		}
	} else {
		logger.Error("unhandled error", "path", c.Path(), "request_id", RequestIDFrom(c), "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, rest.ResponseError{Message: message})
	}
	if err != nil {
		logger.Error("failed to write error response", "error", err)
	}
}
