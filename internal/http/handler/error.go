package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"quotegen/internal/http/middleware"
)

// errorPayload is the body of every non-2xx JSON response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx returns the id set by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if s, ok := c.Locals(middleware.RequestIDLocalKey).(string); ok {
		return s
	}
	return middleware.RequestIDFromContext(c.UserContext())
}

// writeError writes the error envelope. code is machine readable
// (INVALID_ID, NO_ITEMS, ...); message must never carry internal details.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

var statusCodes = map[int]struct{ code, message string }{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed"},
	fiber.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", "request body too large"},
	fiber.StatusUnsupportedMediaType:  {"UNSUPPORTED_MEDIA_TYPE", "unsupported media type"},
}

// ErrorHandler is the global Fiber error handler. Unexpected errors are logged
// and answered with INTERNAL_ERROR.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		if m, ok := statusCodes[status]; ok {
			return writeError(c, status, m.code, m.message)
		}
		if status >= fiber.StatusInternalServerError {
			slog.Default().Error("http.unhandled",
				"request_id", requestIDFromCtx(c),
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
		}
		return writeError(c, status, "INTERNAL_ERROR", "internal server error")
	}
}
