package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/koolihub/koolihub/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int      `json:"status"`
	Code      string   `json:"code"`    // bad_request, not_found, conflict, unprocessable, internal_error
	Message   string   `json:"message"` // Human-readable message
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string, details ...string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// respondError maps domain errors onto HTTP statuses. Anything unknown is
// logged and reported as a 500 without leaking its text.
func respondError(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return newError(c, 422, "unprocessable", "booking request is invalid", ve.Problems...)
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrSeatsUnavailable),
		errors.Is(err, domain.ErrBookingNotCancellable),
		errors.Is(err, domain.ErrTripNotBookable):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrInvalidBooking), errors.Is(err, domain.ErrInvalidSearch):
		return errBadRequest(c, err.Error())
	}

	LoggerFromCtx(c.UserContext()).Error("request failed", slog.String("path", c.Path()), slog.String("error", err.Error()))
	return errInternal(c, "internal error")
}
