package serverutils

import (
	"errors"

	"ai-quiz-generator-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON responses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, label := StatusFor(err)
		return ctx.Status(code).JSON(LabeledErrorResponse(code, label, err.Error()))
	}
}

// StatusFor maps an error to its HTTP status and label.
func StatusFor(err error) (int, string) {
	var (
		fiberErr   *fiber.Error
		requestErr *RequestValidationError
		labeled    service.LabeledError
	)

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, ""
	case errors.As(err, &requestErr):
		return fiber.StatusBadRequest, "ValidationError"
	case errors.As(err, &labeled):
		return statusForLabel(labeled.Label()), labeled.Label()
	default:
		return fiber.StatusInternalServerError, ""
	}
}

func statusForLabel(label string) int {
	switch label {
	case "ValidationError":
		return fiber.StatusBadRequest
	case "ConflictError":
		return fiber.StatusConflict
	case "NotFoundError":
		return fiber.StatusNotFound
	case "CoordinationUnavailableError":
		return fiber.StatusServiceUnavailable
	case "GenerationError":
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
