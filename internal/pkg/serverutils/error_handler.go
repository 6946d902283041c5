package serverutils

import (
	"errors"

	"sharecycle-be/internal/pkg/apperror"
	"sharecycle-be/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware is installed as fiber's ErrorHandler. Domain errors keep
// their code and reason; anything unrecognised becomes a 500 without leaking
// the underlying message.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return ctx.Status(appErr.HTTPStatus()).JSON(AppErrorResponse(appErr))
		}

		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			body := AppErrorResponse(
				apperror.Validation(apperror.ReasonInvalidPayload, "request payload is invalid").
					WithDetail("fields", ValidationDetails(validationErrs)),
			)
			return ctx.Status(fiber.StatusBadRequest).JSON(body)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		if log != nil {
			log.Error("HTTP", "unhandled error", map[string]interface{}{
				"error":  err.Error(),
				"method": ctx.Method(),
				"path":   ctx.Path(),
			})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "internal server error"))
	}
}
