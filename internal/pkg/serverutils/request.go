package serverutils

import (
	"sharecycle-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// normalizer is implemented by payloads that clean up their input before
// validation.
type normalizer interface {
	Normalize()
}

// ParseBody decodes the JSON body into out, normalizes and validates it.
func ParseBody(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		return apperror.Validation(apperror.ReasonInvalidPayload, "request body is not valid JSON").WithCause(err)
	}
	if n, ok := out.(normalizer); ok {
		n.Normalize()
	}
	return ValidateRequest(out)
}

// ParseQuery binds and validates query string parameters.
func ParseQuery(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.QueryParser(out); err != nil {
		return apperror.Validation(apperror.ReasonInvalidPayload, "query string is invalid").WithCause(err)
	}
	return ValidateRequest(out)
}

// ParamUUID reads a path parameter that must be a UUID.
func ParamUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, apperror.Validation(apperror.ReasonInvalidPayload, "invalid "+name).WithDetail(name, ctx.Params(name))
	}
	return id, nil
}
