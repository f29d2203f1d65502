package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorMapper translates a domain error to an HTTP status. ok is false when
// the mapper does not recognise err.
type ErrorMapper func(err error) (status int, ok bool)

// StatusFor resolves the status of err: fiber errors keep their code,
// validation errors are 400, then mappers are consulted in order. Anything
// else is a 500.
func StatusFor(err error, mappers ...ErrorMapper) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest
	}
	for _, m := range mappers {
		if status, ok := m(err); ok {
			return status
		}
	}
	return fiber.StatusInternalServerError
}

// ErrorHandlerMiddleware turns errors returned by later handlers into the
// JSON error envelope.
func ErrorHandlerMiddleware(mappers ...ErrorMapper) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err, mappers...)
	}
}

// WriteError writes err as the JSON error envelope. Internal errors are not
// echoed to the client.
func WriteError(ctx *fiber.Ctx, err error, mappers ...ErrorMapper) error {
	status := StatusFor(err, mappers...)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "internal server error"
	}
	return ctx.Status(status).JSON(ErrorResponse(status, message))
}
