package utils

import "github.com/gofiber/fiber/v2"

// Envelope shared by every endpoint: the status code repeated in the body
// plus a response object that always carries a message.
func Respond(ctx *fiber.Ctx, status int, message string, payload fiber.Map) error {
	response := fiber.Map{"message": message}
	for k, v := range payload {
		response[k] = v
	}
	return ctx.Status(status).JSON(fiber.Map{
		"status":   status,
		"response": response,
	})
}

func ResponseError(ctx *fiber.Ctx, status int, msg string) error {
	return Respond(ctx, status, msg, nil)
}

func ResponseSuccess(ctx *fiber.Ctx, status int, msg string, payload fiber.Map) error {
	return Respond(ctx, status, msg, payload)
}
