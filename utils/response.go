// utils/response.go
package utils

import "github.com/gofiber/fiber/v2"

// Every endpoint answers with the same envelope:
//
//	{ "success": true,  "message": "...", "data": ... }
//	{ "success": false, "error": { "code": "...", "message": "...", "details": "..." } }

func OK(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func Fail(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(StatusForCode(appErr.Code)).JSON(fiber.Map{
		"success": false,
		"error":   appErr,
	})
}

func FailCode(c *fiber.Ctx, code ErrorCode, message string) error {
	return Fail(c, NewError(code, message))
}
