package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	requestID := c.Get(fiber.HeaderXRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(fiber.HeaderXRequestID, requestID)
	c.Locals(requestIDKey, requestID)

	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
	}

	slog.Info("Request handled",
		"request_id", requestID,
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start))

	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(statusResponse{
			Status:  "error",
			Message: fiberErr.Message,
		})
	}

	slog.Error("Unhandled request error",
		"request_id", c.Locals(requestIDKey),
		"path", c.Path(),
		"error", err)

	return c.Status(fiber.StatusInternalServerError).JSON(statusResponse{
		Status:  "error",
		Message: utils.StatusMessage(fiber.StatusInternalServerError),
	})
}
