package api

import (
	"errors"
	"log/slog"
	"omiweather/app/service/assistant"
	"omiweather/app/service/location"
	"omiweather/app/service/weather"

	"github.com/elliotchance/pie/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

func (s *Server) handleWebhook(c *fiber.Ctx) error {
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(statusResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
	}

	uid := utils.CopyString(c.Query("uid"))

	slog.Debug("Webhook received",
		"request_id", c.Locals(requestIDKey),
		"session_id", req.SessionID,
		"uid", uid,
		"segments", len(req.Segments))

	result, err := s.assistant.Handle(c.UserContext(), assistant.Request{
		SessionID: req.SessionID,
		UID:       uid,
		Segments: pie.Map(req.Segments, func(seg segment) string {
			return seg.Text
		}),
	})

	switch {
	case errors.Is(err, assistant.ErrMissingSessionID):
		slog.Warn("No session_id provided in request", "request_id", c.Locals(requestIDKey))
		return c.Status(fiber.StatusBadRequest).JSON(statusResponse{
			Status:  "error",
			Message: "No session_id provided",
		})
	case errors.Is(err, assistant.ErrLocationExtraction):
		slog.Warn("Failed to extract valid city and country from the question",
			"session_id", req.SessionID,
			"question", result.Question,
			"error", err)
		return c.Status(fiber.StatusBadRequest).JSON(statusResponse{
			Status:  "error",
			Message: "Invalid location extracted",
		})
	case errors.Is(err, assistant.ErrProviderFailure):
		slog.Error("Weather forecast failed",
			"session_id", req.SessionID,
			"location", result.Location.String(),
			"error", err)
		return c.Status(fiber.StatusBadGateway).JSON(statusResponse{
			Status:  "error",
			Message: "Weather forecast is unavailable",
		})
	case err != nil:
		return err
	}

	if result.Message == "" {
		return c.JSON(statusResponse{Status: "success"})
	}

	return c.JSON(messageResponse{Message: result.Message})
}

func (s *Server) handleSetupStatus(c *fiber.Ctx) error {
	return c.JSON(setupStatusResponse{IsSetupCompleted: true})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(serviceStatusResponse{
		ActiveSessions: s.assistant.ActiveSessions(),
		Uptime:         s.now().Sub(s.started).Seconds(),
	})
}

func (s *Server) handleWeather(c *fiber.Ctx) error {
	query := c.Query("location")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "Location is required"})
	}

	loc, err := location.Parse(query)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "Invalid location format. Use 'City, Country'",
		})
	}

	text, err := s.forecaster.Forecast(c.UserContext(), loc.City, loc.Country)
	switch {
	case errors.Is(err, weather.ErrLocationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "Location not found"})
	case err != nil:
		slog.Error("Weather forecast failed",
			"location", loc.String(),
			"error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	}

	return c.JSON(forecastResponse{Forecast: text})
}
