package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/tracking"
)

func sendError(c *fiber.Ctx, status int, message string) error {
	c.Status(status)
	return c.JSON(fiber.Map{
		"error": message,
	})
}

// sendServiceError maps tracking errors onto HTTP statuses
func sendServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tracking.ErrInvalidArgument):
		return sendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, tracking.ErrRouteNotFound):
		return sendError(c, fiber.StatusNotFound, "Could not find Route matching Route Identifier")
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")

	return sendError(c, fiber.StatusInternalServerError, "Internal error")
}

// sendProjected reduces data to the given sheriff groups before sending it
func sendProjected(c *fiber.Ctx, data interface{}, groups ...string) error {
	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, data)
	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, "Sherrif could not reduce response")
	}

	return c.JSON(reduced)
}
