package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/youroute/pkg/tracking"
)

// UserIDLocal is the fiber local the auth middleware stores the subject in
const UserIDLocal = "account_userid"

func AccountRouter(router fiber.Router, service *tracking.Service) {
	router.Use(requireUser)

	router.Get("/favorites", func(c *fiber.Ctx) error {
		userID := c.Locals(UserIDLocal).(string)

		favorites, err := service.GetFavoriteRoutes(c.UserContext(), userID)
		if err != nil {
			return sendServiceError(c, err)
		}

		return c.JSON(fiber.Map{
			"favorites": favorites,
		})
	})

	router.Put("/favorites/:route", func(c *fiber.Ctx) error {
		userID := c.Locals(UserIDLocal).(string)

		if err := service.AddFavoriteRoute(c.UserContext(), userID, c.Params("route")); err != nil {
			return sendServiceError(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
		})
	})

	router.Delete("/favorites/:route", func(c *fiber.Ctx) error {
		userID := c.Locals(UserIDLocal).(string)

		if err := service.RemoveFavoriteRoute(c.UserContext(), userID, c.Params("route")); err != nil {
			return sendServiceError(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
		})
	})

	router.Post("/notificationtoken", func(c *fiber.Ctx) error {
		userID := c.Locals(UserIDLocal).(string)

		var requestBody struct {
			Token string
		}
		if err := c.BodyParser(&requestBody); err != nil {
			return sendError(c, fiber.StatusBadRequest, "Could not parse request body")
		}

		if requestBody.Token == "" {
			return sendError(c, fiber.StatusBadRequest, "No token set")
		}

		if err := service.SetPushToken(c.UserContext(), userID, requestBody.Token); err != nil {
			return sendServiceError(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
		})
	})
}

func requireUser(c *fiber.Ctx) error {
	if userID, _ := c.Locals(UserIDLocal).(string); userID == "" {
		return sendError(c, fiber.StatusUnauthorized, "No userid set")
	}

	return c.Next()
}
