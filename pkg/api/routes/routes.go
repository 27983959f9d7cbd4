package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/youroute/pkg/tracking"
)

func RoutesRouter(router fiber.Router, service *tracking.Service) {
	router.Get("/", func(c *fiber.Ctx) error {
		routes, err := service.GetRoutes(c.UserContext())
		if err != nil {
			return sendServiceError(c, err)
		}

		return sendProjected(c, routes, "basic")
	})

	router.Get("/:identifier", func(c *fiber.Ctx) error {
		route, err := service.GetRoute(c.UserContext(), c.Params("identifier"))
		if err != nil {
			return sendServiceError(c, err)
		}

		return sendProjected(c, route, "basic", "detailed")
	})
}
