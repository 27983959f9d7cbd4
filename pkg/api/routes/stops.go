package routes

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/youroute/pkg/tracking"
)

func StopsRouter(router fiber.Router, service *tracking.Service) {
	router.Get("/nearby", func(c *fiber.Ctx) error {
		return listNearbyStops(c, service)
	})
}

func listNearbyStops(c *fiber.Ctx, service *tracking.Service) error {
	latitude, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, "Parameter lat should be a number")
	}
	longitude, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, "Parameter lon should be a number")
	}

	var radiusKm *float64
	if radiusQuery := c.Query("radius"); radiusQuery != "" {
		radius, err := strconv.ParseFloat(radiusQuery, 64)
		if err != nil {
			return sendError(c, fiber.StatusBadRequest, "Parameter radius should be a number")
		}
		radiusKm = &radius
	}

	var stops interface{}
	if radiusKm == nil {
		stops, err = service.NearbyStops(c.UserContext(), latitude, longitude)
	} else {
		stops, err = service.NearbyStopsWithin(c.UserContext(), latitude, longitude, *radiusKm)
	}
	if err != nil {
		return sendServiceError(c, err)
	}

	return sendProjected(c, stops, "basic")
}
