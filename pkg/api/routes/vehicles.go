package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
	"github.com/travigo/youroute/pkg/livefeed"
	"github.com/travigo/youroute/pkg/tracking"
)

// LocationPublisher announces accepted positions. *livefeed.Client satisfies it.
type LocationPublisher interface {
	SendVehicleLocation(vehicle ctdf.Vehicle) error
}

type vehicleLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Heading   float64  `json:"heading"`
	Speed     float64  `json:"speed"`
}

func VehiclesRouter(router fiber.Router, service *tracking.Service, publisher LocationPublisher) {
	router.Put("/:identifier/location", func(c *fiber.Ctx) error {
		vehicleID := c.Params("identifier")

		var requestBody vehicleLocationRequest
		if err := c.BodyParser(&requestBody); err != nil {
			return sendError(c, fiber.StatusBadRequest, "Could not parse request body")
		}
		if requestBody.Latitude == nil || requestBody.Longitude == nil {
			return sendError(c, fiber.StatusBadRequest, "latitude and longitude are required")
		}

		err := service.UpdateVehicleLocation(c.UserContext(), vehicleID, *requestBody.Latitude, *requestBody.Longitude, requestBody.Heading, requestBody.Speed)
		if err != nil {
			return sendServiceError(c, err)
		}

		if publisher != nil {
			vehicle := ctdf.Vehicle{
				ID:       vehicleID,
				Location: ctdf.GeoPoint{Latitude: *requestBody.Latitude, Longitude: *requestBody.Longitude},
				Heading:  requestBody.Heading,
				Speed:    requestBody.Speed,
				Status:   ctdf.VehicleStatusActive,
			}
			if err := publisher.SendVehicleLocation(vehicle); err != nil && !errors.Is(err, livefeed.ErrNotConnected) {
				log.Warn().Err(err).Str("vehicle", vehicleID).Msg("Failed to publish vehicle location")
			}
		}

		return c.JSON(fiber.Map{
			"success": true,
		})
	})
}
