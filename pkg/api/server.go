package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/travigo/youroute/pkg/api/routes"
	"github.com/travigo/youroute/pkg/tracking"
)

type Dependencies struct {
	Tracking *tracking.Service

	// Auth guards the account and vehicle routes. Without it they answer 401.
	Auth fiber.Handler

	// Publisher is optional
	Publisher routes.LocationPublisher

	// Metrics is served on /metrics when set
	Metrics prometheus.Gatherer
}

func NewApp(deps Dependencies) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	if deps.Metrics != nil {
		webApp.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	auth := deps.Auth
	if auth == nil {
		auth = func(c *fiber.Ctx) error {
			c.Status(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Authentication is not configured",
			})
		}
	}

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.StopsRouter(group.Group("/stops"), deps.Tracking)
	routes.RoutesRouter(group.Group("/routes"), deps.Tracking)
	routes.VehiclesRouter(group.Group("/vehicles", auth), deps.Tracking, deps.Publisher)
	routes.AccountRouter(group.Group("/account", auth), deps.Tracking)

	return webApp
}

func SetupServer(listen string, deps Dependencies) error {
	return NewApp(deps).Listen(listen)
}
