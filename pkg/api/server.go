package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/voyago/voyago/pkg/api/routes"
	"github.com/voyago/voyago/pkg/planner"
)

func SetupServer(listen string, searchPlanner *planner.Planner) error {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.PlannerRouter(group.Group("/planner"), searchPlanner)

	routes.TripsRouter(group.Group("/trips", EnsureValidToken()))

	return webApp.Listen(listen)
}
