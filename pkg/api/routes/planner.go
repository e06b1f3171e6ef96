package routes

import (
	"encoding/json"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/voyago/voyago/pkg/places"
	"github.com/voyago/voyago/pkg/planner"
	"github.com/voyago/voyago/pkg/travel"
)

func PlannerRouter(router fiber.Router, searchPlanner *planner.Planner) {
	router.Get("/:origin/:destination", getJourneyPlan(searchPlanner))
}

func getJourneyPlan(searchPlanner *planner.Planner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin, err := url.QueryUnescape(c.Params("origin"))
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Origin could not be decoded",
			})
		}

		destination, err := url.QueryUnescape(c.Params("destination"))
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Destination could not be decoded",
			})
		}

		departureLocal := c.Query("datetime")
		if departureLocal == "" {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter datetime is required (YYYY-MM-DDTHH:mm, origin local time)",
			})
		}

		mode := travel.ParseTransportMode(c.Query("mode", "bus"))
		if mode == travel.TransportModeUnknown {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter mode should be bus or train",
			})
		}

		result, err := searchPlanner.Search(c.Context(), planner.SearchRequest{
			Origin:         origin,
			Destination:    destination,
			DepartureLocal: departureLocal,
			Mode:           mode,
		})

		if err != nil {
			return journeyPlanError(c, searchPlanner, err)
		}

		resultReduced, err := sheriff.Marshal(&sheriff.Options{
			Groups: []string{"basic"},
		}, result)
		if err != nil {
			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Sherrif could not reduce SearchResult",
			})
		}

		return c.JSON(resultReduced)
	}
}

// The empty outcomes stay distinct because the user remediation differs:
// zero results means adjust the locations, no matching journeys means adjust
// the time or mode.
func journeyPlanError(c *fiber.Ctx, searchPlanner *planner.Planner, err error) error {
	switch {
	case errors.Is(err, places.ErrNotFound):
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "One of the locations could not be found",
			"map":   searchPlanner.MapContext(),
		})
	case errors.Is(err, planner.ErrZeroResults):
		return c.JSON(fiber.Map{
			"journeys": []json.RawMessage{},
			"notice":   "No routes found between these locations",
		})
	case errors.Is(err, planner.ErrNoMatchingJourneys):
		return c.JSON(fiber.Map{
			"journeys": []json.RawMessage{},
			"notice":   "No journeys matching your time and mode",
		})
	case errors.Is(err, places.ErrProviderUnavailable),
		errors.Is(err, places.ErrTimezoneUnavailable),
		errors.Is(err, planner.ErrQueryFailed):
		c.SendStatus(fiber.StatusBadGateway)
		return c.JSON(fiber.Map{
			"error": "Journey planning is temporarily unavailable",
		})
	default:
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
