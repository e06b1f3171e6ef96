package routes

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/voyago/voyago/pkg/database"
	"github.com/voyago/voyago/pkg/travel"
	"github.com/voyago/voyago/pkg/traveltime"
	"github.com/voyago/voyago/pkg/util"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TripsRouter(router fiber.Router) {
	router.Post("/", createTrip)
	router.Get("/", listTrips)
	router.Delete("/:identifier", deleteTrip)
}

// tripRecord is the stored shape. Times are BSON datetimes so Mongo can
// index and range over them; epoch seconds only exist outside the store.
type tripRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty"`

	UserID string `bson:"userid"`

	Mode        string `bson:"mode"`
	Origin      string `bson:"origin"`
	Destination string `bson:"destination"`

	DepartureTime time.Time `bson:"departuretime"`
	ArrivalTime   time.Time `bson:"arrivaltime"`
	Duration      int64     `bson:"duration"`

	DepartureTimezone string `bson:"departuretimezone,omitempty"`

	TransitStops []string               `bson:"transitstops,omitempty"`
	Schedule     []travel.ScheduleEntry `bson:"schedule,omitempty"`

	TicketProviderURL string `bson:"ticketproviderurl,omitempty"`

	DestinationLocation *travel.Location `bson:"destinationlocation,omitempty"`

	CreationDateTime time.Time `bson:"creationdatetime"`
}

// tripBody is the wire shape shared by request and response
type tripBody struct {
	ID string `json:"id,omitempty"`

	Mode        string `json:"mode"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Duration      int64  `json:"duration"`

	DepartureTimezone string `json:"departureTimezone,omitempty"`

	TransitStops []string               `json:"transitStops,omitempty"`
	Schedule     []travel.ScheduleEntry `json:"schedule,omitempty"`

	TicketProviderURL string `json:"ticketProviderUrl,omitempty"`

	DestinationLocation *travel.Location `json:"destinationLocation,omitempty"`
}

func recordToBody(record tripRecord) tripBody {
	return tripBody{
		ID: record.ID.Hex(),

		Mode:        record.Mode,
		Origin:      record.Origin,
		Destination: record.Destination,

		DepartureTime: traveltime.ToISO(record.DepartureTime.Unix()),
		ArrivalTime:   traveltime.ToISO(record.ArrivalTime.Unix()),
		Duration:      record.Duration,

		DepartureTimezone: record.DepartureTimezone,

		TransitStops: record.TransitStops,
		Schedule:     record.Schedule,

		TicketProviderURL: record.TicketProviderURL,

		DestinationLocation: record.DestinationLocation,
	}
}

func createTrip(c *fiber.Ctx) error {
	userID, _ := c.Locals("account_userid").(string)
	if userID == "" {
		c.SendStatus(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{
			"error": "No userid set",
		})
	}

	var requestBody tripBody
	if err := c.BodyParser(&requestBody); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body could not be parsed",
		})
	}

	if requestBody.Mode == "" || requestBody.Origin == "" || requestBody.Destination == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Fields mode, origin and destination are required",
		})
	}

	departureEpoch, err := traveltime.FromISO(requestBody.DepartureTime)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Field departureTime should be an ISO8601 instant",
		})
	}

	arrivalEpoch, err := traveltime.FromISO(requestBody.ArrivalTime)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Field arrivalTime should be an ISO8601 instant",
		})
	}

	if requestBody.Duration <= 0 || arrivalEpoch <= departureEpoch {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Arrival must be after departure with a positive duration",
		})
	}

	record := tripRecord{
		UserID: userID,

		Mode:        requestBody.Mode,
		Origin:      requestBody.Origin,
		Destination: requestBody.Destination,

		DepartureTime: time.Unix(departureEpoch, 0).UTC(),
		ArrivalTime:   time.Unix(arrivalEpoch, 0).UTC(),
		Duration:      requestBody.Duration,

		DepartureTimezone: requestBody.DepartureTimezone,

		TransitStops: requestBody.TransitStops,
		Schedule:     requestBody.Schedule,

		TicketProviderURL: requestBody.TicketProviderURL,

		DestinationLocation: requestBody.DestinationLocation,

		CreationDateTime: time.Now().UTC(),
	}

	tripsCollection := database.GetCollection("trips")

	insertResult, err := tripsCollection.InsertOne(context.Background(), record)
	if err != nil {
		log.Error().Err(err).Msg("Inserting trip")

		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Trip could not be saved",
		})
	}

	record.ID = insertResult.InsertedID.(primitive.ObjectID)

	c.SendStatus(fiber.StatusCreated)
	return c.JSON(recordToBody(record))
}

func listTrips(c *fiber.Ctx) error {
	userID, _ := c.Locals("account_userid").(string)
	if userID == "" {
		c.SendStatus(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{
			"error": "No userid set",
		})
	}

	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter limit should be an integer",
		})
	}

	filterDateString := c.Query("date")
	var filterDate time.Time
	if filterDateString != "" {
		filterDate, err = time.Parse(time.DateOnly, filterDateString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter date should be YYYY-MM-DD",
			})
		}
	}

	tripsCollection := database.GetCollection("trips")

	opts := options.Find().
		SetSort(bson.D{{Key: "departuretime", Value: 1}}).
		SetLimit(int64(limit))

	filter := bson.M{"userid": userID}
	if filterDateString != "" {
		// Restrict the query itself to the day so the limit cannot cut off
		// matching trips. The window is widened by a day on each side
		// because the calendar day is evaluated in each trip's origin
		// timezone, which can put its UTC departure on a neighbouring date.
		filter["departuretime"] = bson.M{
			"$gte": filterDate.AddDate(0, 0, -1),
			"$lt":  filterDate.AddDate(0, 0, 2),
		}
	}

	cursor, err := tripsCollection.Find(context.Background(), filter, opts)
	if err != nil {
		log.Error().Err(err).Msg("Listing trips")

		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Trips could not be loaded",
		})
	}

	bodies := []tripBody{}

	for cursor.Next(context.TODO()) {
		var record tripRecord
		if err := cursor.Decode(&record); err != nil {
			log.Error().Err(err).Msg("Decoding trip record")
			continue
		}

		if filterDateString != "" && !tripOnCalendarDay(record, filterDate) {
			continue
		}

		bodies = append(bodies, recordToBody(record))
	}

	return c.JSON(bodies)
}

// The date filter is evaluated in the trip's own origin timezone, not the
// viewer's
func tripOnCalendarDay(record tripRecord, date time.Time) bool {
	location := time.UTC

	if record.DepartureTimezone != "" {
		if loaded, err := time.LoadLocation(record.DepartureTimezone); err == nil {
			location = loaded
		}
	}

	return util.SameCalendarDay(record.DepartureTime, date, location)
}

func deleteTrip(c *fiber.Ctx) error {
	userID, _ := c.Locals("account_userid").(string)
	if userID == "" {
		c.SendStatus(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{
			"error": "No userid set",
		})
	}

	tripID, err := primitive.ObjectIDFromHex(c.Params("identifier"))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Trip identifier is not valid",
		})
	}

	tripsCollection := database.GetCollection("trips")

	// Scoping the delete by userid enforces ownership; deleting another
	// user's trip looks identical to deleting a missing one
	deleteResult, err := tripsCollection.DeleteOne(context.Background(), bson.M{
		"_id":    tripID,
		"userid": userID,
	})
	if err != nil {
		log.Error().Err(err).Msg("Deleting trip")

		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Trip could not be deleted",
		})
	}

	if deleteResult.DeletedCount == 0 {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Trip matching Trip Identifier",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
