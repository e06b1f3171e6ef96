package routes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/voyago/voyago/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// newTripsTestApp seeds the owner identity the way the JWT middleware does
func newTripsTestApp(userID string) *fiber.App {
	app := fiber.New()

	group := app.Group("/trips", func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("account_userid", userID)
		}

		return c.Next()
	})

	TripsRouter(group)

	return app
}

func validTripBody() tripBody {
	return tripBody{
		Mode:        "Bus",
		Origin:      "Copenhagen",
		Destination: "Aarhus",

		DepartureTime: "2023-11-14T22:13:20Z",
		ArrivalTime:   "2023-11-15T01:13:20Z",
		Duration:      10800,

		DepartureTimezone: "Europe/Copenhagen",
	}
}

func postTrip(t *testing.T, app *fiber.App, body tripBody) (int, []byte) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	request := httptest.NewRequest("POST", "/trips", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")

	response, err := app.Test(request)
	if err != nil {
		t.Fatal(err)
	}

	var responseBody bytes.Buffer
	if _, err := responseBody.ReadFrom(response.Body); err != nil {
		t.Fatal(err)
	}

	return response.StatusCode, responseBody.Bytes()
}

func TestTrips_RequireAuthenticatedUser(t *testing.T) {
	app := newTripsTestApp("")

	payload, _ := json.Marshal(validTripBody())

	for name, target := range map[string][2]string{
		"create": {"POST", "/trips"},
		"list":   {"GET", "/trips"},
		"delete": {"DELETE", "/trips/" + primitive.NewObjectID().Hex()},
	} {
		request := httptest.NewRequest(target[0], target[1], bytes.NewReader(payload))
		request.Header.Set("Content-Type", "application/json")

		response, err := app.Test(request)
		if err != nil {
			t.Fatal(err)
		}
		if response.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("%s without identity: status = %d, want 401", name, response.StatusCode)
		}
	}
}

func TestCreateTrip_Validation(t *testing.T) {
	app := newTripsTestApp("user-1")

	cases := map[string]func(*tripBody){
		"missing origin":           func(b *tripBody) { b.Origin = "" },
		"missing mode":             func(b *tripBody) { b.Mode = "" },
		"bad departure instant":    func(b *tripBody) { b.DepartureTime = "yesterday" },
		"bad arrival instant":      func(b *tripBody) { b.ArrivalTime = "1700010800" },
		"arrival before departure": func(b *tripBody) { b.ArrivalTime = "2023-11-14T20:13:20Z" },
		"non-positive duration":    func(b *tripBody) { b.Duration = 0 },
	}

	for name, mutate := range cases {
		body := validTripBody()
		mutate(&body)

		status, _ := postTrip(t, app, body)
		if status != fiber.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, status)
		}
	}
}

func TestTripsHandlers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	useMockDatabase := func(mt *mtest.T) {
		database.MongoGlobalInstance = &database.MongoInstance{
			Client:   mt.Client,
			Database: mt.Client.Database("voyago"),
		}
	}

	mt.Run("create assigns an id and stores the owner", func(mt *mtest.T) {
		useMockDatabase(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		app := newTripsTestApp("user-1")

		status, responseBody := postTrip(mt.T, app, validTripBody())
		if status != fiber.StatusCreated {
			mt.Fatalf("status = %d, want 201", status)
		}

		var saved tripBody
		if err := json.Unmarshal(responseBody, &saved); err != nil {
			mt.Fatal(err)
		}
		if _, err := primitive.ObjectIDFromHex(saved.ID); err != nil {
			mt.Errorf("saved trip id %q is not an object id", saved.ID)
		}
		if saved.DepartureTime != "2023-11-14T22:13:20Z" {
			mt.Errorf("departure did not survive the round trip: %q", saved.DepartureTime)
		}

		started := mt.GetStartedEvent()
		if started == nil || started.CommandName != "insert" {
			mt.Fatal("no insert command issued")
		}

		document := started.Command.Lookup("documents").Array().Index(0).Value().Document()
		if owner := document.Lookup("userid").StringValue(); owner != "user-1" {
			mt.Errorf("stored owner = %q, want user-1", owner)
		}
	})

	mt.Run("list restricts the query to the requested day", func(mt *mtest.T) {
		useMockDatabase(mt)

		onPreviousLocalDay := tripRecordDocument("2023-11-14T22:13:20Z")  // 23:13 on the 14th in Copenhagen
		onRequestedLocalDay := tripRecordDocument("2023-11-14T23:30:00Z") // 00:30 on the 15th in Copenhagen

		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, "voyago.trips", mtest.FirstBatch, onPreviousLocalDay),
			mtest.CreateCursorResponse(1, "voyago.trips", mtest.NextBatch, onRequestedLocalDay),
			mtest.CreateCursorResponse(0, "voyago.trips", mtest.NextBatch),
		)

		app := newTripsTestApp("user-1")

		response, err := app.Test(httptest.NewRequest("GET", "/trips?date=2023-11-15", nil))
		if err != nil {
			mt.Fatal(err)
		}
		if response.StatusCode != fiber.StatusOK {
			mt.Fatalf("status = %d, want 200", response.StatusCode)
		}

		var bodies []tripBody
		if err := json.NewDecoder(response.Body).Decode(&bodies); err != nil {
			mt.Fatal(err)
		}

		// Only the trip whose origin-local calendar day matches survives,
		// even though its UTC departure falls on the 14th
		if len(bodies) != 1 {
			mt.Fatalf("listed %d trips, want 1", len(bodies))
		}
		if bodies[0].DepartureTime != "2023-11-14T23:30:00Z" {
			mt.Errorf("kept the wrong trip: %q", bodies[0].DepartureTime)
		}

		started := mt.GetStartedEvent()
		if started == nil || started.CommandName != "find" {
			mt.Fatal("no find command issued")
		}

		filter := started.Command.Lookup("filter").Document()
		if owner := filter.Lookup("userid").StringValue(); owner != "user-1" {
			mt.Errorf("find filter owner = %q, want user-1", owner)
		}

		// The day restriction must be part of the query itself, otherwise
		// the record limit can cut off matching trips in a long history
		if _, err := filter.LookupErr("departuretime"); err != nil {
			mt.Error("find filter does not restrict by departure window")
		}
	})

	mt.Run("delete of a missing or foreign id is a 404", func(mt *mtest.T) {
		useMockDatabase(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		app := newTripsTestApp("user-1")

		response, err := app.Test(httptest.NewRequest("DELETE", "/trips/"+primitive.NewObjectID().Hex(), nil))
		if err != nil {
			mt.Fatal(err)
		}
		if response.StatusCode != fiber.StatusNotFound {
			mt.Fatalf("status = %d, want 404", response.StatusCode)
		}

		started := mt.GetStartedEvent()
		if started == nil || started.CommandName != "delete" {
			mt.Fatal("no delete command issued")
		}

		// Ownership is enforced inside the delete itself; a foreign id
		// matches nothing and looks identical to a missing one
		query := started.Command.Lookup("deletes").Array().Index(0).Value().Document().Lookup("q").Document()
		if owner := query.Lookup("userid").StringValue(); owner != "user-1" {
			mt.Errorf("delete query owner = %q, want user-1", owner)
		}
	})

	mt.Run("delete of a malformed id is a 400", func(mt *mtest.T) {
		useMockDatabase(mt)

		app := newTripsTestApp("user-1")

		response, err := app.Test(httptest.NewRequest("DELETE", "/trips/not-an-object-id", nil))
		if err != nil {
			mt.Fatal(err)
		}
		if response.StatusCode != fiber.StatusBadRequest {
			mt.Fatalf("status = %d, want 400", response.StatusCode)
		}
	})
}

func tripRecordDocument(departureISO string) bson.D {
	departure, _ := time.Parse(time.RFC3339, departureISO)

	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "userid", Value: "user-1"},
		{Key: "mode", Value: "Bus"},
		{Key: "origin", Value: "Copenhagen"},
		{Key: "destination", Value: "Aarhus"},
		{Key: "departuretime", Value: departure},
		{Key: "arrivaltime", Value: departure.Add(3 * time.Hour)},
		{Key: "duration", Value: int64(10800)},
		{Key: "departuretimezone", Value: "Europe/Copenhagen"},
		{Key: "creationdatetime", Value: departure},
	}
}
