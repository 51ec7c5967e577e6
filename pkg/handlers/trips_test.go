package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flowroute/pkg/envelope"
	"flowroute/pkg/hub"
	"flowroute/pkg/middleware"
	"flowroute/pkg/models"
	"flowroute/pkg/trips"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

type fakeConn struct {
	messages [][]byte
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func newTestApp() (*fiber.App, *trips.Registry, *hub.Hub) {
	registry := trips.NewRegistry()
	wsHub := hub.New(nil)
	handler := NewTrips(registry, wsHub, nil)

	app := fiber.New()
	api := app.Group("/api")
	tripGroup := api.Group("/trips")
	tripGroup.Get("/", handler.List)
	tripGroup.Get("/available", middleware.Auth(testSecret), handler.Available)
	tripGroup.Get("/:id", handler.Get)
	tripGroup.Post("/", middleware.Auth(testSecret), handler.Create)

	return app, registry, wsHub
}

func signToken(t *testing.T, userID int, uuid, name string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID,
		"uuid":    uuid,
		"name":    name,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestCreateTripFlow(t *testing.T) {
	app, _, wsHub := newTestApp()

	// A client connected before the creation must receive exactly one
	// tripCreated event carrying the same record the creator got back.
	watcher := &fakeConn{}
	wsHub.Register(watcher, 0, "", "")

	token := signToken(t, 1, "u-1", "John Doe")
	body := `{"vehicleType":"4-wheeler","from":"A","to":"B","date":"2024-03-20","time":"10:00","seats":3,"costPerPerson":25}`

	resp, data := doJSON(t, app, "POST", "/api/trips/", token, body)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, data)
	}

	var created models.Trip
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected non-empty id")
	}
	if created.Status != models.TripStatusActive {
		t.Fatalf("expected active, got %s", created.Status)
	}
	if created.Passengers == nil || len(created.Passengers) != 0 {
		t.Fatalf("expected empty passengers, got %v", created.Passengers)
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("expected createdAt to be set")
	}
	if created.Driver.ID != "u-1" || created.Driver.Name != "John Doe" {
		t.Fatalf("driver not taken from token, got %+v", created.Driver)
	}

	if len(watcher.messages) != 1 {
		t.Fatalf("expected exactly 1 broadcast, got %d", len(watcher.messages))
	}
	env, err := envelope.Unmarshal(watcher.messages[0])
	if err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if env.Event != hub.EventTripCreated {
		t.Fatalf("expected tripCreated event, got %s", env.Event)
	}
	broadcastTrip, err := envelope.ParseData[models.Trip](env)
	if err != nil {
		t.Fatalf("parse broadcast data: %v", err)
	}
	if broadcastTrip.ID != created.ID || broadcastTrip.From != created.From ||
		broadcastTrip.Seats != created.Seats || !broadcastTrip.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("broadcast record differs from response:\n%+v\n%+v", broadcastTrip, created)
	}

	// The new trip must show up in the full listing.
	resp, data = doJSON(t, app, "GET", "/api/trips/", "", "")
	if resp.StatusCode != 200 {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var list []models.Trip
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("created trip missing from list: %+v", list)
	}

	// Fetch by id, then an unknown id.
	resp, _ = doJSON(t, app, "GET", "/api/trips/"+created.ID, "", "")
	if resp.StatusCode != 200 {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	resp, data = doJSON(t, app, "GET", "/api/trips/does-not-exist", "", "")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d: %s", resp.StatusCode, data)
	}
}

func TestCreateTripRequiresAuth(t *testing.T) {
	app, _, _ := newTestApp()

	resp, _ := doJSON(t, app, "POST", "/api/trips/", "", `{"from":"A","to":"B"}`)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestListOrderAfterManyCreations(t *testing.T) {
	app, _, _ := newTestApp()
	token := signToken(t, 1, "u-1", "John Doe")

	var ids []string
	for i := 0; i < 4; i++ {
		_, data := doJSON(t, app, "POST", "/api/trips/", token,
			`{"vehicleType":"2-wheeler","from":"X","to":"Y","seats":1,"costPerPerson":5}`)
		var trip models.Trip
		if err := json.Unmarshal(data, &trip); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		ids = append(ids, trip.ID)
	}

	_, data := doJSON(t, app, "GET", "/api/trips/", "", "")
	var list []models.Trip
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 trips, got %d", len(list))
	}
	for i, trip := range list {
		if trip.ID != ids[i] {
			t.Fatalf("creation order broken at %d: want %s got %s", i, ids[i], trip.ID)
		}
	}
}

func TestAvailableExcludesCaller(t *testing.T) {
	app, registry, _ := newTestApp()

	registry.Create(models.CreateTripRequest{From: "A", To: "B", Seats: 2},
		models.DriverRef{ID: "u-1", Name: "John Doe"})
	registry.Create(models.CreateTripRequest{From: "B", To: "C", Seats: 2},
		models.DriverRef{ID: "u-2", Name: "Jane"})

	token := signToken(t, 1, "u-1", "John Doe")
	resp, data := doJSON(t, app, "GET", "/api/trips/available", token, "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var list []models.Trip
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 1 || list[0].Driver.ID != "u-2" {
		t.Fatalf("expected only the other driver's trip, got %+v", list)
	}
}
