package handlers

import (
	"log"

	"flowroute/pkg/envelope"
	"flowroute/pkg/hub"
	"flowroute/pkg/models"
	"flowroute/pkg/services"
	"flowroute/pkg/trips"

	"github.com/gofiber/fiber/v2"
)

type TripHandler struct {
	registry *trips.Registry
	hub      *hub.Hub
	users    services.UserService
}

func NewTrips(registry *trips.Registry, h *hub.Hub, users services.UserService) *TripHandler {
	return &TripHandler{registry: registry, hub: h, users: users}
}

// RegisterActions wires the websocket actions this handler serves. A
// trip sent over the socket goes through the registry like any other,
// so the registry stays the single source of truth.
func (h *TripHandler) RegisterActions() {
	h.hub.On("newTrip", func(cl hub.ClientInfo, env envelope.Envelope) {
		req, err := envelope.ParseData[models.CreateTripRequest](env)
		if err != nil {
			log.Printf("[TRIPS] bad newTrip payload from conn=%s: %v", cl.ConnID, err)
			return
		}
		driver := h.driverFromClient(cl)
		trip := h.registry.Create(req, driver)
		h.hub.Broadcast(hub.EventTripCreated, trip)
	})
}

// Create handles POST /api/trips.
func (h *TripHandler) Create(c *fiber.Ctx) error {
	var req models.CreateTripRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	trip := h.registry.Create(req, h.driverFromCtx(c))
	log.Printf("[TRIPS] created trip id=%s %s -> %s", trip.ID, trip.From, trip.To)

	// Broadcast after the store so every client sees the same record
	// the creator got back. Delivery is best-effort.
	h.hub.Broadcast(hub.EventTripCreated, trip)

	return c.Status(201).JSON(trip)
}

// List handles GET /api/trips.
func (h *TripHandler) List(c *fiber.Ctx) error {
	return c.JSON(h.registry.List())
}

// Available handles GET /api/trips/available: active trips with free
// seats, excluding the caller's own.
func (h *TripHandler) Available(c *fiber.Ctx) error {
	uuid, _ := c.Locals("user_uuid").(string)
	return c.JSON(h.registry.Available(uuid))
}

// Get handles GET /api/trips/:id.
func (h *TripHandler) Get(c *fiber.Ctx) error {
	trip, err := h.registry.Get(c.Params("id"))
	if err == trips.ErrTripNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "Trip not found"})
	}
	if err != nil {
		log.Printf("[TRIPS] get error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch trip"})
	}
	return c.JSON(trip)
}

// driverFromCtx denormalizes the authenticated user into a DriverRef.
// The avatar comes from the user record; when the lookup fails the
// token identity and the default avatar are used.
func (h *TripHandler) driverFromCtx(c *fiber.Ctx) models.DriverRef {
	userID, _ := c.Locals("user_id").(int)
	uuid, _ := c.Locals("user_uuid").(string)
	name, _ := c.Locals("user_name").(string)
	return h.driverRef(userID, uuid, name)
}

func (h *TripHandler) driverFromClient(cl hub.ClientInfo) models.DriverRef {
	return h.driverRef(cl.UserID, cl.UUID, cl.Name)
}

func (h *TripHandler) driverRef(userID int, uuid, name string) models.DriverRef {
	if h.users != nil && userID > 0 {
		if user, err := h.users.GetByID(userID); err == nil {
			return models.DriverRef{ID: user.UUID, Name: user.Name, Avatar: user.Avatar}
		}
	}
	return models.DriverRef{ID: uuid, Name: name, Avatar: models.DefaultAvatar}
}
