package trips

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"flowroute/pkg/models"
)

var ErrTripNotFound = errors.New("trip not found")

// Registry is the authoritative in-memory trip store. It lives for the
// whole process and is the single owner of trip state: everything else
// only sees copies, either from List/Get or from broadcast events.
// Trips are not persisted and are lost on restart.
type Registry struct {
	mu     sync.Mutex
	trips  []models.Trip
	index  map[string]int
	lastID int64

	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// Create stores a new trip and returns the stored record. The id is the
// creation time in milliseconds, bumped when two creations land on the
// same millisecond so ids stay unique and strictly increasing.
func (r *Registry) Create(req models.CreateTripRequest, driver models.DriverRef) models.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id

	trip := models.Trip{
		ID:            strconv.FormatInt(id, 10),
		VehicleType:   req.VehicleType,
		From:          req.From,
		To:            req.To,
		Date:          req.Date,
		Time:          req.Time,
		Seats:         req.Seats,
		CostPerPerson: req.CostPerPerson,
		Driver:        driver,
		Status:        models.TripStatusActive,
		Passengers:    []models.PassengerRef{},
		CreatedAt:     r.now(),
	}

	r.index[trip.ID] = len(r.trips)
	r.trips = append(r.trips, trip)
	return trip
}

// List returns all trips in insertion order. The result is a snapshot;
// callers cannot reach the registry's internal slice through it.
func (r *Registry) List() []models.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Trip, len(r.trips))
	copy(out, r.trips)
	return out
}

func (r *Registry) Get(id string) (models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return models.Trip{}, ErrTripNotFound
	}
	return r.trips[i], nil
}

// Available returns active trips with free seats, excluding those
// created by the given driver. entry order is preserved.
func (r *Registry) Available(excludeDriverID string) []models.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Trip{}
	for _, t := range r.trips {
		if t.Status != models.TripStatusActive {
			continue
		}
		if t.Driver.ID == excludeDriverID {
			continue
		}
		if len(t.Passengers) >= t.Seats {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trips)
}
