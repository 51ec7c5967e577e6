package models

import "time"

// TripStatus is the lifecycle tag of a trip.
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusFull      TripStatus = "full"
	TripStatusCancelled TripStatus = "cancelled"
)

type VehicleType string

const (
	VehicleTwoWheeler  VehicleType = "2-wheeler"
	VehicleFourWheeler VehicleType = "4-wheeler"
)

// DriverRef is a denormalized copy of the creating user, taken at
// creation time. It is not a live join: later profile edits do not
// rewrite existing trips.
type DriverRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// PassengerRef mirrors DriverRef for users who joined a trip.
type PassengerRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type Trip struct {
	ID            string         `json:"id"`
	VehicleType   VehicleType    `json:"vehicleType"`
	From          string         `json:"from"`
	To            string         `json:"to"`
	Date          string         `json:"date"`
	Time          string         `json:"time"`
	Seats         int            `json:"seats"`
	CostPerPerson float64        `json:"costPerPerson"`
	Driver        DriverRef      `json:"driver"`
	Status        TripStatus     `json:"status"`
	Passengers    []PassengerRef `json:"passengers"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// CreateTripRequest is the POST /api/trips body. Date and time are
// stored as provided, no timezone normalization.
type CreateTripRequest struct {
	VehicleType   VehicleType `json:"vehicleType"`
	From          string      `json:"from"`
	To            string      `json:"to"`
	Date          string      `json:"date"`
	Time          string      `json:"time"`
	Seats         int         `json:"seats"`
	CostPerPerson float64     `json:"costPerPerson"`
}
