package types

import "time"

// Fleet event types published to the vehicle event channel.
const (
	EventVehicleCreated  = "vehicle.created"
	EventVehicleUpdated  = "vehicle.updated"
	EventVehicleDeleted  = "vehicle.deleted"
	EventVehicleAssigned = "vehicle.assigned"
)

// FleetEvent is the payload published to the event broker after a
// vehicle mutation. UserID is set only for assignment events.
type FleetEvent struct {
	Type      string    `json:"type"`
	VehicleID int       `json:"vehicle_id"`
	UserID    int       `json:"user_id,omitempty"`
	At        time.Time `json:"at"`
}
