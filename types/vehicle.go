package types

import "time"

// Vehicle is a fleet asset. Number is the plate identifier and is unique
// across vehicles. AssignedTo carries the populated assignee summary when
// the vehicle was loaded with its join; it is nil for unassigned vehicles.
type Vehicle struct {
	ID         int          `json:"id" db:"id"`
	Name       string       `json:"name" db:"name"`
	Number     string       `json:"number" db:"number"`
	AssignedTo *UserSummary `json:"assignedTo,omitempty"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// VehicleDocument is metadata for an object stored in the document
// backend. The bytes themselves live in object storage under ObjectKey.
type VehicleDocument struct {
	ID          int       `json:"id" db:"id"`
	VehicleID   int       `json:"vehicle_id" db:"vehicle_id"`
	ObjectKey   string    `json:"-" db:"object_key"`
	Filename    string    `json:"filename" db:"filename"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
