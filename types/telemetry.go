package types

import "time"

// GPSPoint is a single vehicle coordinate.
type GPSPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TelemetrySnapshot is a short-history reading for one vehicle. Readings
// are mocked in this system; no device feed is attached.
type TelemetrySnapshot struct {
	Speed       []int     `json:"speed"`
	Battery     []int     `json:"battery"`
	Temperature []int     `json:"temperature"`
	GPS         GPSPoint  `json:"gps"`
	LastUpdated time.Time `json:"lastUpdated"`
}
