package models

import "gopkg.in/guregu/null.v4"

const (
	SpotFree     = "FREE"
	SpotOccupied = "OCCUPIED"
)

// Spot is a physical parking space; reference data provisioned outside the ledger.
type Spot struct {
	ID         int64 `json:"spot_id"`
	SpotNumber int   `json:"spot_number"`
	Floor      int   `json:"floor"`
}

// SpotStatus is one row of the occupancy snapshot.
type SpotStatus struct {
	SpotID      int64       `json:"spot_id"`
	SpotNumber  int         `json:"spot_number"`
	Floor       int         `json:"floor"`
	PlateNumber null.String `json:"plate_number"`
	UserID      null.Int    `json:"user_id"`
	StartTime   null.Time   `json:"start_time"`
	EndTime     null.Time   `json:"end_time"`
	Status      string      `json:"status"`
}

type OccupancySummary struct {
	Total    int `json:"total"`
	Occupied int `json:"occupied"`
	Free     int `json:"free"`
}

// OccupancyStatus is a point-in-time view; it may be stale as soon as it is read.
type OccupancyStatus struct {
	Summary OccupancySummary `json:"summary"`
	Spots   []SpotStatus     `json:"spots"`
}

// SpotUsage counts sessions started on a spot during one day.
type SpotUsage struct {
	SpotNumber int `json:"spot_number"`
	Floor      int `json:"floor"`
	Count      int `json:"count"`
}
