package model

import "vrpga/internal/ga"

// Run status values.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// DatasetIn is the request body for creating a dataset. Either Locations is
// given explicitly, or Count (> 0) asks the server to generate that many
// random locations inside the X/Y ranges.
type DatasetIn struct {
	Name      string        `json:"name,omitempty"`
	Depot     *ga.Location  `json:"depot,omitempty"`
	Locations []ga.Location `json:"locations,omitempty"`
	Count     int           `json:"count,omitempty"`
	XRange    *[2]float64   `json:"xRange,omitempty"`
	YRange    *[2]float64   `json:"yRange,omitempty"`
	Seed      int64         `json:"seed,omitempty"`
}

type Dataset struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenantId"`
	Name      string        `json:"name,omitempty"`
	Depot     ga.Location   `json:"depot"`
	Locations []ga.Location `json:"locations"`
	CreatedAt string        `json:"createdAt"`
}

// SolveRequest carries the hyperparameters for one optimization run. The
// tunables are pointers so an explicit zero (a legal probability) is
// distinguishable from an absent field, which falls back to the configured
// default.
type SolveRequest struct {
	TenantID    string   `json:"tenantId"`
	DatasetID   string   `json:"datasetId"`
	NumVehicles int      `json:"numVehicles,omitempty"`
	PopSize     *int     `json:"popSize,omitempty"`
	CxPb        *float64 `json:"cxPb,omitempty"`
	MutPb       *float64 `json:"mutPb,omitempty"`
	TournSize   *int     `json:"tournSize,omitempty"`
	NGen        *int     `json:"nGen,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
	Async       bool     `json:"async,omitempty"`
}

// Run is a stored optimization run. Best is the hall-of-fame permutation;
// Logbook holds one record per generation including generation 0.
type Run struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenantId"`
	DatasetID     string     `json:"datasetId"`
	Status        string     `json:"status"`
	Params        ga.Params  `json:"params"`
	Best          []int      `json:"best,omitempty"`
	TotalDistance float64    `json:"totalDistance,omitempty"`
	Variance      float64    `json:"variance,omitempty"`
	AvgPerVehicle float64    `json:"avgPerVehicle,omitempty"`
	Logbook       ga.Logbook `json:"logbook,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     string     `json:"createdAt"`
	CompletedAt   string     `json:"completedAt,omitempty"`
}

// RunResult is what the solver hands to the store on completion.
type RunResult struct {
	Best          []int      `json:"best"`
	TotalDistance float64    `json:"totalDistance"`
	Variance      float64    `json:"variance"`
	Logbook       ga.Logbook `json:"logbook"`
}

// VehicleRoute is one vehicle's ordered stop list for the rendering layer.
type VehicleRoute struct {
	Vehicle   int           `json:"vehicle"`
	Stops     []int         `json:"stops"`
	Waypoints []ga.Location `json:"waypoints"` // depot, stops in order, depot
	Distance  float64       `json:"distance"`
}

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
