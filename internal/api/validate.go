package api

import (
	"fmt"

	"vrpga/internal/model"
)

func validateDatasetIn(in *model.DatasetIn) error {
	if len(in.Locations) == 0 && in.Count <= 0 {
		return fmt.Errorf("either locations or count must be given")
	}
	if len(in.Locations) > 0 && in.Count > 0 {
		return fmt.Errorf("locations and count are mutually exclusive")
	}
	if in.XRange != nil && in.XRange[0] >= in.XRange[1] {
		return fmt.Errorf("xRange must be [min, max] with min < max")
	}
	if in.YRange != nil && in.YRange[0] >= in.YRange[1] {
		return fmt.Errorf("yRange must be [min, max] with min < max")
	}
	return nil
}

func validateSolveRequest(req *model.SolveRequest) error {
	if req.DatasetID == "" {
		return fmt.Errorf("datasetId is required")
	}
	if req.NumVehicles < 0 {
		return fmt.Errorf("numVehicles must be >= 1")
	}
	if req.PopSize != nil && *req.PopSize < 2 {
		return fmt.Errorf("popSize must be >= 2")
	}
	if req.CxPb != nil && (*req.CxPb < 0 || *req.CxPb > 1) {
		return fmt.Errorf("cxPb must be in [0,1]")
	}
	if req.MutPb != nil && (*req.MutPb < 0 || *req.MutPb > 1) {
		return fmt.Errorf("mutPb must be in [0,1]")
	}
	if req.TournSize != nil && *req.TournSize < 2 {
		return fmt.Errorf("tournSize must be >= 2")
	}
	if req.NGen != nil && *req.NGen < 1 {
		return fmt.Errorf("nGen must be >= 1")
	}
	return nil
}

func validateSubscriptionRequest(req *model.SubscriptionRequest) error {
	if req.URL == "" {
		return fmt.Errorf("url is required")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("events must not be empty")
	}
	allowed := map[string]struct{}{"run.completed": {}, "run.failed": {}, "*": {}}
	for _, e := range req.Events {
		if _, ok := allowed[e]; !ok {
			return fmt.Errorf("unknown event type: %s (allowed: run.completed, run.failed, *)", e)
		}
	}
	return nil
}
