package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"vrpga/internal/buildinfo"
	"vrpga/internal/ga"
	"vrpga/internal/metrics"
	"vrpga/internal/model"
	"vrpga/internal/store"
)

// DatasetsHandler handles POST/GET /v1/datasets
func (s *Server) DatasetsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var in model.DatasetIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeInvalid(w, r, "Invalid JSON", err)
			return
		}
		if err := validateDatasetIn(&in); err != nil {
			writeInvalid(w, r, "Invalid dataset", err)
			return
		}
		_, tenant := s.withTenant(r)
		ds, err := s.Store.CreateDataset(r.Context(), tenant, s.buildDataset(in))
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create dataset failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, ds)
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListDatasets(r.Context(), tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List datasets failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// buildDataset fills a Dataset from the request, generating locations when
// only a count was given.
func (s *Server) buildDataset(in model.DatasetIn) model.Dataset {
	cc := s.Cfg.Coords
	ds := model.Dataset{Name: in.Name, Depot: ga.Location{X: cc.DepotX, Y: cc.DepotY}, Locations: in.Locations}
	if in.Depot != nil {
		ds.Depot = *in.Depot
	}
	if in.Count > 0 {
		xMin, xMax, yMin, yMax := cc.XMin, cc.XMax, cc.YMin, cc.YMax
		if in.XRange != nil {
			xMin, xMax = in.XRange[0], in.XRange[1]
		}
		if in.YRange != nil {
			yMin, yMax = in.YRange[0], in.YRange[1]
		}
		seed := in.Seed
		if seed == 0 {
			seed = s.Cfg.GA.Seed
		}
		rng := rand.New(rand.NewSource(seed))
		ds.Locations = ga.GenerateLocations(rng, in.Count, xMin, xMax, yMin, yMax)
	}
	return ds
}

// DatasetImportHandler handles POST /v1/datasets/import with a CSV body.
func (s *Server) DatasetImportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	locs, err := parseLocationsCSV(r.Body)
	if err != nil {
		writeInvalid(w, r, "Invalid CSV", err)
		return
	}
	if len(locs) == 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid CSV", "no data rows", r.URL.Path)
		return
	}
	_, tenant := s.withTenant(r)
	cc := s.Cfg.Coords
	ds := model.Dataset{
		Name:      r.URL.Query().Get("name"),
		Depot:     ga.Location{X: cc.DepotX, Y: cc.DepotY},
		Locations: locs,
	}
	out, err := s.Store.CreateDataset(r.Context(), tenant, ds)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create dataset failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// DatasetByIDHandler handles GET /v1/datasets/{id}
func (s *Server) DatasetByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/datasets/")
	if id == "" || strings.Contains(id, "/") {
		writeNotFound(w, r, "Not Found")
		return
	}
	_, tenant := s.withTenant(r)
	ds, err := s.Store.GetDataset(r.Context(), tenant, id)
	if err == store.ErrNotFound {
		writeNotFound(w, r, "Dataset not found")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get dataset failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// SolveHandler handles POST /v1/solve
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalid(w, r, "Invalid JSON", err)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeInvalid(w, r, "Invalid solve request", err)
		return
	}
	if req.TenantID == "" {
		_, req.TenantID = s.withTenant(r)
	}
	ds, err := s.Store.GetDataset(r.Context(), req.TenantID, req.DatasetID)
	if err == store.ErrNotFound {
		writeNotFound(w, r, "Dataset not found")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get dataset failed", err.Error(), r.URL.Path)
		return
	}

	params := s.solveParams(req)
	run, err := s.Store.CreateRun(r.Context(), model.Run{
		TenantID:  req.TenantID,
		DatasetID: req.DatasetID,
		Status:    model.RunRunning,
		Params:    params,
	})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
		return
	}

	if req.Async {
		go func() {
			_, _ = s.executeRun(context.Background(), run, ds)
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{"runId": run.ID, "status": model.RunRunning})
		return
	}

	done, err := s.executeRun(r.Context(), run, ds)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, done)
}

// solveParams starts from the configured defaults and overrides only the
// fields the request actually set, so an explicit cxPb/mutPb of 0 sticks.
func (s *Server) solveParams(req model.SolveRequest) ga.Params {
	d := s.Cfg.GA
	p := ga.Params{
		NumVehicles: d.NumVehicles,
		PopSize:     d.PopSize,
		CxPb:        d.CxPb,
		MutPb:       d.MutPb,
		TournSize:   d.TournSize,
		NGen:        d.NGen,
		Seed:        d.Seed,
	}
	if req.NumVehicles > 0 {
		p.NumVehicles = req.NumVehicles
	}
	if req.PopSize != nil {
		p.PopSize = *req.PopSize
	}
	if req.CxPb != nil {
		p.CxPb = *req.CxPb
	}
	if req.MutPb != nil {
		p.MutPb = *req.MutPb
	}
	if req.TournSize != nil {
		p.TournSize = *req.TournSize
	}
	if req.NGen != nil {
		p.NGen = *req.NGen
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	return p
}

// executeRun drives the engine for one stored run, publishing progress on
// the broker and recording the outcome in the store.
func (s *Server) executeRun(ctx context.Context, run model.Run, ds model.Dataset) (model.Run, error) {
	eng := ga.New(ds.Locations, ds.Depot, run.Params)
	eng.OnProgress = func(gen, ngen int) {
		s.Broker.Publish(run.ID, RunEvent{Type: "run.progress", Data: map[string]any{
			"runId": run.ID, "gen": gen, "nGen": ngen,
		}})
	}
	start := time.Now()
	best, logbook, err := eng.Run(ctx)
	if err != nil {
		_ = s.Store.FailRun(context.Background(), run.TenantID, run.ID, err.Error())
		metrics.SolverRuns.WithLabelValues(model.RunFailed).Inc()
		s.Broker.Publish(run.ID, RunEvent{Type: "run.failed", Data: map[string]any{"runId": run.ID, "error": err.Error()}})
		s.Pub.Emit(context.Background(), run.TenantID, "run.failed", map[string]any{"runId": run.ID, "error": err.Error()})
		return model.Run{}, err
	}
	res := model.RunResult{
		Best:          best.Genes,
		TotalDistance: best.Fit.TotalDistance,
		Variance:      best.Fit.Variance,
		Logbook:       logbook,
	}
	done, err := s.Store.CompleteRun(context.Background(), run.TenantID, run.ID, res)
	if err != nil {
		return model.Run{}, err
	}
	metrics.SolverRuns.WithLabelValues(model.RunCompleted).Inc()
	metrics.SolverDuration.Observe(time.Since(start).Seconds())
	metrics.SolverGenerations.Observe(float64(run.Params.NGen))
	metrics.SolverBestDistance.Set(res.TotalDistance)
	evt := map[string]any{"runId": run.ID, "totalDistance": res.TotalDistance, "variance": res.Variance}
	s.Broker.Publish(run.ID, RunEvent{Type: "run.completed", Data: evt})
	s.Pub.Emit(context.Background(), run.TenantID, "run.completed", evt)
	return done, nil
}

// RunsHandler handles GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	status := r.URL.Query().Get("status")
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListRuns(r.Context(), tenant, status, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id}, /v1/runs/{id}/export and
// /v1/runs/{id}/routes
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	id, sub := rest, ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		id, sub = rest[:i], rest[i+1:]
	}
	if id == "" {
		writeNotFound(w, r, "Not Found")
		return
	}
	_, tenant := s.withTenant(r)
	run, err := s.Store.GetRun(r.Context(), tenant, id)
	if err == store.ErrNotFound {
		writeNotFound(w, r, "Run not found")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		return
	}
	switch sub {
	case "":
		writeJSON(w, http.StatusOK, run)
	case "export":
		if run.Status != model.RunCompleted {
			writeProblem(w, http.StatusConflict, "Run not completed", "export requires a completed run", r.URL.Path)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "run_"+run.ID+".csv"))
		_ = writeRouteCSV(w, run.Best)
	case "routes":
		if run.Status != model.RunCompleted {
			writeProblem(w, http.StatusConflict, "Run not completed", "routes require a completed run", r.URL.Path)
			return
		}
		ds, err := s.Store.GetDataset(r.Context(), tenant, run.DatasetID)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get dataset failed", err.Error(), r.URL.Path)
			return
		}
		routes := buildVehicleRoutes(run.Best, ds, run.Params.NumVehicles)
		writeJSON(w, http.StatusOK, map[string]any{"runId": run.ID, "routes": routes})
	default:
		writeNotFound(w, r, "Not Found")
	}
}

func buildVehicleRoutes(best []int, ds model.Dataset, numVehicles int) []model.VehicleRoute {
	split := ga.SplitRoutes(best, numVehicles)
	routes := make([]model.VehicleRoute, len(split))
	for v, stops := range split {
		wps := make([]ga.Location, 0, len(stops)+2)
		wps = append(wps, ds.Depot)
		for _, idx := range stops {
			wps = append(wps, ds.Locations[idx])
		}
		wps = append(wps, ds.Depot)
		routes[v] = model.VehicleRoute{
			Vehicle:   v,
			Stops:     stops,
			Waypoints: wps,
			Distance:  ga.RouteDistance(stops, ds.Locations, ds.Depot),
		}
	}
	return routes
}

// SolveStreamHandler handles GET /v1/solve/stream?runId=... as SSE.
func (s *Server) SolveStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	runID := r.URL.Query().Get("runId")
	if runID == "" {
		writeProblem(w, http.StatusBadRequest, "Missing runId", "", r.URL.Path)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	_, tenant := s.withTenant(r)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Terminal runs replay their final state immediately.
	if run, err := s.Store.GetRun(r.Context(), tenant, runID); err == nil && run.Status != model.RunRunning {
		evt := "run.completed"
		if run.Status == model.RunFailed {
			evt = "run.failed"
		}
		data, _ := json.Marshal(map[string]any{"runId": run.ID, "totalDistance": run.TotalDistance, "variance": run.Variance, "error": run.Error})
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt, data)
		flusher.Flush()
		return
	}

	ch := s.Broker.Subscribe(runID)
	defer s.Broker.Unsubscribe(runID, ch)
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
			if evt.Type == "run.completed" || evt.Type == "run.failed" {
				return
			}
		}
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeInvalid(w, r, "Invalid JSON", err)
			return
		}
		if err := validateSubscriptionRequest(&req); err != nil {
			writeInvalid(w, r, "Invalid subscription", err)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	_, tenant := s.withTenant(r)
	if err := s.Store.DeleteSubscription(r.Context(), tenant, id); err != nil {
		if err == store.ErrNotFound {
			writeNotFound(w, r, "Subscription not found")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebhookDeliveriesHandler handles GET /v1/webhooks/deliveries
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	status := r.URL.Query().Get("status")
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListWebhookDeliveries(r.Context(), tenant, status, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info())
}
