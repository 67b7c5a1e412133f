package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"vrpga/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu         sync.Mutex
	datasets   map[string]model.Dataset // id -> dataset
	dsByTen    map[string][]string      // tenant -> dataset ids
	runs       map[string]model.Run     // id -> run
	runsByTen  map[string][]string      // tenant -> run ids
	subs       map[string][]model.Subscription
	deliveries map[string]*memDelivery
	delByTen   map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		datasets:   map[string]model.Dataset{},
		dsByTen:    map[string][]string{},
		runs:       map[string]model.Run{},
		runsByTen:  map[string][]string{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*memDelivery{},
		delByTen:   map[string][]string{},
	}
}

// memDelivery augments WebhookDelivery with scheduling state
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

func (m *Memory) CreateDataset(ctx context.Context, tenantID string, ds model.Dataset) (model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds.ID = uuid.New().String()
	ds.TenantID = tenantID
	ds.CreatedAt = nowRFC3339()
	m.datasets[ds.ID] = ds
	m.dsByTen[tenantID] = append(m.dsByTen[tenantID], ds.ID)
	return ds, nil
}

func (m *Memory) GetDataset(ctx context.Context, tenantID, id string) (model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.datasets[id]
	if !ok || ds.TenantID != tenantID {
		return model.Dataset{}, ErrNotFound
	}
	return ds, nil
}

func (m *Memory) ListDatasets(ctx context.Context, tenantID, cursor string, limit int) ([]model.Dataset, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.dsByTen[tenantID]
	start := cursorStart(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []model.Dataset{}
	next := ""
	for i := start; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.datasets[ids[i]])
		next = ids[i]
	}
	if start+len(out) >= len(ids) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.CreatedAt = nowRFC3339()
	m.runs[run.ID] = run
	m.runsByTen[run.TenantID] = append(m.runsByTen[run.TenantID], run.ID)
	return run, nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok || run.TenantID != tenantID {
		return model.Run{}, ErrNotFound
	}
	return run, nil
}

func (m *Memory) ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.runsByTen[tenantID]
	start := cursorStart(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []model.Run{}
	last := ""
	i := start
	for ; i < len(ids) && len(out) < limit; i++ {
		run := m.runs[ids[i]]
		if status != "" && run.Status != status {
			continue
		}
		run.Logbook = nil // listings stay light; fetch by id for the logbook
		out = append(out, run)
		last = ids[i]
	}
	// only hand out a cursor when a further matching run exists
	next := ""
	for ; i < len(ids); i++ {
		if status == "" || m.runs[ids[i]].Status == status {
			next = last
			break
		}
	}
	return out, next, nil
}

func (m *Memory) CompleteRun(ctx context.Context, tenantID, id string, res model.RunResult) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok || run.TenantID != tenantID {
		return model.Run{}, ErrNotFound
	}
	run.Status = model.RunCompleted
	run.Best = res.Best
	run.TotalDistance = res.TotalDistance
	run.Variance = res.Variance
	if run.Params.NumVehicles > 0 {
		run.AvgPerVehicle = res.TotalDistance / float64(run.Params.NumVehicles)
	}
	run.Logbook = res.Logbook
	run.CompletedAt = nowRFC3339()
	m.runs[id] = run
	return run, nil
}

func (m *Memory) FailRun(ctx context.Context, tenantID, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok || run.TenantID != tenantID {
		return ErrNotFound
	}
	run.Status = model.RunFailed
	run.Error = reason
	run.CompletedAt = nowRFC3339()
	m.runs[id] = run
	return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{
		ID:       uuid.New().String(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   req.Events,
		Secret:   req.Secret,
	}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], sub)
	return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	start := 0
	if cursor != "" {
		for i, s := range subs {
			if s.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []model.Subscription{}
	next := ""
	for i := start; i < len(subs) && len(out) < limit; i++ {
		out = append(out, subs[i])
		next = subs[i].ID
	}
	if start+len(out) >= len(subs) {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	for i, s := range subs {
		if s.ID == id {
			m.subs[tenantID] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID:             id,
			TenantID:       tenantID,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        payload,
			Status:         "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.delByTen[tenantID] = append(m.delByTen[tenantID], id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, d := range m.deliveries {
		if d.Status != "pending" || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		t := time.Now()
		d.DeliveredAt = &t
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.delByTen[tenantID]
	start := cursorStart(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []map[string]any{}
	last := ""
	i := start
	for ; i < len(ids) && len(out) < limit; i++ {
		d := m.deliveries[ids[i]]
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, map[string]any{
			"id":           d.ID,
			"eventType":    d.EventType,
			"url":          d.URL,
			"status":       d.Status,
			"attempts":     d.Attempts,
			"lastError":    d.LastError,
			"responseCode": d.ResponseCode,
			"latencyMs":    d.LatencyMs,
		})
		last = ids[i]
	}
	// only hand out a cursor when a further matching delivery exists
	next := ""
	for ; i < len(ids); i++ {
		if status == "" || m.deliveries[ids[i]].Status == status {
			next = last
			break
		}
	}
	return out, next, nil
}

func cursorStart(ids []string, cursor string) int {
	if cursor == "" {
		return 0
	}
	for i, id := range ids {
		if id == cursor {
			return i + 1
		}
	}
	return 0
}
