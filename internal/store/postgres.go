package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"vrpga/internal/ga"
	"vrpga/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	p := &Postgres{db: db}
	if err := p.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT,
			depot JSONB NOT NULL,
			locations JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			dataset_id UUID NOT NULL,
			status TEXT NOT NULL,
			params JSONB NOT NULL,
			best JSONB,
			total_distance DOUBLE PRECISION,
			variance DOUBLE PRECISION,
			logbook JSONB,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			url TEXT NOT NULL,
			events JSONB NOT NULL,
			secret TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			subscription_id TEXT,
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT,
			payload BYTEA,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error TEXT,
			response_code INT,
			latency_ms INT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_tenant ON runs (tenant_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_due ON webhook_deliveries (status, next_attempt_at)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func toJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (p *Postgres) CreateDataset(ctx context.Context, tenantID string, ds model.Dataset) (model.Dataset, error) {
	ds.ID = uuid.New().String()
	ds.TenantID = tenantID
	ds.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO datasets (id, tenant_id, name, depot, locations) VALUES ($1,$2,$3,$4,$5)`,
		ds.ID, tenantID, ds.Name, toJSON(ds.Depot), toJSON(ds.Locations))
	if err != nil {
		return model.Dataset{}, err
	}
	return ds, nil
}

func (p *Postgres) GetDataset(ctx context.Context, tenantID, id string) (model.Dataset, error) {
	var ds model.Dataset
	var depot, locs []byte
	var created time.Time
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, tenant_id, COALESCE(name,''), depot, locations, created_at
		 FROM datasets WHERE tenant_id=$1 AND id=$2`, tenantID, id).
		Scan(&ds.ID, &ds.TenantID, &ds.Name, &depot, &locs, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Dataset{}, ErrNotFound
	}
	if err != nil {
		return model.Dataset{}, err
	}
	if err := json.Unmarshal(depot, &ds.Depot); err != nil {
		return model.Dataset{}, err
	}
	if err := json.Unmarshal(locs, &ds.Locations); err != nil {
		return model.Dataset{}, err
	}
	ds.CreatedAt = created.UTC().Format(time.RFC3339)
	return ds, nil
}

func (p *Postgres) ListDatasets(ctx context.Context, tenantID, cursor string, limit int) ([]model.Dataset, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, tenant_id, COALESCE(name,''), depot, locations, created_at
			 FROM datasets WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, tenant_id, COALESCE(name,''), depot, locations, created_at
			 FROM datasets WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Dataset{}
	var last string
	for rows.Next() {
		var ds model.Dataset
		var depot, locs []byte
		var created time.Time
		if err := rows.Scan(&ds.ID, &ds.TenantID, &ds.Name, &depot, &locs, &created); err != nil {
			return nil, "", err
		}
		_ = json.Unmarshal(depot, &ds.Depot)
		_ = json.Unmarshal(locs, &ds.Locations)
		ds.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, ds)
		last = ds.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO runs (id, tenant_id, dataset_id, status, params) VALUES ($1,$2,$3,$4,$5)`,
		run.ID, run.TenantID, run.DatasetID, run.Status, toJSON(run.Params))
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func (p *Postgres) scanRun(row interface{ Scan(...any) error }) (model.Run, error) {
	var run model.Run
	var params, best, logbook []byte
	var totalDist, variance sql.NullFloat64
	var errMsg sql.NullString
	var created time.Time
	var completed sql.NullTime
	err := row.Scan(&run.ID, &run.TenantID, &run.DatasetID, &run.Status,
		&params, &best, &totalDist, &variance, &logbook, &errMsg, &created, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	if err != nil {
		return model.Run{}, err
	}
	_ = json.Unmarshal(params, &run.Params)
	if best != nil {
		_ = json.Unmarshal(best, &run.Best)
	}
	if logbook != nil {
		var lb ga.Logbook
		_ = json.Unmarshal(logbook, &lb)
		run.Logbook = lb
	}
	run.TotalDistance = totalDist.Float64
	run.Variance = variance.Float64
	if run.Params.NumVehicles > 0 {
		run.AvgPerVehicle = run.TotalDistance / float64(run.Params.NumVehicles)
	}
	run.Error = errMsg.String
	run.CreatedAt = created.UTC().Format(time.RFC3339)
	if completed.Valid {
		run.CompletedAt = completed.Time.UTC().Format(time.RFC3339)
	}
	return run, nil
}

const runCols = `id::text, tenant_id, dataset_id::text, status, params, best, total_distance, variance, logbook, error, created_at, completed_at`

func (p *Postgres) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+runCols+` FROM runs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	return p.scanRun(row)
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Run, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT ` + runCols + ` FROM runs WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != "" {
		args = append(args, status)
		q += ` AND status=$2`
	}
	if cursor != "" {
		args = append(args, cursor)
		if status != "" {
			q += ` AND id::text > $3`
		} else {
			q += ` AND id::text > $2`
		}
	}
	args = append(args, limit)
	switch len(args) {
	case 2:
		q += ` ORDER BY id LIMIT $2`
	case 3:
		q += ` ORDER BY id LIMIT $3`
	default:
		q += ` ORDER BY id LIMIT $4`
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	var last string
	for rows.Next() {
		run, err := p.scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		run.Logbook = nil
		out = append(out, run)
		last = run.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) CompleteRun(ctx context.Context, tenantID, id string, res model.RunResult) (model.Run, error) {
	_, err := p.db.ExecContext(ctx,
		`UPDATE runs SET status=$1, best=$2, total_distance=$3, variance=$4, logbook=$5, completed_at=now()
		 WHERE tenant_id=$6 AND id=$7`,
		model.RunCompleted, toJSON(res.Best), res.TotalDistance, res.Variance, toJSON(res.Logbook), tenantID, id)
	if err != nil {
		return model.Run{}, err
	}
	return p.GetRun(ctx, tenantID, id)
}

func (p *Postgres) FailRun(ctx context.Context, tenantID, id, reason string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE runs SET status=$1, error=$2, completed_at=now() WHERE tenant_id=$3 AND id=$4`,
		model.RunFailed, reason, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	sub := model.Subscription{
		ID:       uuid.New().String(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   req.Events,
		Secret:   req.Secret,
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		sub.ID, sub.TenantID, sub.URL, toJSON(sub.Events), sub.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, url, events, COALESCE(secret,'') FROM subscriptions WHERE tenant_id=$1`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.TenantID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(events, &s.Events)
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, url, events, COALESCE(secret,'') FROM subscriptions
		 WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	var last string
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.TenantID, &s.URL, &events, &s.Secret); err != nil {
			return nil, "", err
		}
		_ = json.Unmarshal(events, &s.Events)
		out = append(out, s)
		last = s.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`, id, tenantID, subscriptionID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, COALESCE(subscription_id,''), event_type, url, COALESCE(secret,''), payload, status, attempts
		 FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, last_error=$1, response_code=$2, latency_ms=$3 WHERE id=$4`,
			lastError, responseCode, latencyMs, id)
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET attempts=attempts+1, next_attempt_at=$1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$5`,
		nextAttemptAt, lastError, responseCode, latencyMs, id)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$1, response_code=$2, latency_ms=$3 WHERE id=$4`,
		lastError, responseCode, latencyMs, id)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id::text, event_type, url, status, attempts, COALESCE(last_error,''), COALESCE(response_code,0), COALESCE(latency_ms,0)
	      FROM webhook_deliveries WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != "" {
		args = append(args, status)
		q += ` AND status=$2`
	}
	if cursor != "" {
		args = append(args, cursor)
		if status != "" {
			q += ` AND id::text > $3`
		} else {
			q += ` AND id::text > $2`
		}
	}
	args = append(args, limit)
	switch len(args) {
	case 2:
		q += ` ORDER BY id LIMIT $2`
	case 3:
		q += ` ORDER BY id LIMIT $3`
	default:
		q += ` ORDER BY id LIMIT $4`
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []map[string]any{}
	var last string
	for rows.Next() {
		var id, eventType, url, st, lastErr string
		var attempts, code, latency int
		if err := rows.Scan(&id, &eventType, &url, &st, &attempts, &lastErr, &code, &latency); err != nil {
			return nil, "", err
		}
		out = append(out, map[string]any{
			"id": id, "eventType": eventType, "url": url, "status": st,
			"attempts": attempts, "lastError": lastErr, "responseCode": code, "latencyMs": latency,
		})
		last = id
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}
