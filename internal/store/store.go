package store

import (
	"context"
	"errors"
	"time"

	"vrpga/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Datasets
	CreateDataset(ctx context.Context, tenantID string, ds model.Dataset) (model.Dataset, error)
	GetDataset(ctx context.Context, tenantID, id string) (model.Dataset, error)
	ListDatasets(ctx context.Context, tenantID, cursor string, limit int) ([]model.Dataset, string, error)

	// Runs
	CreateRun(ctx context.Context, run model.Run) (model.Run, error)
	GetRun(ctx context.Context, tenantID, id string) (model.Run, error)
	ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Run, string, error)
	CompleteRun(ctx context.Context, tenantID, id string, res model.RunResult) (model.Run, error)
	FailRun(ctx context.Context, tenantID, id, reason string) error

	// Webhook subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)
}

var ErrNotFound = errors.New("not found")
