// Package metrics wraps a UserStore to record operation latency.
package metrics

import (
	"context"
	"time"

	"github.com/acme/user-service/internal/model"
	"github.com/acme/user-service/internal/registry/store"
	"github.com/acme/user-service/internal/web"
	"github.com/google/uuid"
)

// Wrap returns a UserStore that records StoreLatency for every operation.
func Wrap(inner store.UserStore) store.UserStore {
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner store.UserStore
}

func observe(op string, start time.Time) {
	if web.StoreLatency != nil {
		web.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (m *metricsStore) Create(ctx context.Context, user *model.User) error {
	defer observe("create_user", time.Now())
	return m.inner.Create(ctx, user)
}

func (m *metricsStore) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	defer observe("get_user", time.Now())
	return m.inner.Get(ctx, id)
}

func (m *metricsStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer observe("get_user_by_email", time.Now())
	return m.inner.GetByEmail(ctx, email)
}

func (m *metricsStore) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	defer observe("list_users", time.Now())
	return m.inner.List(ctx, offset, limit)
}

func (m *metricsStore) Update(ctx context.Context, user *model.User) error {
	defer observe("update_user", time.Now())
	return m.inner.Update(ctx, user)
}

func (m *metricsStore) Delete(ctx context.Context, id uuid.UUID) error {
	defer observe("delete_user", time.Now())
	return m.inner.Delete(ctx, id)
}
