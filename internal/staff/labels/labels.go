// Package labels resolves staff IDs to the usernames shown on registration records.
package labels

import (
	"context"
	"fmt"
	"log/slog"

	"dsnap/internal/staff/models"
	id "dsnap/pkg/domain"
	"dsnap/pkg/platform/circuit"
)

// Cache holds resolved labels. Get returns the hits; absent IDs are simply left out.
type Cache interface {
	Get(ctx context.Context, ids []id.StaffID) (map[id.StaffID]string, error)
	Set(ctx context.Context, labels map[id.StaffID]string) error
}

// Store is the staff lookup behind the cache.
type Store interface {
	FindByIDs(ctx context.Context, ids []id.StaffID) ([]*models.Staff, error)
}

// Resolver reads through the cache to the staff store. A failing cache is
// bypassed, and the breaker keeps it bypassed until it recovers.
type Resolver struct {
	cache   Cache
	store   Store
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewResolver builds a resolver; cache may be nil to always read the store.
func NewResolver(cache Cache, store Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		cache:   cache,
		store:   store,
		breaker: circuit.New("staff-label-cache"),
		logger:  logger,
	}
}

// Labels maps every non-nil ID to a username. IDs that match no staff account
// render as the ID itself.
func (r *Resolver) Labels(ctx context.Context, ids []id.StaffID) (map[id.StaffID]string, error) {
	wanted := uniqueIDs(ids)
	result := make(map[id.StaffID]string, len(wanted))
	if len(wanted) == 0 {
		return result, nil
	}

	missing := wanted
	if hits := r.cached(ctx, wanted); len(hits) > 0 {
		missing = make([]id.StaffID, 0, len(wanted))
		for _, staffID := range wanted {
			if label, ok := hits[staffID]; ok {
				result[staffID] = label
				continue
			}
			missing = append(missing, staffID)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	found, err := r.store.FindByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("resolve staff labels: %w", err)
	}
	fresh := make(map[id.StaffID]string, len(found))
	for _, staff := range found {
		fresh[staff.ID] = staff.Username
		result[staff.ID] = staff.Username
	}
	r.remember(ctx, fresh)

	for _, staffID := range missing {
		if _, ok := result[staffID]; !ok {
			result[staffID] = staffID.String()
		}
	}
	return result, nil
}

func (r *Resolver) cached(ctx context.Context, ids []id.StaffID) map[id.StaffID]string {
	if r.cache == nil || !r.breaker.Allow() {
		return nil
	}
	hits, err := r.cache.Get(ctx, ids)
	if err != nil {
		r.recordCacheFailure(ctx, "get", err)
		return nil
	}
	r.recordCacheSuccess(ctx)
	return hits
}

func (r *Resolver) remember(ctx context.Context, labels map[id.StaffID]string) {
	if r.cache == nil || len(labels) == 0 || !r.breaker.Allow() {
		return
	}
	if err := r.cache.Set(ctx, labels); err != nil {
		r.recordCacheFailure(ctx, "set", err)
		return
	}
	r.recordCacheSuccess(ctx)
}

func (r *Resolver) recordCacheFailure(ctx context.Context, op string, err error) {
	r.logger.WarnContext(ctx, "staff label cache unavailable", "op", op, "error", err)
	if r.breaker.RecordFailure() {
		r.logger.WarnContext(ctx, "staff label cache bypassed", "breaker", r.breaker.Name())
	}
}

func (r *Resolver) recordCacheSuccess(ctx context.Context) {
	if r.breaker.RecordSuccess() {
		r.logger.InfoContext(ctx, "staff label cache restored", "breaker", r.breaker.Name())
	}
}

func uniqueIDs(ids []id.StaffID) []id.StaffID {
	seen := make(map[id.StaffID]struct{}, len(ids))
	result := make([]id.StaffID, 0, len(ids))
	for _, staffID := range ids {
		if staffID.IsNil() {
			continue
		}
		if _, ok := seen[staffID]; ok {
			continue
		}
		seen[staffID] = struct{}{}
		result = append(result, staffID)
	}
	return result
}
