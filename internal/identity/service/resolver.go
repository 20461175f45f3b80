// Package service resolves device-reported match tokens to enrolled senior
// records.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"botica/internal/identity/models"
	"botica/pkg/domain"
	dErrors "botica/pkg/domain-errors"
	"botica/pkg/platform/sentinel"
)

// Store looks up enrolled senior records in the external record store.
type Store interface {
	GetByID(ctx context.Context, id domain.SeniorID) (*models.Senior, error)
}

// Resolver turns a match token into an enrolled identity. Each Resolve
// performs exactly one store lookup and never caches: identity drives a
// monetary discount, so freshness wins over latency.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver constructs a resolver over the record store.
func NewResolver(store Store, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("senior store is required")
	}

	r := &Resolver{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve fetches the enrolled record behind a device-reported match token.
func (r *Resolver) Resolve(ctx context.Context, identityToken string) (*models.Senior, error) {
	seniorID, err := domain.ParseSeniorID(identityToken)
	if err != nil {
		return nil, err
	}

	senior, err := r.store.GetByID(ctx, seniorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		r.logger.InfoContext(ctx, "matched identity not enrolled", "senior_id", seniorID)
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no enrolled senior matches this fingerprint")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up senior record")
	}
	return senior, nil
}
