// Package query resolves collection queries: it validates raw parameters,
// runs exactly one store call, and substitutes the fallback fixtures when
// the fixtures collection has no match.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CurryTPH/all-sports-api/internal/adapters/repository"
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

// Result is a resolved listing.
type Result struct {
	Records      []model.Record
	UsedFallback bool
}

// Resolver answers collection queries against a Store.
type Resolver struct {
	store    repository.Store
	log      logger.Logger
	now      func() time.Time
	fallback bool
}

// New returns a Resolver over store.
func New(store repository.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		log:      logger.Nop(),
		now:      time.Now,
		fallback: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates params, queries the store once, and applies the
// fixtures fallback on an empty result.
func (r *Resolver) Resolve(ctx context.Context, collection string, params Params) (Result, error) {
	spec, err := Build(collection, params)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			metrics.RecordQueryValidationError(ve.KindName())
		}
		return Result{}, err
	}
	return r.Execute(ctx, spec)
}

// Execute runs an already built Spec.
func (r *Resolver) Execute(ctx context.Context, spec Spec) (Result, error) {
	recs, err := r.store.Find(ctx, spec.Collection, spec.Filter, spec.Sort, spec.Limit)
	if err != nil {
		return Result{}, r.storeError(ctx, "find", spec.Collection, err)
	}

	if len(recs) == 0 && spec.Collection == model.Fixtures && r.fallback {
		metrics.RecordQueryFallback(spec.Collection)
		return Result{Records: Fallback(spec.Sport, spec.Limit), UsedFallback: true}, nil
	}

	metrics.RecordQueryResolved(spec.Collection)
	if recs == nil {
		recs = []model.Record{}
	}
	return Result{Records: recs}, nil
}

// Lookup returns the record with id. Fixtures missing from the store are
// also looked up in the fallback dataset.
func (r *Resolver) Lookup(ctx context.Context, collection, id string) (model.Record, error) {
	if !Known(collection) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	f := repository.Filter{{Field: model.FieldID, Op: repository.OpEq, Value: id}}
	recs, err := r.store.Find(ctx, collection, f, repository.Sort{}, 1)
	if err != nil {
		return nil, r.storeError(ctx, "lookup", collection, err)
	}
	if len(recs) > 0 {
		return recs[0], nil
	}
	if collection == model.Fixtures && r.fallback {
		if rec, ok := fallbackByID(id); ok {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q", ErrNotFound, collection, id)
}

func (r *Resolver) storeError(ctx context.Context, op, collection string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	r.log.Error(ctx, "store call failed",
		logger.String("op", op),
		logger.String("collection", collection),
		logger.Error(err),
	)
	metrics.RecordErrorByComponent("query", op)
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
