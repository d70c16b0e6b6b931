// Package repository defines the record store interface, its filter
// language, and the store adapters.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
)

// Op is a comparison operator used in a Condition.
type Op string

const (
	OpEq       Op = "eq"       // exact equality (numbers compare numerically)
	OpContains Op = "contains" // case-insensitive substring
	OpGte      Op = "gte"
	OpLte      Op = "lte"
)

// Condition restricts one field of a record.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter []Condition

// Sort orders results by one field. A zero Sort keeps store order.
type Sort struct {
	Field string
	Desc  bool
}

// Store provides read/write access to record collections.
type Store interface {
	// Find returns up to limit records of collection matching filter, in sort
	// order. A non-positive limit returns every match.
	Find(ctx context.Context, collection string, filter Filter, sort Sort, limit int) ([]model.Record, error)

	// Insert stores rec, replacing any record with the same id. Records
	// without an id get a generated one.
	Insert(ctx context.Context, collection string, rec model.Record) error

	// Count returns the number of records in collection.
	Count(ctx context.Context, collection string) (int, error)
}

// Closer is implemented by stores that hold resources.
type Closer interface {
	Close() error
}

// prepare copies rec and fills in a generated id when none is set.
func prepare(rec model.Record) (model.Record, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}
	if v, ok := rec[model.FieldID]; ok {
		if id, isStr := v.(string); !isStr || id == "" {
			return nil, fmt.Errorf("%w: id must be a non-empty string", ErrInvalidRecord)
		}
	}
	rec = rec.Clone()
	if rec.ID() == "" {
		rec[model.FieldID] = uuid.NewString()
	}
	return rec, nil
}
