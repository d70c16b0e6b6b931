package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

// FanStat is a fan-submitted stat line.
type FanStat struct {
	Sport  string    `json:"sport" validate:"required,max=32"`
	Team   string    `json:"team" validate:"required,max=64"`
	Player string    `json:"player" validate:"required,max=64"`
	Stat   string    `json:"stat" validate:"required,max=32"`
	Value  float64   `json:"value" validate:"gte=0"`
	Date   time.Time `json:"date"`
}

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // validator caches struct metadata

// Submit validates and stores a fan stat in collection, which must be
// fan_stats. The stored record is returned.
func (r *Resolver) Submit(ctx context.Context, collection string, stat FanStat) (model.Record, error) {
	if !Known(collection) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if collection != model.FanStats {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, collection)
	}

	stat.Sport = strings.ToLower(strings.TrimSpace(stat.Sport))
	stat.Team = strings.TrimSpace(stat.Team)
	stat.Player = strings.TrimSpace(stat.Player)
	stat.Stat = strings.TrimSpace(stat.Stat)
	if err := validate.Struct(stat); err != nil {
		metrics.RecordQueryValidationError("invalid_submission")
		return nil, invalid(ErrInvalidSubmission, fieldOf(err), "Invalid fan stat: "+describe(err))
	}
	if stat.Date.IsZero() {
		stat.Date = r.now()
	}

	rec := model.Record{
		model.FieldID:   uuid.NewString(),
		"sport":         stat.Sport,
		"team":          stat.Team,
		"player":        stat.Player,
		"stat":          stat.Stat,
		"value":         stat.Value,
		model.FieldDate: stat.Date.UTC().Format(time.RFC3339),
	}
	if err := r.store.Insert(ctx, collection, rec); err != nil {
		return nil, r.storeError(ctx, "insert", collection, err)
	}
	return rec, nil
}

func fieldOf(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return strings.ToLower(verrs[0].Field())
	}
	return ""
}

// describe renders validator errors as "player is required, value must be gte 0".
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			parts = append(parts, field+" is required")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param()))
	}
	return strings.Join(parts, ", ")
}
