package repository

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
)

// Matches reports whether rec satisfies every condition of f.
func Matches(rec model.Record, f Filter) bool {
	for _, c := range f {
		if !matchCondition(rec[c.Field], c) {
			return false
		}
	}
	return true
}

func matchCondition(v any, c Condition) bool {
	if v == nil {
		return false
	}
	switch c.Op {
	case OpEq:
		r, ok := compare(v, c.Value)
		return ok && r == 0
	case OpContains:
		s, ok := v.(string)
		sub, ok2 := c.Value.(string)
		return ok && ok2 && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	case OpGte:
		r, ok := compare(v, c.Value)
		return ok && r >= 0
	case OpLte:
		r, ok := compare(v, c.Value)
		return ok && r <= 0
	default:
		return false
	}
}

// SortRecords orders recs in place by s. Ties and records missing the field
// keep their relative order, missing ones last.
func SortRecords(recs []model.Record, s Sort) {
	if s.Field == "" {
		return
	}
	slices.SortStableFunc(recs, func(a, b model.Record) int {
		av, bv := a[s.Field], b[s.Field]
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return 1
		case bv == nil:
			return -1
		}
		r, ok := compare(av, bv)
		if !ok {
			return 0
		}
		if s.Desc {
			return -r
		}
		return r
	})
}

// Apply filters, sorts and truncates recs. It is the reference query
// semantics every adapter follows.
func Apply(recs []model.Record, f Filter, s Sort, limit int) []model.Record {
	out := make([]model.Record, 0, len(recs))
	for _, r := range recs {
		if Matches(r, f) {
			out = append(out, r)
		}
	}
	SortRecords(out, s)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// compare orders two field values. Numbers compare numerically, times and
// RFC3339 strings chronologically, other strings lexically. ok is false when
// the values are not comparable.
func compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return cmp.Compare(af, bf), true
		}
		return 0, false
	}
	if at, ok := toTime(a); ok {
		if bt, ok := toTime(b); ok {
			return at.Compare(bt), true
		}
	}
	as, ok := a.(string)
	if !ok {
		return 0, false
	}
	bs, ok := b.(string)
	if !ok {
		return 0, false
	}
	return strings.Compare(as, bs), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		p, err := time.Parse(time.RFC3339, t)
		return p, err == nil
	default:
		return time.Time{}, false
	}
}
