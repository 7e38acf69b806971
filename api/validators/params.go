package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
)

// DateLayout is the calendar-day format accepted by ledger filters.
const DateLayout = "2006-01-02"

// ParsePathID reads a positive int64 route parameter.
func ParsePathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, key)), 10, 64)
	if err != nil || id <= 0 {
		return 0, paramError("invalid path parameter", key, nil)
	}
	return id, nil
}

// ParseQueryInt returns def when key is absent and rejects values outside
// [min, max].
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw, ok := queryValue(r, key)
	if !ok {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, paramError("query parameter must be numeric", key, nil)
	}
	if value < min || value > max {
		return 0, paramError("query parameter out of range", key, map[string]any{"min": min, "max": max})
	}
	return value, nil
}

// ParseQueryInt64 returns nil when the parameter is absent.
func ParseQueryInt64(r *http.Request, key string) (*int64, error) {
	return parseOptional(r, key, "query parameter must be numeric", nil, func(raw string) (int64, error) {
		return strconv.ParseInt(raw, 10, 64)
	})
}

func ParseQueryDate(r *http.Request, key string) (*time.Time, error) {
	return parseOptional(r, key, "query parameter must be a date", map[string]any{"format": DateLayout}, func(raw string) (time.Time, error) {
		return time.ParseInLocation(DateLayout, raw, time.UTC)
	})
}

func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	return parseOptional(r, key, "query parameter must be a boolean", nil, strconv.ParseBool)
}

func parseOptional[T any](r *http.Request, key, msg string, extra map[string]any, parse func(string) (T, error)) (*T, error) {
	raw, ok := queryValue(r, key)
	if !ok {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, paramError(msg, key, extra)
	}
	return &value, nil
}

func queryValue(r *http.Request, key string) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	return raw, raw != ""
}

func paramError(msg, key string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}
