// Package validator checks query parameters of the read API and returns
// per-field error details.
package validator

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ListQuery is a validated list request.
type ListQuery struct {
	Limit       int
	NewestFirst bool
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateListQuery parses limit and order. A missing limit means
// defaultLimit; order is "desc" (default) or "asc".
func ValidateListQuery(values url.Values, defaultLimit, maxLimit int) (ListQuery, error) {
	errs := make(map[string]string)
	q := ListQuery{Limit: defaultLimit, NewestFirst: true}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			errs["limit"] = "limit must be an integer"
		case n < 1:
			errs["limit"] = "limit must be at least 1"
		case n > maxLimit:
			errs["limit"] = fmt.Sprintf("limit must be at most %d", maxLimit)
		default:
			q.Limit = n
		}
	}

	switch strings.ToLower(strings.TrimSpace(values.Get("order"))) {
	case "", "desc":
	case "asc":
		q.NewestFirst = false
	default:
		errs["order"] = "order must be asc or desc"
	}

	if len(errs) > 0 {
		return ListQuery{}, &ValidationError{Fields: errs}
	}
	return q, nil
}
