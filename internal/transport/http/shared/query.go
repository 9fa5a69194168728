package shared

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Pagination is the limit/offset window of a list endpoint.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads ?limit= and ?offset=. Malformed or out of range values
// fall back to the defaults and limit is capped at maxLimit when positive.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	query := r.URL.Query()
	page := Pagination{
		Limit:  queryInt(query, "limit", 1, defaultLimit),
		Offset: queryInt(query, "offset", 0, 0),
	}
	if maxLimit > 0 {
		page.Limit = min(page.Limit, maxLimit)
	}
	return page
}

func queryInt(query url.Values, name string, floor, fallback int) int {
	v, err := strconv.Atoi(query.Get(name))
	if err != nil || v < floor {
		return fallback
	}
	return v
}

// TimeParam parses an optional timestamp filter. RFC3339 and bare
// YYYY-MM-DD (midnight UTC) are accepted; anything else is appended to issues.
func TimeParam(query url.Values, name string, issues *[]ValidationIssue) *time.Time {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed
		}
	}
	*issues = append(*issues, ValidationIssue{Field: name, Reason: "must be an RFC3339 timestamp or YYYY-MM-DD date"})
	return nil
}
