package shared

import (
	"net/http"
	"strconv"
)

// Pagination is the limit/offset window of a list request.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset query parameters, falling back to
// defaultLimit and capping at maxLimit. Malformed values are ignored rather
// than rejected; list endpoints never 400 on pagination noise.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	page := Pagination{Limit: defaultLimit}
	query := r.URL.Query()
	if v, err := strconv.Atoi(query.Get("limit")); err == nil && v > 0 {
		page.Limit = v
	}
	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	if v, err := strconv.Atoi(query.Get("offset")); err == nil && v > 0 {
		page.Offset = v
	}
	return page
}
