package pagination

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Params holds validated pagination parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse extracts and validates page/limit from query parameters
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Range is an optional from/to window taken from the query string.
type Range struct {
	From *time.Time
	To   *time.Time
}

// ParseRange reads "from" and "to" as RFC 3339 timestamps or YYYY-MM-DD dates.
// A bare "to" date is inclusive, so it is moved to the start of the next day.
func ParseRange(c *gin.Context) (Range, error) {
	var r Range
	if v := c.Query("from"); v != "" {
		t, _, err := parseTime(v)
		if err != nil {
			return r, err
		}
		r.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, dateOnly, err := parseTime(v)
		if err != nil {
			return r, err
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		r.To = &t
	}
	return r, nil
}

func parseTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	return t, true, err
}

// UintParam reads a positive integer path or query value. ok is false when
// the value is absent or malformed.
func UintParam(v string) (uint, bool) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
