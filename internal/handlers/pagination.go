package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type pageParams struct {
	Limit  int
	Offset int
	From   *time.Time
	To     *time.Time
}

// parsePageParams reads limit/offset/from/to query parameters. Listings use
// limit+1 look-ahead underneath, so the limit is clamped rather than
// rejected.
func parsePageParams(c *fiber.Ctx) (pageParams, string) {
	params := pageParams{Limit: defaultPageLimit}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return params, "limit must be a positive integer"
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		params.Limit = limit
	}

	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return params, "offset must not be negative"
		}
		params.Offset = offset
	}

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, "from must be a valid RFC3339 timestamp"
		}
		params.From = &from
	}

	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, "to must be a valid RFC3339 timestamp"
		}
		params.To = &to
	}

	return params, ""
}
