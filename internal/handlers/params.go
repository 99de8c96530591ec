package handlers

import (
	"strconv"
	"strings"

	contextutils "coachapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Query parameter bounds
const (
	maxWeekOffset       = 52
	maxWeeksBack        = 52
	defaultListLimit    = 50
	maxListLimit        = 200
	userIDParam         = "userId"
	itemIDParam         = "itemId"
	weekOffsetQueryName = "week_offset"
)

// ParseUserID reads the :userId path parameter as a positive integer
func ParseUserID(c *gin.Context) (int, error) {
	raw := c.Param(userIDParam)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid user id %q", raw)
	}
	return id, nil
}

// ParseItemID reads the :itemId path parameter as a UUID
func ParseItemID(c *gin.Context) (uuid.UUID, error) {
	raw := c.Param(itemIDParam)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid roadmap item id %q", raw)
	}
	return id, nil
}

// ParseWeekOffset reads ?week_offset=, defaulting to the current week
func ParseWeekOffset(c *gin.Context) (int, error) {
	return parseBoundedInt(c, weekOffsetQueryName, 0, -maxWeekOffset, maxWeekOffset)
}

// ParseWeeksBack reads ?weeks_back=. Zero means the configured default.
func ParseWeeksBack(c *gin.Context) (int, error) {
	return parseBoundedInt(c, "weeks_back", 0, 0, maxWeeksBack)
}

// ParseLimit reads ?limit= and clamps it to maxListLimit. Invalid values fall back to the default.
func ParseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit < 1 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func parseBoundedInt(c *gin.Context, key string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "%s must be an integer, got %q", key, raw)
	}
	if v < lo || v > hi {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "%s must be between %d and %d", key, lo, hi)
	}
	return v, nil
}
