package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/middleware"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type clock interface {
	Now() models.ServerTime
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

func paramID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer")
	}
	return id, nil
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

// queryIDs reads a comma separated id list, e.g. ?calendar_id=1,3.
func queryIDs(c *gin.Context, key string) ([]int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a list of ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// queryDate parses an optional date filter into a calendar date.
func queryDate(c *gin.Context, resolver *visibility.Resolver, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := resolver.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// referenceInstant resolves ?at= or falls back to the server clock.
func referenceInstant(c *gin.Context, resolver *visibility.Resolver, clk clock) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("at"))
	if raw == "" {
		return clk.Now().Now, nil
	}
	return resolver.ParseMarker(raw)
}
