package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-api/internal/middleware"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	"github.com/noah-isme/sma-bulletin-api/pkg/response"
)

type feedService interface {
	Compose(ctx context.Context, at time.Time) (*models.Feed, error)
	Signage(ctx context.Context) (*models.Feed, bool, error)
}

// FeedHandler serves the combined feed, the signage display and the clock.
type FeedHandler struct {
	feeds    feedService
	clock    clock
	resolver *visibility.Resolver
}

// NewFeedHandler creates a new handler.
func NewFeedHandler(feeds feedService, clk clock, resolver *visibility.Resolver) *FeedHandler {
	if resolver == nil {
		resolver = visibility.NewResolver(nil)
	}
	return &FeedHandler{feeds: feeds, clock: clk, resolver: resolver}
}

// Feed godoc
// @Summary Combined bulletin feed
// @Description Active events, announcements, alerts and welcome slides as seen on the given day
// @Tags Feed
// @Produce json
// @Param at query string false "Reference date or datetime, defaults to now"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /feed [get]
func (h *FeedHandler) Feed(c *gin.Context) {
	at, err := referenceInstant(c, h.resolver, h.clock)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.feeds.Compose(c.Request.Context(), at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Signage godoc
// @Summary Signage display feed
// @Description The feed for right now, served from the refreshed snapshot when it is current
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /signage/feed [get]
func (h *FeedHandler) Signage(c *gin.Context) {
	result, hit, err := h.feeds.Signage(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, result, middleware.ExtractMeta(c))
}

// Time godoc
// @Summary Server clock
// @Description Authoritative current time and day in the display timezone
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time [get]
func (h *FeedHandler) Time(c *gin.Context) {
	response.OK(c, h.clock.Now())
}
