package service

import (
	"time"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
)

// TimeService reports the server clock, which is the reference instant for
// every visibility decision.
type TimeService struct {
	resolver *visibility.Resolver
	now      func() time.Time
}

// NewTimeService constructs the service.
func NewTimeService(resolver *visibility.Resolver) *TimeService {
	if resolver == nil {
		resolver = visibility.NewResolver(nil)
	}
	return &TimeService{resolver: resolver, now: time.Now}
}

// Now returns the current instant in the display location.
func (s *TimeService) Now() models.ServerTime {
	now := s.now().In(s.resolver.Location())
	_, offset := now.Zone()
	return models.ServerTime{
		Now:           now,
		Day:           s.resolver.DayKey(now),
		Timezone:      s.resolver.Location().String(),
		UTCOffsetSecs: offset,
	}
}
