package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-facility-api/internal/dto"
	"github.com/noah-isme/sma-facility-api/internal/models"
	"github.com/noah-isme/sma-facility-api/internal/repository"
	"github.com/noah-isme/sma-facility-api/internal/schedule"
	"github.com/noah-isme/sma-facility-api/pkg/config"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
)

type calendarBookingLister interface {
	ListByDateRange(ctx context.Context, from, to, resource string) ([]models.Booking, error)
}

type calendarCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type bookingEventSource interface {
	Subscribe(ctx context.Context) (<-chan repository.BookingEvent, func())
}

// CalendarService projects bookings onto month grids. Projections are cached
// per (month, resource) and invalidated by the shared booking feed, so every
// viewer sees the same grid regardless of which instance served them.
type CalendarService struct {
	repo     calendarBookingLister
	cache    calendarCache
	feed     bookingEventSource
	logger   *zap.Logger
	location *time.Location

	cacheEnabled bool
	cacheTTL     time.Duration
	now          func() time.Time
}

// NewCalendarService constructs the service.
func NewCalendarService(repo calendarBookingLister, cache calendarCache, feed bookingEventSource, logger *zap.Logger, calCfg config.CalendarConfig, bookingCfg config.BookingConfig) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	location, err := time.LoadLocation(bookingCfg.Timezone)
	if err != nil || bookingCfg.Timezone == "" {
		location = time.Local
	}
	return &CalendarService{
		repo:         repo,
		cache:        cache,
		feed:         feed,
		logger:       logger,
		location:     location,
		cacheEnabled: calCfg.CacheEnabled,
		cacheTTL:     calCfg.CacheTTL,
		now:          time.Now,
	}
}

// MonthGrid projects the month calendar for one resource, or for all
// resources combined when resource is empty. A day counts as booked when any
// active booking exists for the requested scope.
func (s *CalendarService) MonthGrid(ctx context.Context, year int, month int, resource string) (*dto.MonthGridResponse, error) {
	if year < 1 || month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year and month are out of range")
	}

	key := s.cacheKey(year, month, resource)
	if s.cacheEnabled && s.cache != nil {
		var cached dto.MonthGridResponse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("calendar cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	m := time.Month(month)
	from := schedule.CivilDate{Year: year, Month: m, Day: 1}.String()
	to := schedule.CivilDate{Year: year, Month: m, Day: schedule.DaysIn(year, m)}.String()

	bookings, err := s.repo.ListByDateRange(ctx, from, to, resource)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for month")
	}

	today := schedule.DateOf(s.now().In(s.location))
	grid := &dto.MonthGridResponse{
		Year:     year,
		Month:    month,
		Resource: resource,
		Cells:    schedule.ProjectMonth(year, m, today, bookings),
	}

	if s.cacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, grid, s.cacheTTL); err != nil {
			s.logger.Warn("calendar cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return grid, nil
}

// WatchFeed consumes the booking event feed and drops cached projections for
// each month a mutation touches. It blocks until ctx ends; run it on its own
// goroutine.
func (s *CalendarService) WatchFeed(ctx context.Context) {
	if s.feed == nil || s.cache == nil || !s.cacheEnabled {
		return
	}
	events, cancel := s.feed.Subscribe(ctx)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.invalidate(ctx, event)
		}
	}
}

func (s *CalendarService) invalidate(ctx context.Context, event repository.BookingEvent) {
	if len(event.Date) < 7 {
		return
	}
	pattern := fmt.Sprintf("calendar:%s*", event.Date[:7])
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("calendar cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	s.logger.Debug("calendar cache invalidated",
		zap.String("pattern", pattern),
		zap.String("booking_id", event.BookingID),
		zap.String("event", string(event.Type)))
}

func (s *CalendarService) cacheKey(year, month int, resource string) string {
	if resource == "" {
		return fmt.Sprintf("calendar:%04d-%02d:all", year, month)
	}
	return fmt.Sprintf("calendar:%04d-%02d:%s", year, month, resource)
}
