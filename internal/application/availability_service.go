package application

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/domain/agenda"
)

// AvailabilityService manages the calendar of open days and slots.
type AvailabilityService struct {
	repo   agenda.Repository
	logger *zap.Logger
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(repo agenda.Repository, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{repo: repo, logger: logger}
}

// PublicMonth returns the free slots of every enabled day in a YYYY-MM month.
func (s *AvailabilityService) PublicMonth(ctx context.Context, month string) (map[string][]string, error) {
	from, to, err := agenda.MonthRange(month)
	if err != nil {
		return nil, err
	}
	days, err := s.repo.ListDays(ctx, from, to, true)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(days))
	for _, d := range days {
		out[d.Date()] = d.Slots()
	}
	return out, nil
}

// AdminMonth returns every stored day of a YYYY-MM month, enabled or not.
func (s *AvailabilityService) AdminMonth(ctx context.Context, month string) ([]DayDTO, error) {
	from, to, err := agenda.MonthRange(month)
	if err != nil {
		return nil, err
	}
	days, err := s.repo.ListDays(ctx, from, to, false)
	if err != nil {
		return nil, err
	}

	out := make([]DayDTO, len(days))
	for i, d := range days {
		out[i] = toDayDTO(d)
	}
	return out, nil
}

// UpsertDay saves a day. Slots currently held by a booking are left out and reported
// as blocked.
func (s *AvailabilityService) UpsertDay(ctx context.Context, req UpsertDayRequest) (*UpsertDayResult, error) {
	day, err := agenda.NewDay(req.Date, req.Enabled, req.Slots)
	if err != nil {
		return nil, err
	}
	blocked, err := s.repo.SaveDay(ctx, day)
	if err != nil {
		return nil, err
	}

	if len(blocked) > 0 {
		s.logger.Info("booked slots kept out of saved day",
			zap.String("date", day.Date()),
			zap.Strings("blocked", blocked),
		)
	}
	return &UpsertDayResult{
		Date:    day.Date(),
		Enabled: day.Enabled(),
		Blocked: blocked,
		Saved:   day.Slots(),
	}, nil
}

// BookedSlots returns the sorted slots of date held by active bookings.
func (s *AvailabilityService) BookedSlots(ctx context.Context, date string) ([]string, error) {
	if err := agenda.ValidateDate(date); err != nil {
		return nil, err
	}
	slots, err := s.repo.ActiveSlots(ctx, date)
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []string{}
	}
	slices.Sort(slots)
	return slots, nil
}
