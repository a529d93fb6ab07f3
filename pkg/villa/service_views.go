package villa

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultCalendarDays = 14
	maxCalendarDays     = 92
)

// Overview computes the derived dashboard views over current data.
func (service *Service) Overview(ctx context.Context) (Overview, error) {
	rooms, err := service.store.ListRooms(ctx, nil)
	if err != nil {
		return Overview{}, err
	}
	reservations, err := service.store.ListReservations(ctx, ReservationFilter{})
	if err != nil {
		return Overview{}, err
	}
	housekeeping, err := service.Housekeeping(ctx)
	if err != nil {
		return Overview{}, err
	}
	return BuildOverview(service.Now(), service.location, rooms, reservations, housekeeping), nil
}

// Calendar lays out reservations over days local dates starting at start
// (YYYY-MM-DD, today when empty). days of zero selects the default window.
func (service *Service) Calendar(ctx context.Context, start string, days int) (Calendar, error) {
	if days == 0 {
		days = defaultCalendarDays
	}
	if days < 0 || days > maxCalendarDays {
		return Calendar{}, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidDateRange, maxCalendarDays)
	}
	windowStart := startOfDay(service.Now(), service.location)
	if strings.TrimSpace(start) != "" {
		parsed, err := ParseDate(start, service.location)
		if err != nil {
			return Calendar{}, err
		}
		windowStart = parsed
	}
	windowEnd := windowStart.AddDate(0, 0, days)
	from := NormalizeTime(windowStart)
	to := NormalizeTime(windowEnd)

	rooms, err := service.store.ListRooms(ctx, nil)
	if err != nil {
		return Calendar{}, err
	}
	reservations, err := service.store.ListReservations(ctx, ReservationFilter{From: &from, To: &to, ExcludeCancelled: true})
	if err != nil {
		return Calendar{}, err
	}
	return CalendarLayout(windowStart, days, rooms, reservations, service.location)
}
