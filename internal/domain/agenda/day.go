// Package agenda holds the availability calendar and the bookings that consume its slots.
package agenda

import (
	"fmt"
	"slices"
	"time"

	"github.com/fletes-app/service-quote/internal/common/domain"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	SlotLayout  = "15:04"
)

// Day is one calendar date with its free slots. A slot is free exactly while no active
// booking references it.
type Day struct {
	date      string
	enabled   bool
	slots     []string
	updatedAt time.Time
}

// NewDay validates and builds a Day. Slots are deduplicated and sorted.
func NewDay(date string, enabled bool, slots []string) (*Day, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	for _, s := range slots {
		if err := ValidateSlot(s); err != nil {
			return nil, err
		}
	}
	return &Day{
		date:      date,
		enabled:   enabled,
		slots:     normalizeSlots(slots),
		updatedAt: time.Now().UTC(),
	}, nil
}

// ReconstructDay rebuilds a Day from persistence data (no validation).
func ReconstructDay(date string, enabled bool, slots []string, updatedAt time.Time) *Day {
	return &Day{date: date, enabled: enabled, slots: normalizeSlots(slots), updatedAt: updatedAt}
}

func (d *Day) Date() string         { return d.date }
func (d *Day) Enabled() bool        { return d.enabled }
func (d *Day) Slots() []string      { return slices.Clone(d.slots) }
func (d *Day) UpdatedAt() time.Time { return d.updatedAt }

// Has reports whether slot is currently free.
func (d *Day) Has(slot string) bool {
	_, found := slices.BinarySearch(d.slots, slot)
	return found
}

// Take removes slot if the day is enabled and the slot is free.
func (d *Day) Take(slot string) error {
	i, found := slices.BinarySearch(d.slots, slot)
	if !d.enabled || !found {
		return domain.ErrSlotUnavailable
	}
	d.slots = slices.Delete(d.slots, i, i+1)
	d.updatedAt = time.Now().UTC()
	return nil
}

// Put adds slot back. Adding a slot that is already free is a no-op.
func (d *Day) Put(slot string) {
	i, found := slices.BinarySearch(d.slots, slot)
	if !found {
		d.slots = slices.Insert(d.slots, i, slot)
	}
	d.updatedAt = time.Now().UTC()
}

// Exclude drops occupied slots from the free set and returns the ones it dropped.
func (d *Day) Exclude(occupied []string) []string {
	blocked := []string{}
	kept := d.slots[:0]
	for _, s := range d.slots {
		if slices.Contains(occupied, s) {
			blocked = append(blocked, s)
			continue
		}
		kept = append(kept, s)
	}
	d.slots = kept
	return blocked
}

func normalizeSlots(slots []string) []string {
	out := slices.Clone(slots)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ValidateDate checks a YYYY-MM-DD date.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return domain.NewValidationError(fmt.Sprintf("invalid date %q, use YYYY-MM-DD", date))
	}
	return nil
}

// ValidateSlot checks an HH:MM slot label.
func ValidateSlot(slot string) error {
	if _, err := time.Parse(SlotLayout, slot); err != nil || len(slot) != len(SlotLayout) {
		return domain.NewValidationError(fmt.Sprintf("invalid slot %q, use HH:MM", slot))
	}
	return nil
}

// MonthRange returns the first and last date of a YYYY-MM month.
func MonthRange(month string) (from, to string, err error) {
	start, err := time.Parse(MonthLayout, month)
	if err != nil {
		return "", "", domain.NewValidationError(fmt.Sprintf("invalid month %q, use YYYY-MM", month))
	}
	end := start.AddDate(0, 1, -1)
	return start.Format(DateLayout), end.Format(DateLayout), nil
}
