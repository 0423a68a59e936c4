package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fletes-app/service-quote/internal/common/domain"
	"github.com/fletes-app/service-quote/internal/domain/agenda"
	quoteDomain "github.com/fletes-app/service-quote/internal/domain/quote"
)

// DayModel is the GORM model for the availability_days table.
type DayModel struct {
	Date      string         `gorm:"primaryKey;size:10"`
	Enabled   bool           `gorm:"not null;default:false"`
	Slots     pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	UpdatedAt time.Time      `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (DayModel) TableName() string {
	return "availability_days"
}

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	QuoteID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Date        string     `gorm:"not null;size:10;index:idx_bookings_date_slot"`
	Slot        string     `gorm:"not null;size:5;index:idx_bookings_date_slot"`
	Status      string     `gorm:"not null;size:20"`
	CreatedAt   time.Time  `gorm:"not null"`
	ConfirmedAt *time.Time `gorm:""`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

var activeBookingStatuses = []string{
	string(agenda.BookingReserved),
	string(agenda.BookingConfirmed),
}

// GormAgendaRepository is the GORM-based implementation of agenda.Repository.
type GormAgendaRepository struct {
	db *gorm.DB
}

// NewGormAgendaRepository creates a new GormAgendaRepository.
func NewGormAgendaRepository(db *gorm.DB) *GormAgendaRepository {
	return &GormAgendaRepository{db: db}
}

// Ping checks the database connection.
func (r *GormAgendaRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// FindDay retrieves a day by date.
func (r *GormAgendaRepository) FindDay(ctx context.Context, date string) (*agenda.Day, error) {
	var model DayModel
	if err := r.db.WithContext(ctx).Where("date = ?", date).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Day", date)
		}
		return nil, classify("failed to find day", err)
	}
	return toDomainDay(&model), nil
}

// ListDays returns days between from and to inclusive, ordered by date.
func (r *GormAgendaRepository) ListDays(ctx context.Context, from, to string, enabledOnly bool) ([]*agenda.Day, error) {
	q := r.db.WithContext(ctx).Where("date BETWEEN ? AND ?", from, to)
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}

	var models []DayModel
	if err := q.Order("date ASC").Find(&models).Error; err != nil {
		return nil, classify("failed to list days", err)
	}

	days := make([]*agenda.Day, len(models))
	for i := range models {
		days[i] = toDomainDay(&models[i])
	}
	return days, nil
}

// SaveDay locks the day row, drops slots held by active bookings and writes the result.
func (r *GormAgendaRepository) SaveDay(ctx context.Context, day *agenda.Day) ([]string, error) {
	var blocked []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []DayModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("date = ?", day.Date()).
			Find(&existing).Error; err != nil {
			return err
		}

		occupied, err := activeSlots(tx, day.Date())
		if err != nil {
			return err
		}
		blocked = day.Exclude(occupied)

		model := toDayModel(day)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "slots", "updated_at"}),
		}).Create(model).Error
	})
	if err != nil {
		return nil, classify("failed to save day", err)
	}
	return blocked, nil
}

// ActiveSlots returns the sorted slots on date held by reserved or confirmed bookings.
func (r *GormAgendaRepository) ActiveSlots(ctx context.Context, date string) ([]string, error) {
	slots, err := activeSlots(r.db.WithContext(ctx), date)
	if err != nil {
		return nil, classify("failed to list booked slots", err)
	}
	return slots, nil
}

// Reserve takes the slot with a single conditional update, then inserts the quote and its
// booking in the same transaction.
func (r *GormAgendaRepository) Reserve(ctx context.Context, q *quoteDomain.Quote, b *agenda.Booking) error {
	qm, err := toQuoteModel(q)
	if err != nil {
		return fmt.Errorf("failed to convert quote to model: %w", err)
	}
	bm := toBookingModel(b)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE availability_days
			    SET slots = array_remove(slots, ?), updated_at = ?
			  WHERE date = ? AND enabled AND ? = ANY(slots)`,
			b.Slot, time.Now().UTC(), b.Date, b.Slot,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrSlotUnavailable
		}

		if err := tx.Create(qm).Error; err != nil {
			return err
		}
		return tx.Create(bm).Error
	})
	if err != nil {
		return classify("failed to reserve slot", err)
	}
	return nil
}

// Confirm stores the confirmed quote and flips its booking, recreating it if it is gone.
// The quote row must still be sent.
func (r *GormAgendaRepository) Confirm(ctx context.Context, q *quoteDomain.Quote, at time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateQuoteStatus(tx, q, quoteDomain.StatusSent); err != nil {
			return err
		}

		result := tx.Model(&BookingModel{}).
			Where("quote_id = ?", q.ID()).
			Updates(map[string]interface{}{
				"status":       string(agenda.BookingConfirmed),
				"confirmed_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		slot, ok := q.Slot()
		if !ok {
			return nil
		}
		b := agenda.NewBooking(q.ID(), slot.Date, slot.Time)
		b.Status = agenda.BookingConfirmed
		b.ConfirmedAt = &at
		return tx.Create(toBookingModel(b)).Error
	})
	if err != nil {
		return classify("failed to confirm booking", err)
	}
	return nil
}

// Release deletes the quote and its bookings and merges the slot back into its day.
func (r *GormAgendaRepository) Release(ctx context.Context, quoteID uuid.UUID, slot quoteDomain.Slot) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", quoteID).Delete(&QuoteModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Quote", quoteID.String())
		}

		if slot.Date == "" || slot.Time == "" {
			return tx.Where("quote_id = ?", quoteID).Delete(&BookingModel{}).Error
		}

		if err := tx.Where("quote_id = ? OR (date = ? AND slot = ?)", quoteID, slot.Date, slot.Time).
			Delete(&BookingModel{}).Error; err != nil {
			return err
		}

		return tx.Exec(
			`INSERT INTO availability_days (date, enabled, slots, updated_at)
			 VALUES (?, false, ARRAY[?]::text[], ?)
			 ON CONFLICT (date) DO UPDATE
			    SET slots = CASE
			                  WHEN ? = ANY(availability_days.slots) THEN availability_days.slots
			                  ELSE array_append(availability_days.slots, ?)
			                END,
			        updated_at = EXCLUDED.updated_at`,
			slot.Date, slot.Time, time.Now().UTC(), slot.Time, slot.Time,
		).Error
	})
	if err != nil {
		return classify("failed to release slot", err)
	}
	return nil
}

func activeSlots(db *gorm.DB, date string) ([]string, error) {
	var slots []string
	err := db.Model(&BookingModel{}).
		Where("date = ? AND status IN ?", date, activeBookingStatuses).
		Distinct("slot").
		Order("slot ASC").
		Pluck("slot", &slots).Error
	if slots == nil {
		slots = []string{}
	}
	return slots, err
}

// --- Conversion Helpers ---

func toDayModel(d *agenda.Day) *DayModel {
	return &DayModel{
		Date:      d.Date(),
		Enabled:   d.Enabled(),
		Slots:     pq.StringArray(d.Slots()),
		UpdatedAt: d.UpdatedAt(),
	}
}

func toDomainDay(m *DayModel) *agenda.Day {
	return agenda.ReconstructDay(m.Date, m.Enabled, []string(m.Slots), m.UpdatedAt)
}

func toBookingModel(b *agenda.Booking) *BookingModel {
	return &BookingModel{
		ID:          b.ID,
		QuoteID:     b.QuoteID,
		Date:        b.Date,
		Slot:        b.Slot,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		ConfirmedAt: b.ConfirmedAt,
	}
}
