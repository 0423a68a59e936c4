package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fletes-app/service-quote/internal/common/domain"
	quoteDomain "github.com/fletes-app/service-quote/internal/domain/quote"
)

// QuoteModel is the GORM model for the quotes table.
type QuoteModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Number          string          `gorm:"uniqueIndex;not null;size:20"`
	Status          string          `gorm:"not null;size:20;index"`
	CustomerName    string          `gorm:"not null;size:200"`
	Phone           string          `gorm:"not null;size:50"`
	SlotDate        string          `gorm:"not null;size:10;default:'';index"`
	SlotTime        string          `gorm:"not null;size:5;default:''"`
	Total           float64         `gorm:"type:numeric(14,2);not null"`
	Request         json.RawMessage `gorm:"type:jsonb;not null"`
	Estimate        json.RawMessage `gorm:"type:jsonb;not null"`
	AcceptedTermsAt *time.Time      `gorm:""`
	ConfirmedAt     *time.Time      `gorm:""`
	RealizedAt      *time.Time      `gorm:""`
	CreatedAt       time.Time       `gorm:"not null;index"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (QuoteModel) TableName() string {
	return "quotes"
}

// GormQuoteRepository is the GORM-based implementation of quote.Repository.
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository.
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByID retrieves a quote by its unique identifier.
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*quoteDomain.Quote, error) {
	var model QuoteModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Quote", id.String())
		}
		return nil, classify("failed to find quote by ID", err)
	}
	return toDomainQuote(&model)
}

// List returns the quotes in view, newest first.
func (r *GormQuoteRepository) List(ctx context.Context, view quoteDomain.View, today string) ([]*quoteDomain.Quote, error) {
	q := r.db.WithContext(ctx).Model(&QuoteModel{})
	switch view {
	case quoteDomain.ViewHistorical:
		q = q.Where("status = ?", string(quoteDomain.StatusRealized))
	case quoteDomain.ViewAll:
	default:
		q = q.Where("status IN ?", []string{
			string(quoteDomain.StatusSent),
			string(quoteDomain.StatusRejected),
			string(quoteDomain.StatusConfirmed),
		}).Where("slot_date = '' OR slot_date >= ?", today)
	}

	var models []QuoteModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, classify("failed to list quotes", err)
	}

	quotes := make([]*quoteDomain.Quote, len(models))
	for i := range models {
		qt, err := toDomainQuote(&models[i])
		if err != nil {
			return nil, err
		}
		quotes[i] = qt
	}
	return quotes, nil
}

// Update persists a status change made from status from.
func (r *GormQuoteRepository) Update(ctx context.Context, qt *quoteDomain.Quote, from quoteDomain.Status) error {
	return updateQuoteStatus(r.db.WithContext(ctx), qt, from)
}

// RealizeBefore moves confirmed quotes whose appointment is before today to realized.
func (r *GormQuoteRepository) RealizeBefore(ctx context.Context, today string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&QuoteModel{}).
		Where("status = ? AND slot_date <> '' AND slot_date < ?", string(quoteDomain.StatusConfirmed), today).
		Updates(map[string]interface{}{
			"status":      string(quoteDomain.StatusRealized),
			"realized_at": at,
			"updated_at":  at,
		})
	if result.Error != nil {
		return 0, classify("failed to realize quotes", result.Error)
	}
	return result.RowsAffected, nil
}

// PurgeBefore deletes sent and rejected quotes whose appointment is before today.
func (r *GormQuoteRepository) PurgeBefore(ctx context.Context, today string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND slot_date <> '' AND slot_date < ?",
			[]string{string(quoteDomain.StatusSent), string(quoteDomain.StatusRejected)}, today).
		Delete(&QuoteModel{})
	if result.Error != nil {
		return 0, classify("failed to purge quotes", result.Error)
	}
	return result.RowsAffected, nil
}

// updateQuoteStatus writes the quote's status only while the row is still in from.
func updateQuoteStatus(db *gorm.DB, qt *quoteDomain.Quote, from quoteDomain.Status) error {
	result := db.
		Model(&QuoteModel{}).
		Where("id = ? AND status = ?", qt.ID(), string(from)).
		Updates(map[string]interface{}{
			"status":       string(qt.Status()),
			"confirmed_at": qt.ConfirmedAt(),
			"realized_at":  qt.RealizedAt(),
			"updated_at":   qt.UpdatedAt(),
		})
	if result.Error != nil {
		return classify("failed to update quote", result.Error)
	}
	if result.RowsAffected == 0 {
		return quoteDomain.NewStatusChangedError(qt.ID(), from)
	}
	return nil
}

// --- Conversion Helpers ---

func toQuoteModel(qt *quoteDomain.Quote) (*QuoteModel, error) {
	req := qt.Request()
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quote request: %w", err)
	}
	est := qt.Estimate()
	estJSON, err := json.Marshal(est)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quote estimate: %w", err)
	}

	return &QuoteModel{
		ID:              qt.ID(),
		Number:          qt.Number(),
		Status:          string(qt.Status()),
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		SlotDate:        req.SlotDate,
		SlotTime:        req.SlotTime,
		Total:           est.Breakdown.Total,
		Request:         reqJSON,
		Estimate:        estJSON,
		AcceptedTermsAt: qt.AcceptedTermsAt(),
		ConfirmedAt:     qt.ConfirmedAt(),
		RealizedAt:      qt.RealizedAt(),
		CreatedAt:       qt.CreatedAt(),
		UpdatedAt:       qt.UpdatedAt(),
	}, nil
}

func toDomainQuote(m *QuoteModel) (*quoteDomain.Quote, error) {
	var req quoteDomain.Request
	if err := json.Unmarshal(m.Request, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote request: %w", err)
	}
	var est quoteDomain.Estimate
	if err := json.Unmarshal(m.Estimate, &est); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote estimate: %w", err)
	}

	status, err := quoteDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return quoteDomain.ReconstructQuote(
		m.ID,
		m.Number,
		req,
		est,
		status,
		m.AcceptedTermsAt,
		m.ConfirmedAt,
		m.RealizedAt,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
