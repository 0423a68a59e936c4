package dynamo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fletes-app/service-quote/internal/domain/agenda"
	"github.com/fletes-app/service-quote/internal/domain/quote"
)

type dayItem struct {
	Date      string   `dynamodbav:"date"`
	Enabled   bool     `dynamodbav:"enabled"`
	Slots     []string `dynamodbav:"slots,stringset,omitempty"`
	UpdatedAt string   `dynamodbav:"updated_at"`
}

type quoteItem struct {
	ID              string `dynamodbav:"id"`
	Number          string `dynamodbav:"number"`
	Status          string `dynamodbav:"status"`
	SlotDate        string `dynamodbav:"slot_date"`
	SlotTime        string `dynamodbav:"slot_time"`
	Request         string `dynamodbav:"request"`
	Estimate        string `dynamodbav:"estimate"`
	AcceptedTermsAt string `dynamodbav:"accepted_terms_at,omitempty"`
	ConfirmedAt     string `dynamodbav:"confirmed_at,omitempty"`
	RealizedAt      string `dynamodbav:"realized_at,omitempty"`
	CreatedAt       string `dynamodbav:"created_at"`
	UpdatedAt       string `dynamodbav:"updated_at"`
}

type bookingItem struct {
	ID          string `dynamodbav:"id"`
	QuoteID     string `dynamodbav:"quote_id"`
	Date        string `dynamodbav:"date"`
	Slot        string `dynamodbav:"slot"`
	Status      string `dynamodbav:"status"`
	CreatedAt   string `dynamodbav:"created_at"`
	ConfirmedAt string `dynamodbav:"confirmed_at,omitempty"`
}

func toDayItem(d *agenda.Day) dayItem {
	return dayItem{
		Date:      d.Date(),
		Enabled:   d.Enabled(),
		Slots:     d.Slots(),
		UpdatedAt: formatTime(d.UpdatedAt()),
	}
}

func fromDayItem(it dayItem) *agenda.Day {
	return agenda.ReconstructDay(it.Date, it.Enabled, it.Slots, parseTime(it.UpdatedAt))
}

func toQuoteItem(q *quote.Quote) (quoteItem, error) {
	req, err := json.Marshal(q.Request())
	if err != nil {
		return quoteItem{}, fmt.Errorf("failed to marshal quote request: %w", err)
	}
	est, err := json.Marshal(q.Estimate())
	if err != nil {
		return quoteItem{}, fmt.Errorf("failed to marshal quote estimate: %w", err)
	}
	return quoteItem{
		ID:              q.ID().String(),
		Number:          q.Number(),
		Status:          string(q.Status()),
		SlotDate:        q.Request().SlotDate,
		SlotTime:        q.Request().SlotTime,
		Request:         string(req),
		Estimate:        string(est),
		AcceptedTermsAt: formatTimePtr(q.AcceptedTermsAt()),
		ConfirmedAt:     formatTimePtr(q.ConfirmedAt()),
		RealizedAt:      formatTimePtr(q.RealizedAt()),
		CreatedAt:       formatTime(q.CreatedAt()),
		UpdatedAt:       formatTime(q.UpdatedAt()),
	}, nil
}

func fromQuoteItem(it quoteItem) (*quote.Quote, error) {
	id, err := uuid.Parse(it.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid quote id %q: %w", it.ID, err)
	}
	var req quote.Request
	if err := json.Unmarshal([]byte(it.Request), &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote request: %w", err)
	}
	var est quote.Estimate
	if err := json.Unmarshal([]byte(it.Estimate), &est); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote estimate: %w", err)
	}
	status, err := quote.ParseStatus(it.Status)
	if err != nil {
		return nil, err
	}
	return quote.ReconstructQuote(
		id, it.Number, req, est, status,
		parseTimePtr(it.AcceptedTermsAt),
		parseTimePtr(it.ConfirmedAt),
		parseTimePtr(it.RealizedAt),
		parseTime(it.CreatedAt),
		parseTime(it.UpdatedAt),
	), nil
}

func toBookingItem(b *agenda.Booking) bookingItem {
	return bookingItem{
		ID:          b.ID.String(),
		QuoteID:     b.QuoteID.String(),
		Date:        b.Date,
		Slot:        b.Slot,
		Status:      string(b.Status),
		CreatedAt:   formatTime(b.CreatedAt),
		ConfirmedAt: formatTimePtr(b.ConfirmedAt),
	}
}

func active(it bookingItem) bool {
	return it.Status == string(agenda.BookingReserved) || it.Status == string(agenda.BookingConfirmed)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	return &t
}
