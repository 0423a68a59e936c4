package quote

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fletes-app/service-quote/internal/common/domain"
	"github.com/fletes-app/service-quote/internal/domain/pricing"
)

const quoteNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	dateLayout = "2006-01-02"
	slotLayout = "15:04"
)

// Request is the customer's intake form.
type Request struct {
	CustomerName  string   `json:"nombre_cliente"`
	Phone         string   `json:"telefono"`
	CargoType     string   `json:"tipo_carga"`
	Origin        string   `json:"origen"`
	Destination   string   `json:"destino"`
	Date          string   `json:"fecha,omitempty"`
	Assistant     bool     `json:"ayudante"`
	ReturnToBase  *bool    `json:"regreso_base,omitempty"`
	RealHours     *float64 `json:"horas_reales,omitempty"`
	StartTime     string   `json:"hora_inicio,omitempty"`
	EndTime       string   `json:"hora_fin,omitempty"`
	Tolls         int      `json:"peajes"`
	PerDiem       float64  `json:"viaticos"`
	AcceptedTerms bool     `json:"accepted_terms"`
	SlotDate      string   `json:"fecha_turno,omitempty"`
	SlotTime      string   `json:"hora_turno,omitempty"`
}

// Validate checks the fields every quote needs before any routing call is made.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.CustomerName) == "":
		return domain.NewValidationError("nombre_cliente is required")
	case strings.TrimSpace(r.Phone) == "":
		return domain.NewValidationError("telefono is required")
	case strings.TrimSpace(r.CargoType) == "":
		return domain.NewValidationError("tipo_carga is required")
	case strings.TrimSpace(r.Origin) == "":
		return domain.NewValidationError("origen is required")
	case strings.TrimSpace(r.Destination) == "":
		return domain.NewValidationError("destino is required")
	case r.Tolls < 0:
		return domain.NewValidationError("peajes cannot be negative")
	case r.PerDiem < 0:
		return domain.NewValidationError("viaticos cannot be negative")
	case r.RealHours != nil && *r.RealHours < 0:
		return domain.NewValidationError("horas_reales cannot be negative")
	}
	if r.SlotDate != "" {
		if _, err := time.Parse(dateLayout, r.SlotDate); err != nil {
			return domain.NewValidationError("fecha_turno must be YYYY-MM-DD")
		}
	}
	if r.SlotTime != "" {
		if _, err := time.Parse(slotLayout, r.SlotTime); err != nil || len(r.SlotTime) != len(slotLayout) {
			return domain.NewValidationError("hora_turno must be HH:MM")
		}
	}
	return nil
}

// HasSlot reports whether a (date, time) appointment was chosen.
func (r Request) HasSlot() bool {
	return r.SlotDate != "" && r.SlotTime != ""
}

// Slot identifies one bookable appointment.
type Slot struct {
	Date string `json:"fecha_turno"`
	Time string `json:"hora_turno"`
}

// Leg is one priced hop of the circuit.
type Leg struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	DistanceKm  float64 `json:"dist_km"`
	DurationMin int     `json:"tiempo_min"`
	Provider    string  `json:"provider"`
}

// Estimate is the routing and pricing outcome a quote was built from.
type Estimate struct {
	DistanceKm   float64           `json:"dist_km"`
	DrivingMin   int               `json:"tiempo_viaje_min"`
	ManualHours  *float64          `json:"horas_reales,omitempty"`
	BufferMin    int               `json:"extra_servicio_min"`
	ReturnToBase bool              `json:"regreso_base"`
	Legs         []Leg             `json:"tramos"`
	Breakdown    pricing.Breakdown `json:"costos"`
}

// Quote is the aggregate root for a customer's price estimate.
type Quote struct {
	id       uuid.UUID
	number   string
	request  Request
	estimate Estimate
	status   Status

	acceptedTermsAt *time.Time
	confirmedAt     *time.Time
	realizedAt      *time.Time

	createdAt time.Time
	updatedAt time.Time
}

// generateQuoteNumber creates a quote number in the format "FL-XXXXXX".
func generateQuoteNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(quoteNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate quote number: %w", err)
		}
		result[i] = quoteNumberChars[n.Int64()]
	}
	return "FL-" + string(result), nil
}

// NewQuote creates a quote in preview status.
func NewQuote(req Request, est Estimate) (*Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	number, err := generateQuoteNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	q := &Quote{
		id:        uuid.New(),
		number:    number,
		request:   req,
		estimate:  est,
		status:    StatusPreview,
		createdAt: now,
		updatedAt: now,
	}
	if req.AcceptedTerms {
		q.acceptedTermsAt = &now
	}
	return q, nil
}

// ReconstructQuote rebuilds a Quote from persistence data (no validation).
func ReconstructQuote(
	id uuid.UUID,
	number string,
	req Request,
	est Estimate,
	status Status,
	acceptedTermsAt *time.Time,
	confirmedAt *time.Time,
	realizedAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *Quote {
	return &Quote{
		id:              id,
		number:          number,
		request:         req,
		estimate:        est,
		status:          status,
		acceptedTermsAt: acceptedTermsAt,
		confirmedAt:     confirmedAt,
		realizedAt:      realizedAt,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

func (q *Quote) ID() uuid.UUID               { return q.id }
func (q *Quote) Number() string              { return q.number }
func (q *Quote) Request() Request            { return q.request }
func (q *Quote) Estimate() Estimate          { return q.estimate }
func (q *Quote) Status() Status              { return q.status }
func (q *Quote) AcceptedTermsAt() *time.Time { return q.acceptedTermsAt }
func (q *Quote) ConfirmedAt() *time.Time     { return q.confirmedAt }
func (q *Quote) RealizedAt() *time.Time      { return q.realizedAt }
func (q *Quote) CreatedAt() time.Time        { return q.createdAt }
func (q *Quote) UpdatedAt() time.Time        { return q.updatedAt }

// Slot returns the reserved appointment, if any.
func (q *Quote) Slot() (Slot, bool) {
	if !q.request.HasSlot() {
		return Slot{}, false
	}
	return Slot{Date: q.request.SlotDate, Time: q.request.SlotTime}, true
}

// DueBefore reports whether the appointment date is strictly earlier than today.
// Quotes without an appointment are never due.
func (q *Quote) DueBefore(today string) bool {
	return q.request.SlotDate != "" && q.request.SlotDate < today
}

// Matches reports whether the quote belongs in a listing view.
func (q *Quote) Matches(view View, today string) bool {
	switch view {
	case ViewHistorical:
		return q.status == StatusRealized
	case ViewAll:
		return true
	default:
		if !q.status.HoldsSlot() {
			return false
		}
		return q.request.SlotDate == "" || q.request.SlotDate >= today
	}
}

// --- Behavior ---

// Send moves a preview into sent. A quote can only be sent with an appointment.
func (q *Quote) Send() error {
	if !q.request.HasSlot() {
		return domain.NewValidationError("fecha_turno and hora_turno are required to send a quote")
	}
	if !q.status.CanTransitionTo(StatusSent) {
		return domain.NewInvalidStateError(string(q.status), string(StatusSent))
	}
	q.status = StatusSent
	q.updatedAt = time.Now().UTC()
	return nil
}

// Confirm moves a sent quote to confirmed. changed is false when it already was.
func (q *Quote) Confirm() (changed bool, err error) {
	if q.status == StatusConfirmed {
		return false, nil
	}
	if !q.status.CanTransitionTo(StatusConfirmed) {
		return false, domain.NewInvalidStateError(string(q.status), string(StatusConfirmed))
	}
	now := time.Now().UTC()
	q.status = StatusConfirmed
	q.confirmedAt = &now
	q.updatedAt = now
	return true, nil
}

// Reject moves a sent quote to rejected. The slot stays taken until the quote is deleted.
func (q *Quote) Reject() (changed bool, err error) {
	if q.status == StatusRejected {
		return false, nil
	}
	if !q.status.CanTransitionTo(StatusRejected) {
		return false, domain.NewInvalidStateError(string(q.status), string(StatusRejected))
	}
	q.status = StatusRejected
	q.updatedAt = time.Now().UTC()
	return true, nil
}

// Realize marks a confirmed quote as carried out.
func (q *Quote) Realize(at time.Time) error {
	if !q.status.CanTransitionTo(StatusRealized) {
		return domain.NewInvalidStateError(string(q.status), string(StatusRealized))
	}
	q.status = StatusRealized
	q.realizedAt = &at
	q.updatedAt = at
	return nil
}

// CheckDeletable returns an error unless the quote may be manually deleted.
func (q *Quote) CheckDeletable() error {
	if q.status != StatusRejected {
		return domain.NewInvalidStateError(string(q.status), "deleted")
	}
	return nil
}
