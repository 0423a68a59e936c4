package application

import (
	"time"

	"github.com/fletes-app/service-quote/internal/domain/agenda"
	"github.com/fletes-app/service-quote/internal/domain/pricing"
	"github.com/fletes-app/service-quote/internal/domain/quote"
)

// QuoteDTO is the response representation of a quote.
type QuoteDTO struct {
	ID              string            `json:"id,omitempty"`
	Number          string            `json:"numero,omitempty"`
	CustomerName    string            `json:"nombre_cliente"`
	Phone           string            `json:"telefono"`
	CargoType       string            `json:"tipo_carga"`
	Origin          string            `json:"origen"`
	Destination     string            `json:"destino"`
	Date            string            `json:"fecha,omitempty"`
	Assistant       bool              `json:"ayudante"`
	ReturnToBase    bool              `json:"regreso_base"`
	ManualHours     *float64          `json:"horas_reales,omitempty"`
	Tolls           int               `json:"peajes"`
	PerDiem         float64           `json:"viaticos"`
	DistanceKm      float64           `json:"dist_km"`
	DrivingMin      int               `json:"tiempo_viaje_min"`
	ServiceMin      int               `json:"tiempo_servicio_min"`
	BufferMin       int               `json:"extra_servicio_min"`
	TimeCost        float64           `json:"costo_tiempo"`
	FuelCost        float64           `json:"costo_combustible"`
	Total           float64           `json:"monto_estimado"`
	Breakdown       pricing.Breakdown `json:"costos"`
	Legs            []quote.Leg       `json:"tramos"`
	Status          string            `json:"estado"`
	SlotDate        string            `json:"fecha_turno,omitempty"`
	SlotTime        string            `json:"hora_turno,omitempty"`
	AcceptedTerms   bool              `json:"accepted_terms"`
	AcceptedTermsAt *time.Time        `json:"accepted_terms_at,omitempty"`
	ConfirmedAt     *time.Time        `json:"confirmed_at,omitempty"`
	RealizedAt      *time.Time        `json:"realized_at,omitempty"`
	CreatedAt       *time.Time        `json:"created_at,omitempty"`
}

// ContactURLs are the links a customer uses to reach the professional.
type ContactURLs struct {
	WhatsApp string `json:"whatsapp"`
	Tel      string `json:"tel"`
}

// SentQuoteDTO is the response to a successful send.
type SentQuoteDTO struct {
	QuoteDTO
	ContactURLs ContactURLs `json:"contact_urls"`
}

// DayDTO is the admin representation of an availability day.
type DayDTO struct {
	Date      string    `json:"date"`
	Enabled   bool      `json:"enabled"`
	Slots     []string  `json:"slots"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertDayRequest holds the data needed to save an availability day.
type UpsertDayRequest struct {
	Date    string   `json:"date" binding:"required"`
	Enabled bool     `json:"enabled"`
	Slots   []string `json:"slots"`
}

// UpsertDayResult reports what was saved and which slots were held back.
type UpsertDayResult struct {
	Date    string   `json:"date"`
	Enabled bool     `json:"enabled"`
	Blocked []string `json:"bloqueados"`
	Saved   []string `json:"slots_guardados"`
}

// SweepResult counts the quotes a sweep changed.
type SweepResult struct {
	Realized int64 `json:"realizados"`
	Purged   int64 `json:"purgados"`
}

func toQuoteDTO(q *quote.Quote) QuoteDTO {
	req := q.Request()
	est := q.Estimate()
	dto := QuoteDTO{
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		CargoType:       req.CargoType,
		Origin:          req.Origin,
		Destination:     req.Destination,
		Date:            req.Date,
		Assistant:       req.Assistant,
		ReturnToBase:    est.ReturnToBase,
		ManualHours:     est.ManualHours,
		Tolls:           req.Tolls,
		PerDiem:         req.PerDiem,
		DistanceKm:      est.DistanceKm,
		DrivingMin:      est.DrivingMin,
		ServiceMin:      est.Breakdown.ServiceMin,
		BufferMin:       est.BufferMin,
		TimeCost:        est.Breakdown.TimeCost,
		FuelCost:        est.Breakdown.FuelCost,
		Total:           est.Breakdown.Total,
		Breakdown:       est.Breakdown,
		Legs:            est.Legs,
		Status:          string(q.Status()),
		SlotDate:        req.SlotDate,
		SlotTime:        req.SlotTime,
		AcceptedTerms:   req.AcceptedTerms,
		AcceptedTermsAt: q.AcceptedTermsAt(),
		ConfirmedAt:     q.ConfirmedAt(),
		RealizedAt:      q.RealizedAt(),
	}
	if dto.Legs == nil {
		dto.Legs = []quote.Leg{}
	}
	if q.Status() != quote.StatusPreview {
		created := q.CreatedAt()
		dto.ID = q.ID().String()
		dto.Number = q.Number()
		dto.CreatedAt = &created
	}
	return dto
}

func toQuoteDTOs(quotes []*quote.Quote) []QuoteDTO {
	out := make([]QuoteDTO, len(quotes))
	for i, q := range quotes {
		out[i] = toQuoteDTO(q)
	}
	return out
}

func toDayDTO(d *agenda.Day) DayDTO {
	return DayDTO{
		Date:      d.Date(),
		Enabled:   d.Enabled(),
		Slots:     d.Slots(),
		UpdatedAt: d.UpdatedAt(),
	}
}
