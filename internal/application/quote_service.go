package application

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/common/domain"
	"github.com/fletes-app/service-quote/internal/domain/pricing"
	"github.com/fletes-app/service-quote/internal/domain/quote"
	"github.com/fletes-app/service-quote/internal/routing"
)

// Router estimates an ordered route.
type Router interface {
	EstimateCircuit(ctx context.Context, waypoints []string) routing.Circuit
}

// Renderer turns a stored quote into a printable document.
type Renderer interface {
	Render(q *quote.Quote) ([]byte, error)
}

// QuoteConfig holds the business constants a quote is built with.
type QuoteConfig struct {
	BaseAddress         string
	ReturnToBaseDefault bool
	Buffer              pricing.Buffer
	ContactName         string
	ContactPhone        string
}

// QuoteService is the application service orchestrating quote use cases.
type QuoteService struct {
	router   Router
	prices   pricing.Source
	ledger   *SlotLedger
	quotes   quote.Repository
	renderer Renderer
	cfg      QuoteConfig
	logger   *zap.Logger
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(
	router Router,
	prices pricing.Source,
	ledger *SlotLedger,
	quotes quote.Repository,
	renderer Renderer,
	cfg QuoteConfig,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		router:   router,
		prices:   prices,
		ledger:   ledger,
		quotes:   quotes,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Preview prices a request without persisting anything.
func (s *QuoteService) Preview(ctx context.Context, req quote.Request) (*QuoteDTO, error) {
	q, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	dto := toQuoteDTO(q)
	return &dto, nil
}

// Send prices a request and reserves its appointment.
func (s *QuoteService) Send(ctx context.Context, req quote.Request) (*SentQuoteDTO, error) {
	if !req.HasSlot() {
		return nil, domain.NewValidationError("fecha_turno and hora_turno are required to send a quote")
	}
	q, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Reserve(ctx, q); err != nil {
		return nil, err
	}

	return &SentQuoteDTO{
		QuoteDTO:    toQuoteDTO(q),
		ContactURLs: s.contactURLs(q.ID()),
	}, nil
}

// Get retrieves a stored quote.
func (s *QuoteService) Get(ctx context.Context, id uuid.UUID) (*QuoteDTO, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toQuoteDTO(q)
	return &dto, nil
}

// RenderPDF renders a stored quote as a PDF. The quote number is returned for the file name.
func (s *QuoteService) RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	out, err := s.renderer.Render(q)
	if err != nil {
		return nil, "", err
	}
	return out, q.Number(), nil
}

func (s *QuoteService) build(ctx context.Context, req quote.Request) (*quote.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	returnToBase := s.cfg.ReturnToBaseDefault
	if req.ReturnToBase != nil {
		returnToBase = *req.ReturnToBase
	}
	waypoints := []string{s.cfg.BaseAddress, req.Origin, req.Destination}
	if returnToBase {
		waypoints = append(waypoints, s.cfg.BaseAddress)
	}
	circuit := s.router.EstimateCircuit(ctx, waypoints)

	var manual *float64
	in := pricing.Input{
		DistanceKm:  circuit.DistanceKm,
		DurationMin: circuit.DurationMin,
		Assistant:   req.Assistant,
		Tolls:       req.Tolls,
		PerDiem:     req.PerDiem,
		BufferMin:   s.cfg.Buffer.BufferFor(req.CargoType),
	}
	if hours, ok := pricing.ManualHours(req.RealHours, req.StartTime, req.EndTime); ok {
		manual = &hours
		in.ManualHours = hours
	}

	legs := make([]quote.Leg, len(circuit.Segments))
	for i, seg := range circuit.Segments {
		legs[i] = quote.Leg{
			From:        seg.From,
			To:          seg.To,
			DistanceKm:  seg.DistanceKm,
			DurationMin: seg.DurationMin,
			Provider:    seg.Provider,
		}
	}

	est := quote.Estimate{
		DistanceKm:   circuit.DistanceKm,
		DrivingMin:   circuit.DurationMin,
		ManualHours:  manual,
		BufferMin:    in.BufferMin,
		ReturnToBase: returnToBase,
		Legs:         legs,
		Breakdown:    pricing.Compute(in, s.prices.Current()),
	}

	q, err := quote.NewQuote(req, est)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote: %w", err)
	}
	return q, nil
}

func (s *QuoteService) contactURLs(id uuid.UUID) ContactURLs {
	msg := fmt.Sprintf("Hola %s, te envié un presupuesto desde la web. ID: %s.", s.cfg.ContactName, id)
	phone := strings.NewReplacer("+", "", " ", "").Replace(s.cfg.ContactPhone)
	return ContactURLs{
		WhatsApp: "https://wa.me/" + phone + "?text=" + url.QueryEscape(msg),
		Tel:      "tel:" + s.cfg.ContactPhone,
	}
}
