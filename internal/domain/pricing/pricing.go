// Package pricing turns distance, driving time and service options into an itemized quote.
package pricing

import (
	"fmt"
	"math"
	"strings"
)

// MaintenanceMode selects how vehicle maintenance is charged. Only one applies.
type MaintenanceMode string

const (
	MaintenancePerKm   MaintenanceMode = "per_km"
	MaintenancePercent MaintenanceMode = "percent"
	MaintenanceNone    MaintenanceMode = "none"
)

// ParseMaintenanceMode validates a configured mode. Empty means per_km.
func ParseMaintenanceMode(s string) (MaintenanceMode, error) {
	switch m := MaintenanceMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MaintenancePerKm, nil
	case MaintenancePerKm, MaintenancePercent, MaintenanceNone:
		return m, nil
	default:
		return "", fmt.Errorf("unknown maintenance mode: %s", s)
	}
}

// Config holds every tariff parameter. A Config value is never mutated once built.
type Config struct {
	BaseFee             float64
	HourlyRate          float64
	WeightFactor        float64
	RoundingBlockMin    int
	MinHours            float64
	MaintenanceMode     MaintenanceMode
	MaintenancePerKm    float64
	MaintenancePct      float64 // fraction of time cost, e.g. 0.1
	KmPerLiter          float64
	LiterPrice          float64
	TollUnitPrice       float64
	AssistantHourlyRate float64
	AssistantInTotal    bool
	DriverHourlyRate    float64
	AdminHourlyRate     float64
	MinimumTotal        float64
	CurrencyDecimals    int
}

// Input is everything a single computation depends on besides Config.
type Input struct {
	DistanceKm  float64
	DurationMin int
	Assistant   bool
	ManualHours float64 // wins over DurationMin when > 0
	Tolls       int
	PerDiem     float64
	BufferMin   int
}

// Breakdown is the itemized result. Total is the sum of the charged items, floored at
// the configured minimum.
type Breakdown struct {
	ServiceHours   float64 `json:"horas_base"`
	ServiceMin     int     `json:"tiempo_servicio_min"`
	BaseFee        float64 `json:"base_fija"`
	TimeCost       float64 `json:"costo_tiempo"`
	Maintenance    float64 `json:"mantenimiento"`
	FuelCost       float64 `json:"costo_combustible"`
	TollCost       float64 `json:"peajes_total"`
	PerDiem        float64 `json:"viaticos"`
	AssistantCost  float64 `json:"costo_ayudante"`
	DriverPartial  float64 `json:"costo_chofer_parcial"`
	AdminPartial   float64 `json:"costo_admin_parcial"`
	MinimumApplied bool    `json:"minimo_aplicado"`
	Total          float64 `json:"monto_estimado"`
}

// Compute prices one quote. It has no side effects.
func Compute(in Input, cfg Config) Breakdown {
	distance := nonNegative(in.DistanceKm)

	drivingHours := float64(max(in.DurationMin, 0)) / 60
	if in.ManualHours > 0 {
		drivingHours = in.ManualHours
	}

	weight := cfg.WeightFactor
	if weight <= 0 {
		weight = 1
	}
	serviceHours := drivingHours*weight + float64(max(in.BufferMin, 0))/60
	if serviceHours < cfg.MinHours {
		serviceHours = cfg.MinHours
	}

	serviceMin := serviceHours * 60
	if block := cfg.RoundingBlockMin; block > 0 {
		blocks := math.Ceil(serviceMin/float64(block) - 1e-9)
		serviceMin = blocks * float64(block)
		serviceHours = serviceMin / 60
	}

	money := func(v float64) float64 { return roundHalfUp(v, cfg.CurrencyDecimals) }

	b := Breakdown{
		ServiceHours:  math.Round(serviceHours*100) / 100,
		ServiceMin:    int(math.Round(serviceMin)),
		BaseFee:       money(cfg.BaseFee),
		TimeCost:      money(serviceHours * cfg.HourlyRate),
		FuelCost:      money(distance / math.Max(cfg.KmPerLiter, 0.1) * cfg.LiterPrice),
		TollCost:      money(float64(max(in.Tolls, 0)) * cfg.TollUnitPrice),
		PerDiem:       money(nonNegative(in.PerDiem)),
		DriverPartial: money(serviceHours * cfg.DriverHourlyRate),
		AdminPartial:  money(serviceHours * cfg.AdminHourlyRate),
	}

	switch cfg.MaintenanceMode {
	case MaintenancePercent:
		b.Maintenance = money(b.TimeCost * cfg.MaintenancePct)
	case MaintenanceNone:
	default:
		b.Maintenance = money(distance * cfg.MaintenancePerKm)
	}

	if in.Assistant {
		b.AssistantCost = money(serviceHours * cfg.AssistantHourlyRate)
	}

	total := b.BaseFee + b.TimeCost + b.FuelCost + b.Maintenance + b.TollCost + b.PerDiem
	if cfg.AssistantInTotal {
		total += b.AssistantCost
	}
	total = money(total)

	if minimum := money(cfg.MinimumTotal); total < minimum {
		total = minimum
		b.MinimumApplied = true
	}
	b.Total = total
	return b
}

// Buffer configures the fixed loading/unloading allowance added to driving time.
type Buffer struct {
	DefaultMin  int
	MoveMin     int
	MoveKeyword string
}

// BufferFor picks the buffer for a cargo type.
func (b Buffer) BufferFor(cargoType string) int {
	kw := strings.ToLower(strings.TrimSpace(b.MoveKeyword))
	if kw != "" && strings.Contains(strings.ToLower(cargoType), kw) {
		return b.MoveMin
	}
	return b.DefaultMin
}

func roundHalfUp(v float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	p := math.Pow(10, float64(decimals))
	return math.Floor(v*p+0.5+1e-9) / p
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Source hands out the tariff currently in force. Each computation should read it once.
type Source interface {
	Current() Config
}

// Static is a Source that never changes.
type Static Config

func (s Static) Current() Config { return Config(s) }
