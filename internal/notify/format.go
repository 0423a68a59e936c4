package notify

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fletes-app/service-quote/internal/domain/quote"
)

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

// Money formats an amount as pesos with dot thousands separators, e.g. $80.100.
func Money(n float64) string {
	s := strconv.FormatFloat(n, 'f', 0, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}

// MapsLink builds a Google Maps search link for an address, adding locality when the
// address does not mention it.
func MapsLink(addr, locality string) string {
	s := strings.TrimSpace(addr)
	switch {
	case s == "":
		s = locality
	case locality != "" && !strings.Contains(strings.ToLower(s), strings.ToLower(locality)):
		s = s + ", " + locality
	}
	return mapsSearchURL + url.QueryEscape(s)
}

// FormatQuoteSent renders the message announcing a new quote with its appointment.
func FormatQuoteSent(q *quote.Quote, locality string) string {
	req := q.Request()
	est := q.Estimate()
	b := est.Breakdown

	var sb strings.Builder
	sb.WriteString("🧾 *Nuevo presupuesto enviado desde la web*\n")
	fmt.Fprintf(&sb, "• Cliente: *%s*  (%s)\n", orDash(req.CustomerName), orDash(req.Phone))
	fmt.Fprintf(&sb, "• Tipo: *%s*   • Fecha: *%s*\n", orDash(req.CargoType), orDash(req.Date))
	if slot, ok := q.Slot(); ok {
		fmt.Fprintf(&sb, "• Turno: *%s %s*\n", slot.Date, slot.Time)
	}
	fmt.Fprintf(&sb, "• Ayudante: *%s*", yesNo(req.Assistant))
	if est.ReturnToBase {
		sb.WriteString("   • *Incluye regreso a base*")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "• Origen: %s\n  ↳ %s\n", req.Origin, MapsLink(req.Origin, locality))
	fmt.Fprintf(&sb, "• Destino: %s\n  ↳ %s\n", req.Destination, MapsLink(req.Destination, locality))
	sb.WriteString("--\n")
	fmt.Fprintf(&sb, "• Distancia total: *%.2f km*   • Manejo: *%d min*\n", est.DistanceKm, est.DrivingMin)
	fmt.Fprintf(&sb, "• Servicio (total): *%d min*\n", b.ServiceMin)
	fmt.Fprintf(&sb, "• Total estimado: *%s*\n", Money(b.Total))
	fmt.Fprintf(&sb, "  - Tiempo: %s  - Combustible: %s  - Ayudante: %s\n",
		Money(b.TimeCost), Money(b.FuelCost), Money(b.AssistantCost))
	if len(est.Legs) > 0 {
		sb.WriteString("• Detalle tramos:\n")
		for _, leg := range est.Legs {
			fmt.Fprintf(&sb, "  · %s→%s: %.2f km / %d min\n", leg.From, leg.To, leg.DistanceKm, leg.DurationMin)
		}
	}
	sb.WriteString("--\n")
	fmt.Fprintf(&sb, "ID: `%s`", q.ID())
	return sb.String()
}

// FormatQuoteConfirmed renders the message sent when the professional confirms a quote.
func FormatQuoteConfirmed(q *quote.Quote) string {
	req := q.Request()

	when := req.SlotDate
	if when == "" {
		when = orDash(req.Date)
	}
	if req.SlotTime != "" {
		when += " " + req.SlotTime
	}

	var sb strings.Builder
	sb.WriteString("✅ *Presupuesto confirmado*\n")
	fmt.Fprintf(&sb, "• Cliente: *%s*\n", orDash(req.CustomerName))
	fmt.Fprintf(&sb, "• Tel: *%s*\n", orDash(req.Phone))
	if digits := onlyDigits(req.Phone); digits != "" {
		fmt.Fprintf(&sb, "• WhatsApp cliente: https://wa.me/54%s\n", digits)
	}
	fmt.Fprintf(&sb, "• Turno: *%s*\n", when)
	sb.WriteString("--\n")
	fmt.Fprintf(&sb, "ID: `%s`", q.ID())
	return sb.String()
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
