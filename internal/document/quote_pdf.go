// Package document renders printable quotes.
package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fletes-app/service-quote/internal/domain/quote"
	"github.com/fletes-app/service-quote/internal/notify"
)

// QuotePDF renders quotes as A4 PDFs with the core Helvetica font.
type QuotePDF struct {
	company string
	phone   string
	loc     *time.Location
}

// NewQuotePDF creates a new QuotePDF. Dates are printed in loc.
func NewQuotePDF(company, phone string, loc *time.Location) *QuotePDF {
	if loc == nil {
		loc = time.UTC
	}
	return &QuotePDF{company: company, phone: phone, loc: loc}
}

// Render returns the PDF bytes for q.
func (g *QuotePDF) Render(q *quote.Quote) ([]byte, error) {
	req := q.Request()
	est := q.Estimate()
	b := est.Breakdown

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Presupuesto "+q.Number()), false)
	pdf.SetAuthor(tr(g.company), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(g.company))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Presupuesto %s del %s", q.Number(), q.CreatedAt().In(g.loc).Format("02/01/2006"))))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Cliente: %s (%s)", req.CustomerName, req.Phone)))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr("Tipo de carga: "+req.CargoType))
	pdf.Ln(6)
	if slot, ok := q.Slot(); ok {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Turno: %s %s", slot.Date, slot.Time)))
		pdf.Ln(6)
	}
	pdf.MultiCell(0, 6, tr("Origen: "+req.Origin), "", "L", false)
	pdf.MultiCell(0, 6, tr("Destino: "+req.Destination), "", "L", false)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(110, 7, tr("Tramo"))
	pdf.Cell(30, 7, "Km")
	pdf.Cell(30, 7, "Min")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	for _, leg := range est.Legs {
		pdf.Cell(110, 6, tr(trim(leg.From+" - "+leg.To, 60)))
		pdf.Cell(30, 6, fmt.Sprintf("%.2f", leg.DistanceKm))
		pdf.Cell(30, 6, fmt.Sprintf("%d", leg.DurationMin))
		pdf.Ln(6)
	}
	pdf.Cell(110, 6, "Total")
	pdf.Cell(30, 6, fmt.Sprintf("%.2f", est.DistanceKm))
	pdf.Cell(30, 6, fmt.Sprintf("%d", est.DrivingMin))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Servicio: %.2f h (%d min)", b.ServiceHours, b.ServiceMin)))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	rows := []struct {
		label  string
		amount float64
	}{
		{"Cargo fijo", b.BaseFee},
		{"Tiempo", b.TimeCost},
		{"Mantenimiento", b.Maintenance},
		{"Combustible", b.FuelCost},
		{"Peajes", b.TollCost},
		{"Viáticos", b.PerDiem},
		{"Ayudante", b.AssistantCost},
	}
	for _, row := range rows {
		if row.amount == 0 {
			continue
		}
		pdf.Cell(110, 6, tr(row.label))
		pdf.CellFormat(60, 6, notify.Money(row.amount), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}
	if b.MinimumApplied {
		pdf.Cell(0, 6, tr("Se aplicó el monto mínimo del servicio."))
		pdf.Ln(6)
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(110, 8, tr("Total estimado"))
	pdf.CellFormat(60, 8, notify.Money(b.Total), "", 0, "R", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 5, tr(fmt.Sprintf("%s - %s", g.company, g.phone)))
	pdf.Ln(5)
	pdf.Cell(0, 5, tr("Importe estimado, sujeto a confirmación."))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render quote pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
