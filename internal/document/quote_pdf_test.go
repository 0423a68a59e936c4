package document

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletes-app/service-quote/internal/domain/pricing"
	"github.com/fletes-app/service-quote/internal/domain/quote"
)

func TestRender(t *testing.T) {
	q, err := quote.NewQuote(quote.Request{
		CustomerName: "José Núñez",
		Phone:        "3515551234",
		CargoType:    "mudanza",
		Origin:       "Av. Colón 1000",
		Destination:  "Villa Carlos Paz",
		SlotDate:     "2030-05-10",
		SlotTime:     "09:00",
	}, quote.Estimate{
		DistanceKm: 40,
		DrivingMin: 55,
		Legs: []quote.Leg{
			{From: "Base", To: "Av. Colón 1000", DistanceKm: 5, DurationMin: 10},
			{From: "Av. Colón 1000", To: "Villa Carlos Paz", DistanceKm: 35, DurationMin: 45},
		},
		Breakdown: pricing.Breakdown{ServiceHours: 2.5, ServiceMin: 150, TimeCost: 62500, FuelCost: 8000, Total: 70500},
	})
	require.NoError(t, err)

	out, err := NewQuotePDF("Fletes Javier", "+5493516678989", nil).Render(q)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}

func TestTrim(t *testing.T) {
	assert.Equal(t, "abc", trim("abc", 5))
	assert.Equal(t, "ab…", trim("abcdef", 3))
}
