package quote

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletes-app/service-quote/internal/common/domain"
)

func validRequest() Request {
	return Request{
		CustomerName: "Ana",
		Phone:        "3515550000",
		CargoType:    "Mudanza",
		Origin:       "Av. Colón 1000",
		Destination:  "Bv. San Juan 200",
		SlotDate:     "2026-03-10",
		SlotTime:     "09:00",
	}
}

func TestNewQuote(t *testing.T) {
	req := validRequest()
	req.AcceptedTerms = true

	q, err := NewQuote(req, Estimate{DistanceKm: 12})

	require.NoError(t, err)
	assert.Equal(t, StatusPreview, q.Status())
	assert.Regexp(t, regexp.MustCompile(`^FL-[A-Z2-9]{6}$`), q.Number())
	assert.NotNil(t, q.AcceptedTermsAt())
	slot, ok := q.Slot()
	assert.True(t, ok)
	assert.Equal(t, Slot{Date: "2026-03-10", Time: "09:00"}, slot)
}

func TestRequestValidate(t *testing.T) {
	neg := -1.0
	cases := map[string]func(*Request){
		"missing name":        func(r *Request) { r.CustomerName = " " },
		"missing phone":       func(r *Request) { r.Phone = "" },
		"missing cargo":       func(r *Request) { r.CargoType = "" },
		"missing origin":      func(r *Request) { r.Origin = "" },
		"missing destination": func(r *Request) { r.Destination = "" },
		"negative tolls":      func(r *Request) { r.Tolls = -1 },
		"negative per diem":   func(r *Request) { r.PerDiem = -5 },
		"negative hours":      func(r *Request) { r.RealHours = &neg },
		"bad slot date":       func(r *Request) { r.SlotDate = "10/03/2026" },
		"bad slot time":       func(r *Request) { r.SlotTime = "9am" },
		"single digit hour":   func(r *Request) { r.SlotTime = "9:30" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			err := req.Validate()
			assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
		})
	}
}

func TestSend_RequiresSlot(t *testing.T) {
	req := validRequest()
	req.SlotTime = ""
	q, err := NewQuote(req, Estimate{})
	require.NoError(t, err)

	err = q.Send()

	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	assert.Equal(t, StatusPreview, q.Status())
}

func TestLifecycle(t *testing.T) {
	q, err := NewQuote(validRequest(), Estimate{})
	require.NoError(t, err)
	require.NoError(t, q.Send())

	changed, err := q.Confirm()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotNil(t, q.ConfirmedAt())

	changed, err = q.Confirm()
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = q.Reject()
	assert.Equal(t, domain.CodeInvalidState, domain.CodeOf(err))

	require.NoError(t, q.Realize(time.Now()))
	assert.Equal(t, StatusRealized, q.Status())
	assert.Error(t, q.CheckDeletable())
}

func TestReject_IdempotentAndDeletable(t *testing.T) {
	q, err := NewQuote(validRequest(), Estimate{})
	require.NoError(t, err)
	require.NoError(t, q.Send())
	assert.Error(t, q.CheckDeletable())

	changed, err := q.Reject()
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = q.Reject()
	require.NoError(t, err)
	assert.False(t, changed)

	assert.NoError(t, q.CheckDeletable())
	_, err = q.Confirm()
	assert.Equal(t, domain.CodeInvalidState, domain.CodeOf(err))
}

func TestMatches(t *testing.T) {
	today := "2026-03-10"
	build := func(status Status, date string) *Quote {
		req := validRequest()
		req.SlotDate = date
		return ReconstructQuote([16]byte{1}, "FL-AAAAAA", req, Estimate{}, status, nil, nil, nil, time.Now(), time.Now())
	}

	assert.True(t, build(StatusSent, "2026-03-10").Matches(ViewPending, today))
	assert.True(t, build(StatusConfirmed, "2026-03-11").Matches(ViewPending, today))
	assert.True(t, build(StatusRejected, "").Matches(ViewPending, today))
	assert.False(t, build(StatusSent, "2026-03-09").Matches(ViewPending, today))
	assert.False(t, build(StatusRealized, "2026-03-11").Matches(ViewPending, today))

	assert.True(t, build(StatusRealized, "2026-01-01").Matches(ViewHistorical, today))
	assert.False(t, build(StatusConfirmed, "2026-01-01").Matches(ViewHistorical, today))

	assert.True(t, build(StatusSent, "2020-01-01").Matches(ViewAll, today))
}

func TestDueBefore(t *testing.T) {
	req := validRequest()
	q := ReconstructQuote([16]byte{1}, "FL-AAAAAA", req, Estimate{}, StatusSent, nil, nil, nil, time.Now(), time.Now())

	assert.True(t, q.DueBefore("2026-03-11"))
	assert.False(t, q.DueBefore("2026-03-10"))

	req.SlotDate = ""
	q = ReconstructQuote([16]byte{1}, "FL-AAAAAA", req, Estimate{}, StatusSent, nil, nil, nil, time.Now(), time.Now())
	assert.False(t, q.DueBefore("2099-01-01"))
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewPending, v)

	v, err = ParseView("historicos")
	require.NoError(t, err)
	assert.Equal(t, ViewHistorical, v)

	_, err = ParseView("archived")
	assert.Error(t, err)
}
