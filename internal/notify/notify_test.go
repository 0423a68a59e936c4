package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/domain/pricing"
	"github.com/fletes-app/service-quote/internal/domain/quote"
)

func TestUltraMsg_Notify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/instance1/messages/chat", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tok", r.PostForm.Get("token"))
		assert.Equal(t, "5493510000000", r.PostForm.Get("to"))
		assert.Equal(t, "hola", r.PostForm.Get("body"))
		_, _ = w.Write([]byte(`{"sent":"true","message":"ok","id":1234}`))
	}))
	defer srv.Close()

	n := NewUltraMsg(UltraMsgConfig{InstanceID: "instance1", Token: "tok", BaseURL: srv.URL}, srv.Client())
	res := n.Notify(context.Background(), Message{To: "whatsapp:+54 9351 0000000", Text: "hola"})

	assert.True(t, res.OK)
	assert.Equal(t, "1234", res.ID)
	assert.Equal(t, "ultramsg", res.Provider)
}

func TestUltraMsg_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Wrong token"}`))
	}))
	defer srv.Close()

	n := NewUltraMsg(UltraMsgConfig{InstanceID: "i", Token: "bad", BaseURL: srv.URL}, srv.Client())
	res := n.Notify(context.Background(), Message{To: "549", Text: "x"})

	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "Wrong token")
}

func TestUltraMsg_MissingCredentials(t *testing.T) {
	res := NewUltraMsg(UltraMsgConfig{}, nil).Notify(context.Background(), Message{To: "549", Text: "x"})

	assert.False(t, res.OK)
	assert.Equal(t, "missing_credentials", res.Error)
}

func TestTwilio_Notify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC1/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+14155238886", r.PostForm.Get("From"))
		assert.Equal(t, "whatsapp:+5493510000000", r.PostForm.Get("To"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	n := NewTwilio(TwilioConfig{AccountSID: "AC1", AuthToken: "secret", BaseURL: srv.URL}, srv.Client())
	res := n.Notify(context.Background(), Message{To: "+549 351 0000000", Text: "hola"})

	assert.True(t, res.OK)
	assert.Equal(t, "SM1", res.ID)
}

func TestTwilio_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	n := NewTwilio(TwilioConfig{AccountSID: "AC1", AuthToken: "secret", BaseURL: srv.URL}, srv.Client())
	res := n.Notify(context.Background(), Message{To: "x", Text: "hola"})

	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "21211")
}

type countingNotifier struct {
	calls atomic.Int32
	last  atomic.Value
}

func (c *countingNotifier) Notify(_ context.Context, msg Message) Result {
	c.calls.Add(1)
	c.last.Store(msg)
	return Result{OK: true, Provider: "test"}
}

func TestDispatcher_Send(t *testing.T) {
	n := &countingNotifier{}
	d := NewDispatcher(n, "+549351", time.Second, zap.NewNop())

	res := d.Send(context.Background(), "hola")

	assert.True(t, res.OK)
	assert.Equal(t, int32(1), n.calls.Load())
	assert.Equal(t, Message{To: "+549351", Text: "hola"}, n.last.Load())
}

func TestNew_FallsBackToLog(t *testing.T) {
	n := New(Config{Provider: "carrier-pigeon"}, zap.NewNop())

	_, ok := n.(*LogNotifier)
	assert.True(t, ok)
	assert.True(t, n.Notify(context.Background(), Message{Text: "x"}).OK)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0", Money(0))
	assert.Equal(t, "$950", Money(950))
	assert.Equal(t, "$80.100", Money(80100))
	assert.Equal(t, "$1.234.568", Money(1234567.6))
	assert.Equal(t, "-$2.000", Money(-2000))
}

func TestMapsLink(t *testing.T) {
	assert.Equal(t,
		"https://www.google.com/maps/search/?api=1&query=Av.+Col%C3%B3n+1000%2C+C%C3%B3rdoba",
		MapsLink("Av. Colón 1000", "Córdoba"))
	assert.Equal(t,
		"https://www.google.com/maps/search/?api=1&query=Alta+C%C3%B3rdoba",
		MapsLink("Alta Córdoba", "córdoba"))
	assert.Equal(t,
		"https://www.google.com/maps/search/?api=1&query=C%C3%B3rdoba",
		MapsLink("  ", "Córdoba"))
}

func testQuote(t *testing.T) *quote.Quote {
	t.Helper()
	q, err := quote.NewQuote(quote.Request{
		CustomerName: "Ana",
		Phone:        "351 555-1234",
		CargoType:    "mudanza",
		Origin:       "Av. Colón 1000",
		Destination:  "Nueva Córdoba",
		Assistant:    true,
		SlotDate:     "2030-05-10",
		SlotTime:     "09:00",
	}, quote.Estimate{
		DistanceKm:   12.5,
		DrivingMin:   21,
		ReturnToBase: true,
		Legs: []quote.Leg{
			{From: "Base", To: "Av. Colón 1000", DistanceKm: 5, DurationMin: 9},
		},
		Breakdown: pricing.Breakdown{ServiceMin: 120, TimeCost: 50000, FuelCost: 2500, Total: 80100},
	})
	require.NoError(t, err)
	return q
}

func TestFormatQuoteSent(t *testing.T) {
	q := testQuote(t)

	msg := FormatQuoteSent(q, "Córdoba")

	assert.True(t, strings.HasPrefix(msg, "🧾 *Nuevo presupuesto enviado desde la web*\n"))
	assert.Contains(t, msg, "• Cliente: *Ana*  (351 555-1234)")
	assert.Contains(t, msg, "• Turno: *2030-05-10 09:00*")
	assert.Contains(t, msg, "• Ayudante: *Sí*   • *Incluye regreso a base*")
	assert.Contains(t, msg, "• Distancia total: *12.50 km*   • Manejo: *21 min*")
	assert.Contains(t, msg, "• Total estimado: *$80.100*")
	assert.Contains(t, msg, "  · Base→Av. Colón 1000: 5.00 km / 9 min")
	assert.True(t, strings.HasSuffix(msg, "ID: `"+q.ID().String()+"`"))
}

func TestFormatQuoteConfirmed(t *testing.T) {
	q := testQuote(t)

	msg := FormatQuoteConfirmed(q)

	assert.Contains(t, msg, "✅ *Presupuesto confirmado*")
	assert.Contains(t, msg, "• WhatsApp cliente: https://wa.me/543515551234")
	assert.Contains(t, msg, "• Turno: *2030-05-10 09:00*")
}
