package reply

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyosaas/booking-engine/internal/appointment"
	"github.com/lyosaas/booking-engine/internal/customer"
	"github.com/lyosaas/booking-engine/internal/executor"
	"github.com/lyosaas/booking-engine/internal/intent"
	"github.com/lyosaas/booking-engine/internal/tenant"
)

func fixtureTenant() *tenant.Tenant {
	return &tenant.Tenant{
		ID:       uuid.New(),
		Name:     "Aura Hair Studio",
		Timezone: "Europe/Rome",
		Language: "it",
		Services: map[string]tenant.Service{
			"taglio_donna": {
				Code:            "taglio_donna",
				Names:           map[string]string{"it": "Taglio donna", "en": "Women's haircut"},
				PriceCents:      4500,
				DurationMinutes: 60,
			},
		},
	}
}

func slot(tn *tenant.Tenant, day, hhmm string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+hhmm, tn.Location())
	if err != nil {
		panic(err)
	}
	return t
}

func TestComposeBooked(t *testing.T) {
	tn := fixtureTenant()
	cust := &customer.Customer{ID: uuid.New()}
	appt := &appointment.Appointment{
		ServiceCode: "taglio_donna",
		Start:       slot(tn, "2026-09-01", "15:00"),
		PriceCents:  4500,
		Status:      appointment.StatusConfirmed,
	}

	text := NewComposer().Compose(tn, cust, "it", []executor.Result{
		{Outcome: executor.OutcomeBooked, Appointment: appt},
	})

	assert.Contains(t, text, "Taglio donna")
	assert.Contains(t, text, "martedì 1 settembre")
	assert.Contains(t, text, "15:00")
	assert.Contains(t, text, "€45")
	assert.NotContains(t, text, "taglio_donna")
}

func TestComposeEnglish(t *testing.T) {
	tn := fixtureTenant()
	cust := &customer.Customer{ID: uuid.New(), Language: "en"}
	appt := &appointment.Appointment{
		ServiceCode: "taglio_donna",
		Start:       slot(tn, "2026-09-01", "15:00"),
	}

	text := NewComposer().Compose(tn, cust, "en", []executor.Result{
		{Outcome: executor.OutcomeBooked, Appointment: appt},
	})

	assert.Contains(t, text, "Women's haircut")
	assert.Contains(t, text, "Tuesday, September 1")
}

func TestComposeUnavailableEnumeratesAlternatives(t *testing.T) {
	tn := fixtureTenant()
	cust := &customer.Customer{ID: uuid.New()}
	unavail := &appointment.SlotUnavailableError{
		Reason:    appointment.ReasonTaken,
		Requested: slot(tn, "2026-09-01", "15:00"),
		Alternatives: []time.Time{
			slot(tn, "2026-09-01", "16:00"),
			slot(tn, "2026-09-01", "14:00"),
			slot(tn, "2026-09-03", "15:00"),
		},
	}

	text := NewComposer().Compose(tn, cust, "it", []executor.Result{
		{Outcome: executor.OutcomeUnavailable, Unavailable: unavail},
	})

	assert.Contains(t, text, "già occupato")
	for _, n := range []string{"1)", "2)", "3)"} {
		assert.Contains(t, text, n)
	}
	assert.Contains(t, text, "16:00")
	assert.Contains(t, text, "giovedì 3 settembre")
}

func TestComposeGreetsNewlySavedName(t *testing.T) {
	tn := fixtureTenant()
	cust := &customer.Customer{ID: uuid.New(), Name: "Giulia"}

	text := NewComposer().Compose(tn, cust, "it", []executor.Result{
		{Outcome: executor.OutcomeSaved, Command: intent.Command{Kind: intent.KindSaveAttribute, Attribute: "name", Value: "Giulia"}},
		{Outcome: executor.OutcomeIncomplete, Missing: []string{"date", "time"}},
	})

	require.True(t, strings.HasPrefix(text, "Piacere, Giulia!"), text)
	assert.Contains(t, text, "il giorno")
	assert.Contains(t, text, "l'orario")
}

func TestComposeList(t *testing.T) {
	tn := fixtureTenant()
	cust := &customer.Customer{ID: uuid.New()}

	t.Run("empty", func(t *testing.T) {
		text := NewComposer().Compose(tn, cust, "it", []executor.Result{
			{Outcome: executor.OutcomeListed},
		})
		assert.Contains(t, text, "Non hai appuntamenti")
	})

	t.Run("enumerates", func(t *testing.T) {
		text := NewComposer().Compose(tn, cust, "it", []executor.Result{
			{Outcome: executor.OutcomeListed, Appointments: []*appointment.Appointment{
				{ServiceCode: "taglio_donna", Start: slot(tn, "2026-09-01", "15:00")},
				{ServiceCode: "taglio_donna", Start: slot(tn, "2026-09-05", "10:00")},
			}},
		})
		assert.Equal(t, 2, strings.Count(text, "•"))
		assert.Contains(t, text, "sabato 5 settembre")
	})
}

func TestComposeMultipleResultsInOrder(t *testing.T) {
	tn := fixtureTenant()
	cust := &customer.Customer{ID: uuid.New()}
	appt := &appointment.Appointment{ServiceCode: "taglio_donna", Start: slot(tn, "2026-09-05", "10:00")}

	text := NewComposer().Compose(tn, cust, "it", []executor.Result{
		{Outcome: executor.OutcomeBooked, Appointment: appt},
		{Outcome: executor.OutcomeCancelled, Appointment: &appointment.Appointment{
			ServiceCode: "taglio_donna",
			Start:       slot(tn, "2026-09-01", "15:00"),
			Status:      appointment.StatusCancelled,
		}},
	})

	booked := strings.Index(text, "confermata")
	cancelled := strings.Index(text, "cancellato")
	require.Greater(t, booked, -1)
	require.Greater(t, cancelled, -1)
	assert.Less(t, booked, cancelled)
}

func TestClarificationFallback(t *testing.T) {
	tn := fixtureTenant()

	t.Run("anonymous", func(t *testing.T) {
		text := NewComposer().Clarification(tn, &customer.Customer{}, "it")
		assert.Contains(t, text, "Aura Hair Studio")
	})

	t.Run("known customer", func(t *testing.T) {
		text := NewComposer().Clarification(tn, &customer.Customer{Name: "Giulia"}, "it")
		assert.Contains(t, text, "Giulia")
	})

	t.Run("empty results compose to clarification", func(t *testing.T) {
		text := NewComposer().Compose(tn, &customer.Customer{}, "it", nil)
		assert.Contains(t, text, "Aura Hair Studio")
	})
}
