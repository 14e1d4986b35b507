package intent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyosaas/booking-engine/internal/tenant"
)

func salonFixture(t *testing.T) *tenant.Tenant {
	t.Helper()
	return &tenant.Tenant{
		ID:       uuid.New(),
		Name:     "Aura Hair Studio",
		Timezone: "Europe/Rome",
		Language: "it",
		Services: map[string]tenant.Service{
			"taglio_donna": {
				Code:            "taglio_donna",
				Names:           map[string]string{"it": "Taglio donna", "en": "Women's haircut"},
				DurationMinutes: 60,
			},
			"piega": {
				Code:            "piega",
				Names:           map[string]string{"it": "Piega", "en": "Blow dry"},
				DurationMinutes: 30,
			},
		},
	}
}

func fixedRuleExtractor(t *testing.T) *RuleExtractor {
	t.Helper()
	r := NewRuleExtractor()
	r.now = func() time.Time { return romeNow(t) }
	return r
}

func TestRuleExtractorBooking(t *testing.T) {
	ctx := context.Background()
	tn := salonFixture(t)
	r := fixedRuleExtractor(t)

	batch, err := r.Extract(ctx, tn, nil, "Ciao! Vorrei prenotare un taglio donna domani alle 15")
	require.NoError(t, err)
	require.Len(t, batch.Commands, 1)

	cmd := batch.Commands[0]
	assert.Equal(t, KindBook, cmd.Kind)
	assert.Equal(t, "taglio_donna", cmd.ServiceCode)
	assert.Equal(t, "2026-09-02", cmd.Date)
	assert.Equal(t, "15:00", cmd.Time)
	assert.Equal(t, "it", batch.Language)
}

func TestRuleExtractorMultiIntent(t *testing.T) {
	ctx := context.Background()
	tn := salonFixture(t)
	r := fixedRuleExtractor(t)

	batch, err := r.Extract(ctx, tn, nil,
		"prenota una piega sabato alle 10 e cancella l'appuntamento di oggi")
	require.NoError(t, err)
	require.Len(t, batch.Commands, 2)

	book := batch.Commands[0]
	assert.Equal(t, KindBook, book.Kind)
	assert.Equal(t, "piega", book.ServiceCode)
	assert.Equal(t, "2026-09-05", book.Date)
	assert.Equal(t, "10:00", book.Time)

	cancel := batch.Commands[1]
	assert.Equal(t, KindCancel, cancel.Kind)
	assert.Equal(t, "2026-09-01", cancel.TargetRef)
}

func TestRuleExtractorEnglish(t *testing.T) {
	ctx := context.Background()
	tn := salonFixture(t)
	r := fixedRuleExtractor(t)

	batch, err := r.Extract(ctx, tn, nil,
		"book a women's haircut tomorrow at 3pm and cancel my appointment on friday")
	require.NoError(t, err)
	require.Len(t, batch.Commands, 2)
	assert.Equal(t, "en", batch.Language)

	book := batch.Commands[0]
	assert.Equal(t, "taglio_donna", book.ServiceCode)
	assert.Equal(t, "2026-09-02", book.Date)
	assert.Equal(t, "15:00", book.Time)

	assert.Equal(t, "2026-09-04", batch.Commands[1].TargetRef)
}

func TestRuleExtractorName(t *testing.T) {
	ctx := context.Background()
	tn := salonFixture(t)
	r := fixedRuleExtractor(t)

	batch, err := r.Extract(ctx, tn, nil, "Mi chiamo Giulia e vorrei prenotare domani alle 16")
	require.NoError(t, err)
	require.Len(t, batch.Commands, 2)

	assert.Equal(t, KindSaveAttribute, batch.Commands[0].Kind)
	assert.Equal(t, "name", batch.Commands[0].Attribute)
	assert.Equal(t, "Giulia", batch.Commands[0].Value)

	book := batch.Commands[1]
	assert.Equal(t, KindBook, book.Kind)
	assert.Equal(t, "2026-09-02", book.Date)
	assert.Equal(t, "16:00", book.Time)
}

func TestRuleExtractorList(t *testing.T) {
	ctx := context.Background()
	tn := salonFixture(t)
	r := fixedRuleExtractor(t)

	batch, err := r.Extract(ctx, tn, nil, "quando ho il prossimo appuntamento?")
	require.NoError(t, err)
	require.Len(t, batch.Commands, 1)
	assert.Equal(t, KindList, batch.Commands[0].Kind)
}

func TestRuleExtractorBareCancelTargetsNext(t *testing.T) {
	ctx := context.Background()
	tn := salonFixture(t)
	r := fixedRuleExtractor(t)

	batch, err := r.Extract(ctx, tn, nil, "cancella il mio appuntamento")
	require.NoError(t, err)
	require.Len(t, batch.Commands, 1)
	assert.Equal(t, KindCancel, batch.Commands[0].Kind)
	assert.Equal(t, "next", batch.Commands[0].TargetRef)
}

func TestRuleExtractorAlternativePick(t *testing.T) {
	ctx := context.Background()
	tn := salonFixture(t)
	r := fixedRuleExtractor(t)

	cases := map[string]int{
		"la seconda":       2,
		"Va bene la prima": 1,
		"the second one":   2,
		"ok la 3":          3,
		"2":                2,
	}
	for text, want := range cases {
		batch, err := r.Extract(ctx, tn, nil, text)
		require.NoError(t, err, text)
		require.Len(t, batch.Commands, 1, text)
		assert.Equal(t, KindBook, batch.Commands[0].Kind, text)
		assert.Equal(t, want, batch.Commands[0].Option, text)
	}
}

func TestRuleExtractorSmallTalkIsEmpty(t *testing.T) {
	ctx := context.Background()
	tn := salonFixture(t)
	r := fixedRuleExtractor(t)

	batch, err := r.Extract(ctx, tn, nil, "grazie mille, a presto!")
	require.NoError(t, err)
	assert.True(t, batch.Empty())
}
