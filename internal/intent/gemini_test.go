package intent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyosaas/booking-engine/internal/session"
	"github.com/lyosaas/booking-engine/internal/tenant"
)

func TestParseModelOutput(t *testing.T) {
	t.Run("strict json", func(t *testing.T) {
		batch, err := parseModelOutput(`{
			"language": "it",
			"commands": [
				{"kind": "book", "service_code": "piega", "date": "2026-09-05", "time": "10:00"},
				{"kind": "cancel", "target_ref": "2026-09-01"}
			]
		}`)
		require.NoError(t, err)
		assert.Equal(t, "it", batch.Language)
		require.Len(t, batch.Commands, 2)
		assert.Equal(t, KindBook, batch.Commands[0].Kind)
		assert.Equal(t, "2026-09-01", batch.Commands[1].TargetRef)
	})

	t.Run("fenced json still parses", func(t *testing.T) {
		batch, err := parseModelOutput("```json\n{\"language\":\"en\",\"commands\":[{\"kind\":\"list\"}]}\n```")
		require.NoError(t, err)
		require.Len(t, batch.Commands, 1)
		assert.Equal(t, KindList, batch.Commands[0].Kind)
	})

	t.Run("unknown kinds are dropped", func(t *testing.T) {
		batch, err := parseModelOutput(`{"language":"it","commands":[{"kind":"greet"},{"kind":"list"}]}`)
		require.NoError(t, err)
		require.Len(t, batch.Commands, 1)
	})

	t.Run("prose is rejected", func(t *testing.T) {
		_, err := parseModelOutput("Sure! I'd book that for you.")
		assert.Error(t, err)
	})
}

type stubExtractor struct {
	batch Batch
	err   error
}

func (s stubExtractor) Extract(context.Context, *tenant.Tenant, []session.Turn, string) (Batch, error) {
	return s.batch, s.err
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	tn := salonFixture(t)

	t.Run("first non-empty batch wins", func(t *testing.T) {
		primary := stubExtractor{err: ErrExtractionUnavailable}
		backup := stubExtractor{batch: Batch{Commands: []Command{{Kind: KindList}}, Language: "it"}}

		batch, err := NewFallback(primary, backup).Extract(ctx, tn, nil, "quando ho il prossimo?")
		require.NoError(t, err)
		require.Len(t, batch.Commands, 1)
	})

	t.Run("all failing surfaces the error", func(t *testing.T) {
		failing := stubExtractor{err: ErrExtractionUnavailable}

		_, err := NewFallback(failing, failing).Extract(ctx, tn, nil, "x")
		assert.ErrorIs(t, err, ErrExtractionUnavailable)
	})

	t.Run("all empty reports unavailable", func(t *testing.T) {
		empty := stubExtractor{}

		_, err := NewFallback(empty).Extract(ctx, tn, nil, "grazie")
		assert.ErrorIs(t, err, ErrExtractionUnavailable)
	})
}

func TestTimeoutExtractor(t *testing.T) {
	tn := salonFixture(t)

	slow := extractorFunc(func(ctx context.Context, _ *tenant.Tenant, _ []session.Turn, _ string) (Batch, error) {
		select {
		case <-ctx.Done():
			return Batch{}, ctx.Err()
		case <-time.After(time.Second):
			return Batch{Commands: []Command{{Kind: KindList}}}, nil
		}
	})

	_, err := WithTimeout(slow, 10*time.Millisecond).Extract(context.Background(), tn, nil, "x")
	assert.ErrorIs(t, err, ErrExtractionUnavailable)
}

type extractorFunc func(context.Context, *tenant.Tenant, []session.Turn, string) (Batch, error)

func (f extractorFunc) Extract(ctx context.Context, tn *tenant.Tenant, recent []session.Turn, text string) (Batch, error) {
	return f(ctx, tn, recent, text)
}
