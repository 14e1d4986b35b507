package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"

	"github.com/lyosaas/booking-engine/internal/session"
	"github.com/lyosaas/booking-engine/internal/tenant"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

// GeminiExtractor extracts command batches with Google's Gemini API. The
// model is asked for a strict JSON array; anything it returns beyond that is
// discarded.
type GeminiExtractor struct {
	client  *genai.Client
	modelID string
	logger  *logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewGeminiExtractor creates a Gemini-backed extractor.
func NewGeminiExtractor(ctx context.Context, apiKey, modelID string, logger *logging.Logger) (*GeminiExtractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("intent: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("intent: failed to create gemini client: %w", err)
	}
	return &GeminiExtractor{
		client:  client,
		modelID: modelID,
		logger:  logger,
		tracer:  otel.Tracer("lyo.internal.intent"),
		now:     time.Now,
	}, nil
}

// Close releases the underlying API client.
func (g *GeminiExtractor) Close() error { return g.client.Close() }

func (g *GeminiExtractor) Extract(ctx context.Context, tn *tenant.Tenant, recent []session.Turn, text string) (Batch, error) {
	ctx, span := g.tracer.Start(ctx, "intent.Extract")
	defer span.End()

	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(g.systemPrompt(tn)))

	cs := model.StartChat()
	for _, turn := range recent {
		content := strings.TrimSpace(turn.Text)
		if content == "" {
			continue
		}
		role := "user"
		if turn.Role == session.RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		span.RecordError(err)
		g.logger.Warn("gemini extraction failed", "tenant_id", tn.ID, "error", err)
		return Batch{}, fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
	}

	raw := candidateText(resp)
	if raw == "" {
		return Batch{}, fmt.Errorf("%w: empty model output", ErrExtractionUnavailable)
	}

	batch, err := parseModelOutput(raw)
	if err != nil {
		span.RecordError(err)
		g.logger.Warn("gemini output unparseable", "tenant_id", tn.ID, "error", err)
		return Batch{}, fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
	}
	if batch.Language == "" {
		batch.Language = tn.Language
	}
	return batch, nil
}

func (g *GeminiExtractor) systemPrompt(tn *tenant.Tenant) string {
	var b strings.Builder
	now := g.now().In(tn.Location())
	fmt.Fprintf(&b, "You extract booking commands for %s, a %s. Current local time: %s (%s).\n",
		tn.Name, tn.BusinessType, now.Format("Monday 2006-01-02 15:04"), tn.Timezone)
	b.WriteString("Services (use the code, never the display name):\n")
	for code, svc := range tn.Services {
		fmt.Fprintf(&b, "- %s: %s, %d min\n", code, svc.LocalizedName(tn.Language), svc.DurationMinutes)
	}
	b.WriteString(`
Respond with ONLY a JSON object: {"language": "it"|"en", "commands": [...]}.
Each command: {"kind": "book"|"modify"|"cancel"|"list"|"save_attribute", ...}.
book: service_code, date (YYYY-MM-DD), time (HH:MM 24h). Resolve relative dates against current local time.
When the customer picks one of the alternative slots just offered ("la seconda", "the first one"), emit book with option (1-based index) and no date/time.
modify: target_ref plus the new date and/or time.
cancel: target_ref ("next", "last", a date, a time, or "date time").
save_attribute: attribute ("name"|"language") and value. Emit it when the customer states their name.
Multiple requests in one message become multiple commands, in the order given.
If the message contains no actionable request, return an empty commands array.
`)
	return b.String()
}

// modelOutput mirrors the JSON shape the prompt demands.
type modelOutput struct {
	Language string    `json:"language"`
	Commands []Command `json:"commands"`
}

func parseModelOutput(raw string) (Batch, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var out modelOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Batch{}, fmt.Errorf("decode model output: %w", err)
	}

	batch := Batch{Language: out.Language}
	for _, cmd := range out.Commands {
		if !cmd.Kind.Known() {
			continue
		}
		batch.Commands = append(batch.Commands, cmd)
	}
	return batch, nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
