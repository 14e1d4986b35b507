package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lyosaas/booking-engine/internal/appointment"
	"github.com/lyosaas/booking-engine/internal/calendar"
	appconfig "github.com/lyosaas/booking-engine/internal/config"
	"github.com/lyosaas/booking-engine/internal/conversation"
	"github.com/lyosaas/booking-engine/internal/executor"
	"github.com/lyosaas/booking-engine/internal/intent"
	"github.com/lyosaas/booking-engine/internal/messaging"
	"github.com/lyosaas/booking-engine/internal/observability/metrics"
	"github.com/lyosaas/booking-engine/internal/reply"
	"github.com/lyosaas/booking-engine/internal/session"
	"github.com/lyosaas/booking-engine/pkg/logging"
)

// BuildExtractor layers the Gemini extractor over the rule fallback. Without
// an API key the rules run alone, which keeps local development key-free.
func BuildExtractor(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) intent.Extractor {
	if logger == nil {
		logger = logging.Default()
	}
	rules := intent.NewRuleExtractor()
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, using rule-based extraction only")
		return intent.WithTimeout(rules, cfg.ExtractorTimeout)
	}
	gemini, err := intent.NewGeminiExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, logger)
	if err != nil {
		logger.Error("init gemini extractor, falling back to rules", "error", err)
		return intent.WithTimeout(rules, cfg.ExtractorTimeout)
	}
	return intent.WithTimeout(intent.NewFallback(gemini, rules), cfg.ExtractorTimeout)
}

// BuildCalendarSyncer returns the Google Calendar syncer when sync is
// enabled, nil otherwise.
func BuildCalendarSyncer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (calendar.Syncer, error) {
	if !cfg.CalendarSyncEnabled {
		return nil, nil
	}
	creds, err := os.ReadFile(cfg.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: read calendar credentials: %w", err)
	}
	return calendar.NewGoogleSyncer(ctx, creds, cfg.GoogleCalendarID, cfg.CalendarTimeout, logger)
}

// BuildService assembles the full conversation pipeline on top of the shared
// stores.
func BuildService(
	ctx context.Context,
	cfg *appconfig.Config,
	stores *Stores,
	redisClient *redis.Client,
	m *metrics.Metrics,
	logger *logging.Logger,
) (*conversation.Service, error) {
	if cfg == nil || stores == nil || redisClient == nil {
		return nil, fmt.Errorf("bootstrap: config, stores and redis client are required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	extractor := BuildExtractor(ctx, cfg, logger)

	engine := appointment.NewEngine(stores.Appointments, logger,
		appointment.WithSearchDays(cfg.AlternativeSearchDays),
		appointment.WithSlotStep(time.Duration(cfg.SlotStepMinutes)*time.Minute),
	)
	exec := executor.New(engine, stores.Customers, logger)

	graph := messaging.NewGraphSender(cfg.WhatsAppAPIBaseURL, cfg.SendTimeout, logger)
	sender := messaging.NewRetrySender(graph, logger, m).
		WithMaxAttempts(cfg.SendMaxAttempts).
		WithBaseDelay(cfg.SendBaseDelay)

	opts := []conversation.ServiceOption{
		conversation.WithTurnWindow(cfg.SessionTurnWindow),
		conversation.WithMetrics(m),
	}
	syncer, err := BuildCalendarSyncer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if syncer != nil {
		opts = append(opts, conversation.WithCalendarSyncer(syncer))
	}

	return conversation.NewService(
		stores.Directory, stores.Customers, sessions,
		extractor, exec, reply.NewComposer(), sender,
		logger, opts...,
	), nil
}
