// Seeds a demo tenant so a fresh environment can take bookings immediately.
//
// Usage: DATABASE_URL=... go run ./scripts/seed
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/lyosaas/booking-engine/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	store := tenant.NewStore(pool)
	demo := demoTenant()
	if err := store.Upsert(ctx, demo); err != nil {
		log.Fatalf("seed tenant: %v", err)
	}

	log.Printf("seeded tenant %s (%s) on phone number %s", demo.Name, demo.ID, demo.PhoneNumberID)
}

func demoTenant() *tenant.Tenant {
	weekday := tenant.DayHours{Open: "09:00", Close: "19:00", BreakStart: "13:00", BreakEnd: "14:00"}
	return &tenant.Tenant{
		ID:            uuid.MustParse("6f1c8a2e-0b4d-4f3a-9c5e-2d7b1e8f4a01"),
		PhoneNumberID: getEnvDefault("SEED_PHONE_NUMBER_ID", "10987654321"),
		Name:          "Aura Hair Studio",
		BusinessType:  "salon",
		Timezone:      "Europe/Rome",
		Language:      "it",
		Status:        tenant.StatusActive,
		AccessToken:   os.Getenv("SEED_WHATSAPP_ACCESS_TOKEN"),
		Schedule: tenant.WeeklySchedule{
			time.Tuesday:   weekday,
			time.Wednesday: weekday,
			time.Thursday:  weekday,
			time.Friday:    weekday,
			time.Saturday:  {Open: "09:00", Close: "17:00"},
		},
		Overrides: []tenant.ScheduleOverride{
			{From: "2026-12-25", To: "2026-12-25", Closed: true, Reason: "Natale"},
			{From: "2027-01-01", To: "2027-01-01", Closed: true, Reason: "Capodanno"},
		},
		Services: map[string]tenant.Service{
			"taglio_donna": {
				Code:            "taglio_donna",
				Names:           map[string]string{"it": "Taglio donna", "en": "Women's haircut"},
				PriceCents:      6000,
				DurationMinutes: 45,
			},
			"taglio_uomo": {
				Code:            "taglio_uomo",
				Names:           map[string]string{"it": "Taglio uomo", "en": "Men's haircut"},
				PriceCents:      4000,
				DurationMinutes: 45,
			},
			"piega": {
				Code:            "piega",
				Names:           map[string]string{"it": "Piega", "en": "Blow dry"},
				PriceCents:      3000,
				DurationMinutes: 30,
			},
			"colore_base": {
				Code:            "colore_base",
				Names:           map[string]string{"it": "Colore base", "en": "Base color"},
				PriceCents:      7000,
				DurationMinutes: 90,
				AdvanceNotice:   24 * time.Hour,
			},
			"balayage": {
				Code:            "balayage",
				Names:           map[string]string{"it": "Balayage", "en": "Balayage"},
				PriceCents:      13000,
				DurationMinutes: 150,
				AdvanceNotice:   24 * time.Hour,
			},
		},
	}
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
