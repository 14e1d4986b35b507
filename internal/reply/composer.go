// Package reply renders executor results into the WhatsApp messages
// customers actually read. All user-visible text lives here, in Italian and
// English; nothing upstream formats dates or service names.
package reply

import (
	"fmt"
	"strings"
	"time"

	"github.com/lyosaas/booking-engine/internal/appointment"
	"github.com/lyosaas/booking-engine/internal/customer"
	"github.com/lyosaas/booking-engine/internal/executor"
	"github.com/lyosaas/booking-engine/internal/tenant"
)

// Composer builds one outbound message per inbound turn.
type Composer struct{}

// NewComposer creates a composer.
func NewComposer() *Composer { return &Composer{} }

// Compose renders the batch results as a single message in lang ("it" or
// "en"; anything else falls back to the tenant language, then Italian).
// Results render in batch order, one paragraph each.
func (c *Composer) Compose(tn *tenant.Tenant, cust *customer.Customer, lang string, results []executor.Result) string {
	lang = pickLanguage(lang, cust, tn)

	var paragraphs []string
	greeted := false
	for _, res := range results {
		switch res.Outcome {
		case executor.OutcomeSaved:
			if res.Command.Attribute == "name" && !greeted {
				paragraphs = append(paragraphs, fmt.Sprintf(msg(lang, "greet_name"), cust.Name))
				greeted = true
			} else if res.Command.Attribute == "language" {
				lang = cust.Language
				paragraphs = append(paragraphs, msg(lang, "language_saved"))
			}
		case executor.OutcomeBooked:
			paragraphs = append(paragraphs, c.booked(tn, lang, res.Appointment))
		case executor.OutcomeRescheduled:
			paragraphs = append(paragraphs, c.rescheduled(tn, lang, res.Appointment))
		case executor.OutcomeCancelled:
			paragraphs = append(paragraphs, c.cancelled(tn, lang, res.Appointment))
		case executor.OutcomeListed:
			paragraphs = append(paragraphs, c.listed(tn, lang, res.Appointments))
		case executor.OutcomeIncomplete:
			paragraphs = append(paragraphs, c.incomplete(lang, res.Missing))
		case executor.OutcomeUnavailable:
			paragraphs = append(paragraphs, c.unavailable(tn, lang, res.Unavailable))
		case executor.OutcomeNotFound:
			paragraphs = append(paragraphs, msg(lang, "not_found"))
		case executor.OutcomeFailed:
			paragraphs = append(paragraphs, msg(lang, "failed"))
		}
	}
	if len(paragraphs) == 0 {
		return c.Clarification(tn, cust, lang)
	}
	return strings.Join(paragraphs, "\n\n")
}

// Clarification is the fallback when nothing actionable was understood.
func (c *Composer) Clarification(tn *tenant.Tenant, cust *customer.Customer, lang string) string {
	lang = pickLanguage(lang, cust, tn)
	if cust != nil && cust.Name != "" {
		return fmt.Sprintf(msg(lang, "clarify_named"), cust.Name)
	}
	return fmt.Sprintf(msg(lang, "clarify"), tn.Name)
}

func (c *Composer) booked(tn *tenant.Tenant, lang string, appt *appointment.Appointment) string {
	text := fmt.Sprintf(msg(lang, "booked"),
		c.serviceName(tn, lang, appt.ServiceCode),
		formatDay(appt.Start.In(tn.Location()), lang),
		appt.Start.In(tn.Location()).Format("15:04"))
	if appt.PriceCents > 0 {
		text += " " + fmt.Sprintf(msg(lang, "price"), formatPrice(appt.PriceCents))
	}
	return text
}

func (c *Composer) rescheduled(tn *tenant.Tenant, lang string, appt *appointment.Appointment) string {
	return fmt.Sprintf(msg(lang, "rescheduled"),
		c.serviceName(tn, lang, appt.ServiceCode),
		formatDay(appt.Start.In(tn.Location()), lang),
		appt.Start.In(tn.Location()).Format("15:04"))
}

func (c *Composer) cancelled(tn *tenant.Tenant, lang string, appt *appointment.Appointment) string {
	return fmt.Sprintf(msg(lang, "cancelled"),
		c.serviceName(tn, lang, appt.ServiceCode),
		formatDay(appt.Start.In(tn.Location()), lang))
}

func (c *Composer) listed(tn *tenant.Tenant, lang string, appts []*appointment.Appointment) string {
	if len(appts) == 0 {
		return msg(lang, "list_empty")
	}
	var b strings.Builder
	b.WriteString(msg(lang, "list_header"))
	for _, appt := range appts {
		local := appt.Start.In(tn.Location())
		fmt.Fprintf(&b, "\n• %s, %s %s",
			c.serviceName(tn, lang, appt.ServiceCode),
			formatDay(local, lang),
			local.Format("15:04"))
	}
	return b.String()
}

func (c *Composer) incomplete(lang string, missing []string) string {
	var asks []string
	for _, field := range missing {
		asks = append(asks, msg(lang, "field_"+field))
	}
	joiner := " e "
	if lang == "en" {
		joiner = " and "
	}
	return fmt.Sprintf(msg(lang, "incomplete"), strings.Join(asks, joiner))
}

func (c *Composer) unavailable(tn *tenant.Tenant, lang string, unavail *appointment.SlotUnavailableError) string {
	var b strings.Builder
	b.WriteString(msg(lang, "reason_"+unavail.Reason))
	if len(unavail.Alternatives) == 0 {
		b.WriteString(" ")
		b.WriteString(msg(lang, "no_alternatives"))
		return b.String()
	}
	b.WriteString(" ")
	b.WriteString(msg(lang, "alternatives_header"))
	for i, alt := range unavail.Alternatives {
		local := alt.In(tn.Location())
		fmt.Fprintf(&b, "\n%d) %s %s", i+1, formatDay(local, lang), local.Format("15:04"))
	}
	b.WriteString("\n")
	b.WriteString(msg(lang, "alternatives_footer"))
	return b.String()
}

// serviceName never leaks a catalog code to the customer.
func (c *Composer) serviceName(tn *tenant.Tenant, lang, code string) string {
	if svc, ok := tn.ServiceByCode(code); ok {
		return svc.LocalizedName(lang)
	}
	return strings.ReplaceAll(code, "_", " ")
}

func pickLanguage(lang string, cust *customer.Customer, tn *tenant.Tenant) string {
	if lang == "it" || lang == "en" {
		return lang
	}
	if cust != nil && (cust.Language == "it" || cust.Language == "en") {
		return cust.Language
	}
	if tn.Language == "en" {
		return "en"
	}
	return "it"
}

var weekdaysIT = [...]string{"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato"}
var monthsIT = [...]string{"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"}

// formatDay renders "martedì 1 settembre" or "Tuesday, September 1".
func formatDay(t time.Time, lang string) string {
	if lang == "en" {
		return t.Format("Monday, January 2")
	}
	return fmt.Sprintf("%s %d %s", weekdaysIT[t.Weekday()], t.Day(), monthsIT[t.Month()-1])
}

func formatPrice(cents int) string {
	if cents%100 == 0 {
		return fmt.Sprintf("€%d", cents/100)
	}
	return fmt.Sprintf("€%d,%02d", cents/100, cents%100)
}

var messages = map[string]map[string]string{
	"it": {
		"greet_name":          "Piacere, %s! 😊",
		"language_saved":      "Perfetto, da ora ti scrivo in italiano.",
		"booked":              "✅ Prenotazione confermata: %s, %s alle %s.",
		"price":               "Il prezzo è %s.",
		"rescheduled":         "🔄 Fatto! %s spostato a %s alle %s.",
		"cancelled":           "❌ Appuntamento cancellato: %s di %s. A presto!",
		"list_header":         "📅 I tuoi prossimi appuntamenti:",
		"list_empty":          "Non hai appuntamenti in programma. Vuoi prenotarne uno?",
		"incomplete":          "Quasi fatto! Mi serve ancora %s.",
		"field_service":       "il servizio che desideri",
		"field_date":          "il giorno",
		"field_time":          "l'orario",
		"not_found":           "Non trovo l'appuntamento a cui ti riferisci. Scrivi \"i miei appuntamenti\" per vederli.",
		"failed":              "Ops, qualcosa è andato storto. Riprova tra poco.",
		"clarify":             "Ciao! Sono l'assistente di %s. Posso prenotare, spostare o cancellare un appuntamento: dimmi pure!",
		"clarify_named":       "Scusa %s, non ho capito. Vuoi prenotare, spostare o cancellare un appuntamento?",
		"reason_closed":       "Quel giorno siamo chiusi. 😕",
		"reason_outside_hours": "A quell'ora siamo chiusi.",
		"reason_break":        "A quell'ora siamo in pausa.",
		"reason_taken":        "Quell'orario è già occupato. 😕",
		"reason_notice":       "Per quel servizio serve un po' più di preavviso.",
		"reason_past":         "Quell'orario è già passato.",
		"alternatives_header": "Ecco gli orari liberi più vicini:",
		"alternatives_footer": "Quale preferisci?",
		"no_alternatives":     "Purtroppo non vedo orari liberi nei prossimi giorni. Prova con un'altra data!",
	},
	"en": {
		"greet_name":          "Nice to meet you, %s! 😊",
		"language_saved":      "Great, I'll write to you in English from now on.",
		"booked":              "✅ Booking confirmed: %s on %s at %s.",
		"price":               "The price is %s.",
		"rescheduled":         "🔄 Done! %s moved to %s at %s.",
		"cancelled":           "❌ Appointment cancelled: %s on %s. See you soon!",
		"list_header":         "📅 Your upcoming appointments:",
		"list_empty":          "You have no upcoming appointments. Would you like to book one?",
		"incomplete":          "Almost there! I still need %s.",
		"field_service":       "the service you'd like",
		"field_date":          "the day",
		"field_time":          "the time",
		"not_found":           "I can't find the appointment you mean. Send \"my appointments\" to see them.",
		"failed":              "Oops, something went wrong. Please try again shortly.",
		"clarify":             "Hi! I'm the assistant for %s. I can book, move or cancel an appointment: just tell me!",
		"clarify_named":       "Sorry %s, I didn't get that. Would you like to book, move or cancel an appointment?",
		"reason_closed":       "We're closed that day. 😕",
		"reason_outside_hours": "We're closed at that time.",
		"reason_break":        "We're on a break at that time.",
		"reason_taken":        "That time is already taken. 😕",
		"reason_notice":       "That service needs a bit more notice.",
		"reason_past":         "That time has already passed.",
		"alternatives_header": "Here are the nearest free times:",
		"alternatives_footer": "Which one works for you?",
		"no_alternatives":     "Unfortunately I don't see any free times in the next few days. Try another date!",
	},
}

func msg(lang, key string) string {
	if m, ok := messages[lang]; ok {
		if text, ok := m[key]; ok {
			return text
		}
	}
	return messages["it"][key]
}
