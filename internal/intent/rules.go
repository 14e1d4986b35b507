package intent

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lyosaas/booking-engine/internal/session"
	"github.com/lyosaas/booking-engine/internal/tenant"
)

// RuleExtractor is a deterministic keyword extractor. It covers the common
// phrasings well enough to keep the bot working when the model provider is
// unreachable, and doubles as the reference extractor in tests.
type RuleExtractor struct {
	now func() time.Time // test seam
}

// NewRuleExtractor creates the rule-based extractor.
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{now: time.Now}
}

type verbMarker struct {
	kind  Kind
	words []string
}

// Order matters: longer, more specific markers are matched first within a
// clause.
var verbMarkers = []verbMarker{
	{KindModify, []string{"sposta", "spostare", "cambia", "modifica", "reschedule", "move my", "change my"}},
	{KindCancel, []string{"cancella", "annulla", "disdici", "disdire", "cancel"}},
	{KindList, []string{"i miei appuntamenti", "che appuntamenti", "my appointments", "quando ho", "when is my"}},
	{KindBook, []string{"prenota", "prenotare", "vorrei", "book", "appointment for", "fissa"}},
}

var (
	// A second name word must be capitalized, so trailing conjunctions
	// ("mi chiamo Giulia e vorrei...") stay out of the capture.
	nameRe   = regexp.MustCompile(`(?i:\b(?:mi chiamo|sono|my name is|i am|i'm)\s+)([\p{L}]+(?:\s+[\p{Lu}][\p{L}]+)?)`)
	dateWord = regexp.MustCompile(`(?i)\b(oggi|domani|dopodomani|today|tomorrow|luned[iì]|marted[iì]|mercoled[iì]|gioved[iì]|venerd[iì]|sabato|domenica|monday|tuesday|wednesday|thursday|friday|saturday|sunday|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{4})?)\b`)
	timeWord = regexp.MustCompile(`(?i)\b(?:alle|at)\s+(\d{1,2}(?:[:.]\d{2})?\s*(?:am|pm)?)|\b(\d{1,2}[:.]\d{2})\b`)
)

var italianHints = []string{"prenota", "cancella", "annulla", "sposta", "domani", "oggi", "alle", "vorrei", "ciao", "grazie", "appuntamento", "mi chiamo", "la prima", "la seconda", "la terza"}

// optionRe matches a pick from the previously offered alternatives, as a
// whole message: "la seconda", "the first one", "ok la 2", "2".
var optionRe = regexp.MustCompile(`(?i)^(?:ok |va bene |perfetto |s[iì] )*(?:la |the |l'|option |opzione )*(prima|seconda|terza|quarta|quinta|first|second|third|fourth|fifth|[1-5])(?:\s*(?:one|opzione|va bene|grazie|please|per favore))?[.!]?$`)

var ordinalWords = map[string]int{
	"prima": 1, "seconda": 2, "terza": 3, "quarta": 4, "quinta": 5,
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"1": 1, "2": 2, "3": 3, "4": 4, "5": 5,
}

func (r *RuleExtractor) Extract(_ context.Context, tn *tenant.Tenant, _ []session.Turn, text string) (Batch, error) {
	lower := normalize(text)
	batch := Batch{Language: detectLanguage(lower, tn.Language)}
	now := r.now().In(tn.Location())

	if m := optionRe.FindStringSubmatch(lower); m != nil {
		batch.Commands = append(batch.Commands, Command{
			Kind:   KindBook,
			Option: ordinalWords[strings.ToLower(m[1])],
		})
		return batch, nil
	}

	if name := nameRe.FindStringSubmatch(text); name != nil {
		batch.Commands = append(batch.Commands, Command{
			Kind:      KindSaveAttribute,
			Attribute: "name",
			Value:     strings.TrimSpace(name[1]),
		})
	}

	for _, clause := range splitClauses(lower) {
		kind, rest := matchVerb(clause)
		if kind == "" {
			continue
		}
		cmd := Command{Kind: kind}
		date, hasDate := findDate(rest, now)
		tm, hasTime := findTime(rest)

		switch kind {
		case KindBook:
			cmd.ServiceCode = matchService(tn, rest)
			if hasDate {
				cmd.Date = date
			}
			if hasTime {
				cmd.Time = tm
			}
			// "vorrei" with no slot at all is small talk, not a booking.
			if cmd.ServiceCode == "" && !hasDate && !hasTime {
				continue
			}
		case KindCancel:
			cmd.TargetRef = targetRef(rest, date, hasDate, tm, hasTime)
		case KindModify:
			cmd.TargetRef = targetRef(rest, "", false, "", false)
			if hasDate {
				cmd.Date = date
			}
			if hasTime {
				cmd.Time = tm
			}
		}
		batch.Commands = append(batch.Commands, cmd)
	}

	return batch, nil
}

// splitClauses breaks a message into per-verb segments so that
// "prenota domani alle 15 e cancella quello di oggi" yields two commands.
func splitClauses(text string) []string {
	positions := make(map[int]bool)
	for _, marker := range verbMarkers {
		for _, word := range marker.words {
			idx := 0
			for {
				rel := strings.Index(text[idx:], word)
				if rel < 0 {
					break
				}
				at := idx + rel
				if at == 0 || text[at-1] == ' ' {
					positions[at] = true
				}
				idx = at + len(word)
			}
		}
	}
	if len(positions) == 0 {
		return []string{text}
	}

	cuts := make([]int, 0, len(positions))
	for p := range positions {
		cuts = append(cuts, p)
	}
	sort.Ints(cuts)

	var clauses []string
	for i, start := range cuts {
		end := len(text)
		if i+1 < len(cuts) {
			end = cuts[i+1]
		}
		clauses = append(clauses, strings.TrimSpace(text[start:end]))
	}
	return clauses
}

func matchVerb(clause string) (Kind, string) {
	for _, marker := range verbMarkers {
		for _, word := range marker.words {
			if strings.HasPrefix(clause, word) {
				return marker.kind, clause
			}
		}
	}
	return "", clause
}

// matchService scans the clause for a service code or any localized service
// name, longest names first so "taglio donna" wins over "taglio".
func matchService(tn *tenant.Tenant, clause string) string {
	type candidate struct {
		needle string
		code   string
	}
	var candidates []candidate
	for code, svc := range tn.Services {
		candidates = append(candidates, candidate{strings.ToLower(strings.ReplaceAll(code, "_", " ")), code})
		for _, name := range svc.Names {
			candidates = append(candidates, candidate{strings.ToLower(name), code})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i].needle) > len(candidates[j].needle) })

	for _, c := range candidates {
		if c.needle != "" && strings.Contains(clause, c.needle) {
			return c.code
		}
	}
	return ""
}

func findDate(clause string, now time.Time) (string, bool) {
	m := dateWord.FindString(clause)
	if m == "" {
		return "", false
	}
	return ResolveDate(m, now)
}

func findTime(clause string) (string, bool) {
	m := timeWord.FindStringSubmatch(clause)
	if m == nil {
		return "", false
	}
	ref := m[1]
	if ref == "" {
		ref = m[2]
	}
	return ResolveTime(ref)
}

// targetRef builds a natural reference for cancel/modify targets. An
// explicit slot beats positional words; bare "cancella" refers to the
// customer's next appointment.
func targetRef(clause, date string, hasDate bool, tm string, hasTime bool) string {
	if strings.Contains(clause, "ultimo") || strings.Contains(clause, "last") || strings.Contains(clause, "quello appena") {
		return "last"
	}
	switch {
	case hasDate && hasTime:
		return date + " " + tm
	case hasDate:
		return date
	case hasTime:
		return tm
	}
	return "next"
}

func detectLanguage(text, fallback string) string {
	for _, hint := range italianHints {
		if strings.Contains(text, hint) {
			return "it"
		}
	}
	for _, hint := range []string{"book", "cancel", "appointment", "tomorrow", "hello", "my name is", "reschedule"} {
		if strings.Contains(text, hint) {
			return "en"
		}
	}
	if fallback != "" {
		return fallback
	}
	return "it"
}
