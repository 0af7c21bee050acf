package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxNameTokens = 4

// An explicit introduction lets the name be lowercase.
var nameLeadInRE = regexp.MustCompile(`(?i)\b(?:my name is|my name's|name is|call me)\s+([a-z][a-z'\-]*(?:\s+[a-z][a-z'\-]*){1,3})`)

// Words that start sentences or carry dates, times, and dealership terms.
// None of them can be part of a personal name.
var nonNameWords = []string{
	"i", "i'm", "im", "i'd", "i'll", "my", "me", "we", "you", "your", "our", "us",
	"hi", "hello", "hey", "thanks", "thank", "please", "yes", "yeah", "no", "ok", "okay", "sure",
	"can", "could", "would", "will", "should", "what", "when", "where", "how", "why", "who",
	"is", "are", "am", "pm", "do", "does", "did", "the", "a", "an", "and", "or", "but",
	"at", "on", "in", "for", "to", "with", "from", "of", "this", "that", "it", "its",
	"name", "call", "text", "phone", "number", "email", "appointment", "appt",
	"schedule", "book", "want", "like", "need", "looking", "interested",
	"good", "great", "morning", "afternoon", "evening", "noon", "midday",
	"next", "today", "tomorrow", "tonight", "week", "weekend",
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
	"nissan", "car", "truck", "suv", "vehicle", "new", "used", "certified",
	"test", "drive", "oil", "change", "brake", "brakes", "service", "maintenance",
	"repair", "sales", "consultation", "trade", "voucher", "credit", "financing",
	"dealership", "inventory",
	"very", "much", "so", "really", "just", "also", "again", "all", "there", "here",
	"welcome", "appreciate", "awesome", "perfect", "sounds", "works", "fine", "bye", "goodbye",
	"wife", "husband", "son", "daughter", "mom", "mother", "dad", "father", "brother", "sister",
	"friend", "boyfriend", "girlfriend", "fiance", "fiancee", "partner", "family", "kids", "sir", "ma'am", "maam",
}

// Name returns the first run of two or more capitalized words that are not
// stop words, date words, or vocabulary terms. "My name is john smith" is
// accepted in lowercase and returned title-cased.
func (e *Extractor) Name(text string) (string, bool) {
	for _, re := range e.phrases {
		// a comma token ends any run in progress
		text = re.ReplaceAllString(text, " , ")
	}
	if m := nameLeadInRE.FindStringSubmatch(text); m != nil {
		if name, ok := e.nameRun(strings.Fields(m[1]), false); ok {
			return name, true
		}
	}
	return e.nameRun(strings.Fields(text), true)
}

// nameRun scans tokens for the first qualifying run. When requireCaps is
// false every token is treated as capitalized.
func (e *Extractor) nameRun(tokens []string, requireCaps bool) (string, bool) {
	var run []string
	flush := func() (string, bool) {
		if len(run) >= 2 {
			if len(run) > maxNameTokens {
				run = run[:maxNameTokens]
			}
			return strings.Join(run, " "), true
		}
		run = run[:0]
		return "", false
	}

	for _, raw := range tokens {
		word := strings.Trim(raw, `.,!?;:"()[]`)
		// punctuation after a word closes the run
		trimmed := strings.TrimRight(raw, `"()[]`)
		closes := trimmed != "" && strings.ContainsAny(trimmed[len(trimmed)-1:], ".,!?;:")
		if !e.nameToken(word, requireCaps) {
			if name, ok := flush(); ok {
				return name, true
			}
			continue
		}
		run = append(run, titleCase(word))
		if closes {
			if name, ok := flush(); ok {
				return name, true
			}
		}
	}
	return flush()
}

func (e *Extractor) nameToken(word string, requireCaps bool) bool {
	if utf8.RuneCountInString(word) < 2 {
		return false
	}
	if _, excluded := e.excluded[strings.ToLower(word)]; excluded {
		return false
	}
	for i, r := range word {
		if i == 0 {
			if !unicode.IsLetter(r) || (requireCaps && !unicode.IsUpper(r)) {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && r != '\'' && r != '-' {
			return false
		}
	}
	return true
}

func titleCase(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	rest := word[size:]
	if strings.ToUpper(rest) == rest {
		// all caps input
		rest = strings.ToLower(rest)
	}
	return string(unicode.ToUpper(r)) + rest
}
