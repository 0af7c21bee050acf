// Package extract pulls appointment details (name, phone, email, date and
// time, service, vehicle) out of free-form chat messages using fixed
// patterns. Nothing here returns an error: a value that cannot be found or
// does not parse cleanly is simply absent.
package extract

import (
	"regexp"
	"strings"
	"time"
)

// DefaultHour is used when a date is given without a time of day.
const DefaultHour = 10

// Result holds everything found in one message. Empty fields were not found.
type Result struct {
	Name     string
	Phone    string
	Email    string
	DateTime *time.Time
	Service  string
	Vehicle  string
}

// Extractor carries the vocabularies used by the name, service, and vehicle
// extractors. It is safe for concurrent use.
type Extractor struct {
	services    vocabulary
	vehicles    vocabulary
	excluded    map[string]struct{}
	phrases     []*regexp.Regexp
	defaultHour int
}

// Option configures an Extractor.
type Option func(*config)

type config struct {
	services    []Alias
	vehicles    []Alias
	phrases     []string
	defaultHour int
}

// WithServices replaces the service vocabulary.
func WithServices(aliases []Alias) Option {
	return func(c *config) { c.services = aliases }
}

// WithVehicles replaces the vehicle vocabulary.
func WithVehicles(aliases []Alias) Option {
	return func(c *config) { c.vehicles = aliases }
}

// WithDefaultHour sets the hour used for dates without a time. Values
// outside 0-23 are ignored.
func WithDefaultHour(hour int) Option {
	return func(c *config) {
		if hour >= 0 && hour <= 23 {
			c.defaultHour = hour
		}
	}
}

// WithExcludedPhrases keeps multi-word phrases such as the dealership's own
// name from being read as a customer name. Matching ignores case; the
// individual words stay usable elsewhere ("Mike Johnson" still matches when
// "Johnson City Nissan" is excluded).
func WithExcludedPhrases(phrases ...string) Option {
	return func(c *config) { c.phrases = append(c.phrases, phrases...) }
}

// New builds an Extractor. Patterns are compiled once here.
func New(opts ...Option) *Extractor {
	cfg := config{
		services:    defaultServices,
		vehicles:    defaultVehicles,
		defaultHour: DefaultHour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Extractor{
		services:    compileVocabulary(cfg.services),
		vehicles:    compileVocabulary(cfg.vehicles),
		excluded:    make(map[string]struct{}),
		defaultHour: cfg.defaultHour,
	}
	for _, phrase := range cfg.phrases {
		words := strings.Fields(phrase)
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		e.phrases = append(e.phrases, regexp.MustCompile(`(?i)\b`+strings.Join(words, `\s+`)+`\b`))
	}
	for _, w := range nonNameWords {
		e.excluded[w] = struct{}{}
	}
	for w := range e.services.words {
		e.excluded[w] = struct{}{}
	}
	for w := range e.vehicles.words {
		e.excluded[w] = struct{}{}
	}
	return e
}

// Service returns the canonical service named in text. When no vocabulary
// term matches, "appointment for <lowercase words>" is used as free text.
func (e *Extractor) Service(text string) (string, bool) {
	if v, ok := e.services.match(text); ok {
		return v, true
	}
	m := serviceFreeTextRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	phrase := strings.TrimSpace(m[1])
	for _, w := range strings.Fields(phrase) {
		if _, excluded := e.excluded[w]; !excluded {
			return phrase, true
		}
	}
	return "", false
}

// Vehicle returns the canonical vehicle named in text.
func (e *Extractor) Vehicle(text string) (string, bool) {
	return e.vehicles.match(text)
}

// All runs every extractor over text.
func (e *Extractor) All(text string, now time.Time) Result {
	var r Result
	r.Name, _ = e.Name(text)
	r.Phone, _ = Phone(text)
	r.Email, _ = Email(text)
	if t, ok := e.DateTime(text, now); ok {
		r.DateTime = &t
	}
	r.Service, _ = e.Service(text)
	r.Vehicle, _ = e.Vehicle(text)
	return r
}

// Empty reports whether nothing was found.
func (r Result) Empty() bool {
	return r.Name == "" && r.Phone == "" && r.Email == "" && r.DateTime == nil &&
		r.Service == "" && r.Vehicle == ""
}
