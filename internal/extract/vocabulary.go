package extract

import (
	"regexp"
	"strings"
)

// Alias maps a case-insensitive pattern to the canonical value it stands for.
type Alias struct {
	Pattern string
	Value   string
}

// Ordered by specificity; the first match wins.
var defaultServices = []Alias{
	{`test[\s-]?drive`, "test drive"},
	{`oil change`, "maintenance"},
	{`tire rotation`, "maintenance"},
	{`tune[\s-]?up`, "maintenance"},
	{`inspection`, "maintenance"},
	{`maintenance`, "maintenance"},
	{`brakes?`, "repair"},
	{`check engine`, "repair"},
	{`repairs?`, "repair"},
	{`service`, "service"},
	{`consult(?:ation)?`, "consultation"},
	{`sales`, "sales"},
	{`buy(?:ing)?`, "sales"},
	{`purchas(?:e|ing)`, "sales"},
}

var defaultVehicles = []Alias{
	{`rogue sport`, "Nissan Rogue Sport"},
	{`rogue`, "Nissan Rogue"},
	{`altima`, "Nissan Altima"},
	{`maxima`, "Nissan Maxima"},
	{`murano`, "Nissan Murano"},
	{`pathfinder`, "Nissan Pathfinder"},
	{`frontier`, "Nissan Frontier"},
	{`titan`, "Nissan Titan"},
	{`sentra`, "Nissan Sentra"},
	{`versa`, "Nissan Versa"},
	{`kicks`, "Nissan Kicks"},
	{`armada`, "Nissan Armada"},
	{`leaf`, "Nissan Leaf"},
	{`ariya`, "Nissan Ariya"},
	{`gt-?r`, "Nissan GT-R"},
}

// DefaultServices returns a copy of the built-in service vocabulary.
func DefaultServices() []Alias {
	return append([]Alias(nil), defaultServices...)
}

// DefaultVehicles returns a copy of the built-in vehicle vocabulary.
func DefaultVehicles() []Alias {
	return append([]Alias(nil), defaultVehicles...)
}

type vocabulary struct {
	patterns []*regexp.Regexp
	values   []string
	words    map[string]struct{}
}

func compileVocabulary(aliases []Alias) vocabulary {
	v := vocabulary{words: make(map[string]struct{})}
	for _, a := range aliases {
		v.patterns = append(v.patterns, regexp.MustCompile(`(?i)\b(?:`+a.Pattern+`)\b`))
		v.values = append(v.values, a.Value)
		for _, w := range strings.Fields(strings.ToLower(a.Value)) {
			v.words[w] = struct{}{}
		}
	}
	return v
}

func (v vocabulary) match(text string) (string, bool) {
	for i, re := range v.patterns {
		if re.MatchString(text) {
			return v.values[i], true
		}
	}
	return "", false
}

// Lowercase words only, so capitalized names after "appointment for" stay out.
var serviceFreeTextRE = regexp.MustCompile(`(?i:\b(?:appointment|appt)\s+for)\s+(?:an?\s+|my\s+|the\s+)?([a-z][a-z ]{2,40}?)\s*(?:[.,!?]|\s(?:on|at|for|with|today|tomorrow|next|this)\b|$)`)
