// Package inventory searches the dealership website's listing pages and
// formats what it finds for chat.
package inventory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

const (
	defaultTimeout = 15 * time.Second
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageBytes   = 5 << 20
	maxResults     = 5
)

// Condition is the inventory section a search targets.
type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionUsed      Condition = "used"
	ConditionCertified Condition = "certified"
)

var conditionPaths = map[Condition]string{
	ConditionNew:       "/new-vehicles/",
	ConditionUsed:      "/used-vehicles/",
	ConditionCertified: "/certified-pre-owned/",
}

// Model aliases, longest first so "rogue sport" is not read as "rogue".
var modelAliases = []struct {
	alias string
	model string
}{
	{"rogue sport", "rogue"},
	{"altima", "altima"},
	{"maxima", "maxima"},
	{"rogue", "rogue"},
	{"murano", "murano"},
	{"pathfinder", "pathfinder"},
	{"frontier", "frontier"},
	{"titan", "titan"},
	{"sentra", "sentra"},
	{"versa", "versa"},
	{"kicks", "kicks"},
	{"armada", "armada"},
	{"leaf", "leaf"},
	{"ariya", "ariya"},
}

var (
	listingSelectors  = []string{".vehicle-card", ".inventory-item", ".vehicle-listing", "[data-vehicle]", ".vehicle-details"}
	titleSelectors    = []string{".vehicle-title", ".inventory-title", "h2", "[data-vehicle-title]"}
	priceSelectors    = []string{".price", ".vehicle-price", "[data-price]", ".price-value"}
	mileageSelectors  = []string{".mileage", ".vehicle-mileage", "[data-mileage]", ".odometer"}
	vinSelectors      = []string{".vin", ".vehicle-vin", "[data-vin]"}
	exteriorSelectors = []string{".exterior-color", "[data-exterior-color]"}
	interiorSelectors = []string{".interior-color", "[data-interior-color]"}
	transSelectors    = []string{".transmission", "[data-transmission]"}
	driveSelectors    = []string{".drivetrain", "[data-drivetrain]"}
	engineSelectors   = []string{".engine", "[data-engine]"}
	mpgSelectors      = []string{".fuel-economy", "[data-mpg]"}
)

// Query is a parsed inventory request.
type Query struct {
	Condition Condition
	Model     string
}

// ParseQuery reads the condition and model out of a customer message.
func ParseQuery(text string) Query {
	lower := strings.ToLower(text)
	q := Query{Condition: ConditionNew}
	switch {
	case strings.Contains(lower, "certified"):
		q.Condition = ConditionCertified
	case strings.Contains(lower, "used") || strings.Contains(lower, "pre-owned") || strings.Contains(lower, "preowned"):
		q.Condition = ConditionUsed
	}
	for _, m := range modelAliases {
		if strings.Contains(lower, m.alias) {
			q.Model = m.model
			break
		}
	}
	return q
}

// Details are the optional feature lines shown under a vehicle.
type Details struct {
	Exterior     string `json:"exterior,omitempty"`
	Interior     string `json:"interior,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	Drivetrain   string `json:"drivetrain,omitempty"`
	Engine       string `json:"engine,omitempty"`
	FuelEconomy  string `json:"fuel_economy,omitempty"`
}

// Vehicle is one listing scraped from the site.
type Vehicle struct {
	Title     string   `json:"title"`
	Price     string   `json:"price"`
	Mileage   string   `json:"mileage"`
	VIN       string   `json:"vin"`
	Details   Details  `json:"details"`
	Images    []string `json:"images,omitempty"`
	DetailURL string   `json:"detail_url,omitempty"`
}

// Searcher turns a customer question into a chat-ready inventory answer.
type Searcher interface {
	Search(ctx context.Context, text string) (string, error)
}

var _ Searcher = (*Scraper)(nil)

// Scraper fetches and parses the dealership listing pages.
type Scraper struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the scraper logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scraper) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewScraper(baseURL string, opts ...Option) *Scraper {
	s := &Scraper{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search answers a free-text inventory question with chat-ready text. New
// inventory searches that come back empty retry the certified section once.
func (s *Scraper) Search(ctx context.Context, text string) (string, error) {
	q := ParseQuery(text)
	vehicles, err := s.Find(ctx, q)
	if err != nil {
		return "", err
	}
	if len(vehicles) == 0 && q.Condition == ConditionNew {
		cpo := Query{Condition: ConditionCertified, Model: q.Model}
		fallback, err := s.Find(ctx, cpo)
		if err != nil {
			s.logger.Warn("inventory: certified fallback failed", "error", err)
		} else if len(fallback) > 0 {
			return FormatResults(fallback, cpo.Condition), nil
		}
	}
	return FormatResults(vehicles, q.Condition), nil
}

// Find fetches the listing page for q and returns every parsed vehicle.
func (s *Scraper) Find(ctx context.Context, q Query) ([]Vehicle, error) {
	target, err := s.listingURL(q)
	if err != nil {
		return nil, err
	}
	body, err := s.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("inventory: parse listing page: %w", err)
	}
	return s.parseListings(doc), nil
}

func (s *Scraper) listingURL(q Query) (string, error) {
	path, ok := conditionPaths[q.Condition]
	if !ok {
		return "", fmt.Errorf("inventory: unknown condition %q", q.Condition)
	}
	params := url.Values{}
	params.Set("model", q.Model)
	params.Set("condition", string(q.Condition))
	return s.baseURL + path + "?" + params.Encode(), nil
}

func (s *Scraper) fetch(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("inventory: build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Cache-Control", "max-age=0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory: fetch %s: %w", target, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("inventory: fetch %s: %s", target, resp.Status)
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxPageBytes), resp.Body}, nil
}

// parseListings tries each listing selector until one yields vehicles.
func (s *Scraper) parseListings(doc *html.Node) []Vehicle {
	for _, sel := range listingSelectors {
		var vehicles []Vehicle
		for _, card := range findAll(doc, sel) {
			if v, ok := s.parseCard(card); ok {
				vehicles = append(vehicles, v)
			}
		}
		if len(vehicles) > 0 {
			return vehicles
		}
	}
	return nil
}

func (s *Scraper) parseCard(card *html.Node) (Vehicle, bool) {
	title := firstText(card, titleSelectors...)
	vin := firstText(card, vinSelectors...)
	if title == "" && vin == "" {
		return Vehicle{}, false
	}

	v := Vehicle{
		Title:   orDefault(title, "Vehicle Details Not Available"),
		Price:   orDefault(firstText(card, priceSelectors...), "Contact Dealer for Price"),
		Mileage: orDefault(firstText(card, mileageSelectors...), "Not Specified"),
		VIN:     orDefault(vin, "Contact Dealer for VIN"),
		Details: Details{
			Exterior:     firstText(card, exteriorSelectors...),
			Interior:     firstText(card, interiorSelectors...),
			Transmission: firstText(card, transSelectors...),
			Drivetrain:   firstText(card, driveSelectors...),
			Engine:       firstText(card, engineSelectors...),
			FuelEconomy:  firstText(card, mpgSelectors...),
		},
	}

	seen := make(map[string]bool)
	for _, img := range findAll(card, "img") {
		src := attr(img, "src")
		if src == "" {
			src = attr(img, "data-src")
		}
		if src == "" || strings.Contains(src, "placeholder") {
			continue
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		if !seen[src] {
			seen[src] = true
			v.Images = append(v.Images, src)
		}
	}

	for _, a := range findAll(card, "a") {
		href := attr(a, "href")
		if strings.Contains(href, "/vehicle/") || strings.Contains(href, "/inventory/") {
			if !strings.HasPrefix(href, "http") {
				href = s.baseURL + href
			}
			v.DetailURL = href
			break
		}
	}
	return v, true
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
