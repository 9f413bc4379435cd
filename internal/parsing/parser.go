package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spoilsense/spoilsense/internal/ingredient"
)

// Line is a single parsed receipt line, held only during the review step
// before items are committed to the pantry.
type Line struct {
	RawLine       string     `json:"raw_line"`
	CanonicalName string     `json:"canonical_name"`
	DisplayName   string     `json:"display_name"`
	Quantity      float64    `json:"quantity"`
	Unit          string     `json:"unit"`
	Confidence    float64    `json:"confidence"`
	PurchaseDate  *time.Time `json:"purchase_date,omitempty"`
}

// NameResolver is the piece of the ingredient resolver the parser needs.
type NameResolver interface {
	Resolve(rawName string) ingredient.Match
}

// Parser turns raw multi-line receipt text into deduplicated parsed lines.
type Parser struct {
	resolver NameResolver
	reject   []*regexp.Regexp
}

// Lines that are clearly not products: totals and tax, payment methods,
// store/receipt boilerplate, leading time-like tokens, and lines that are
// nothing but digits and currency punctuation.
var defaultRejectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(total|subtotal|sub-total|tax|change)\b`),
	regexp.MustCompile(`(?i)\b(cash|visa|mastercard|debit|credit)\b`),
	regexp.MustCompile(`(?i)\b(store|receipt|cashier|register|thank)\b`),
	regexp.MustCompile(`(?i)^(date|time)\b`),
	regexp.MustCompile(`^\d{1,2}[/:]\d{1,2}`),
	regexp.MustCompile(`^[\d\s.,$#*\-]+$`),
}

var (
	multiplierRe = regexp.MustCompile(`(?i)\b\d+\s*x\b`)
	priceRe      = regexp.MustCompile(`\$\s*\d+(?:\.\d+)?`)
	numberRe     = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	quantityRe   = regexp.MustCompile(`(\d+)[xX]\b`)
	bareCountRe  = regexp.MustCompile(`(?:^|\s)(\d+)(?:\s|$)`)

	weightUnitRe = regexp.MustCompile(`(?i)\b(lbs?|pounds?|oz)\b`)
	metricUnitRe = regexp.MustCompile(`(?i)\b(kg|g)\b`)
	volumeUnitRe = regexp.MustCompile(`(?i)\b(l|liters?|litres?|ml)\b`)
)

// NewParser creates a Parser with the built-in reject patterns.
func NewParser(resolver NameResolver) *Parser {
	return NewParserWithPatterns(resolver, defaultRejectPatterns)
}

// NewParserWithPatterns creates a Parser with custom reject patterns.
func NewParserWithPatterns(resolver NameResolver, reject []*regexp.Regexp) *Parser {
	return &Parser{resolver: resolver, reject: reject}
}

// Parse splits raw receipt text into physical lines and runs each through
// the filter/clean/canonicalize pipeline, then deduplicates by
// (canonical name, unit): quantities are summed, the highest confidence in
// the group wins, and the first-seen raw line and display name survive.
// Output order is the first-insertion order of each distinct group key.
func (p *Parser) Parse(rawText string) []Line {
	type groupKey struct {
		name string
		unit string
	}

	ordered := make([]Line, 0)
	index := make(map[groupKey]int)

	for _, raw := range strings.Split(rawText, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if p.rejected(raw) {
			continue
		}

		cleaned := cleanLine(raw)
		if len(cleaned) < 3 {
			continue
		}

		match := p.resolver.Resolve(cleaned)
		if match.CanonicalName == ingredient.Unknown {
			continue
		}

		line := Line{
			RawLine:       raw,
			CanonicalName: match.CanonicalName,
			DisplayName:   match.CanonicalName,
			Quantity:      inferQuantity(raw),
			Unit:          inferUnit(raw),
			Confidence:    match.Confidence,
		}

		key := groupKey{name: line.CanonicalName, unit: line.Unit}
		if i, ok := index[key]; ok {
			ordered[i].Quantity += line.Quantity
			if line.Confidence > ordered[i].Confidence {
				ordered[i].Confidence = line.Confidence
			}
			continue
		}
		index[key] = len(ordered)
		ordered = append(ordered, line)
	}

	return ordered
}

func (p *Parser) rejected(line string) bool {
	for _, re := range p.reject {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// cleanLine strips multiplier tokens, prices and bare numbers, leaving the
// product name fragment.
func cleanLine(line string) string {
	s := multiplierRe.ReplaceAllString(line, " ")
	s = priceRe.ReplaceAllString(s, " ")
	s = numberRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

// inferQuantity scans the original line for a digit group immediately
// followed by x, e.g. "2x". Failing that, a standalone integer token
// counts as a piece count ("MILK 2"). Prices carry a decimal point or a
// leading $ and never match. Defaults to 1.
func inferQuantity(line string) float64 {
	m := quantityRe.FindStringSubmatch(line)
	if m == nil {
		m = bareCountRe.FindStringSubmatch(line)
	}
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 1
	}
	return float64(n)
}

// inferUnit inspects the original line for unit hints. Weight beats metric
// beats volume; anything else counts as loose items.
func inferUnit(line string) string {
	switch {
	case weightUnitRe.MatchString(line):
		return "lb"
	case metricUnitRe.MatchString(line):
		return "kg"
	case volumeUnitRe.MatchString(line):
		return "l"
	default:
		return "item"
	}
}
