package pantry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spoilsense/spoilsense/internal/ingredient"
	"github.com/spoilsense/spoilsense/internal/parsing"
	"github.com/spoilsense/spoilsense/internal/scanning"
)

// Validation errors surfaced at the boundary. The parsing and
// canonicalization core never fails; these cover the explicit user-facing
// cases only.
var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyName       = errors.New("ingredient name is empty")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidOverride = errors.New("override expiration date is not a valid date")
)

// Shelf-life day counts from the external knowledge lookup are trusted
// only inside this range.
const (
	minExternalShelfLifeDays = 1
	maxExternalShelfLifeDays = 365
)

// LineParser turns raw receipt text into parsed lines.
type LineParser interface {
	Parse(rawText string) []parsing.Line
}

// Advisor is the external recipe-generation and knowledge collaborator.
type Advisor interface {
	// SuggestRecipes proposes recipes biased toward the most urgent
	// ingredients
	SuggestRecipes(items []*Item, urgent []RankedIngredient) ([]Recipe, error)

	// LookupShelfLives asks for refrigerated shelf lives in days, keyed by
	// canonical name
	LookupShelfLives(canonicalNames []string) (map[string]float64, error)
}

// IDGenerator generates unique IDs for items and import sessions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles pantry operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	parser      LineParser
	resolver    NameResolver
	calculator  *Calculator
	shelfLives  ShelfLives
	advisor     Advisor
	sessions    SessionStore
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// The advisor may be nil; recipe suggestions are then unavailable and
// shelf-life enrichment answers from the built-in table alone.
func NewService(db DB, scanner scanning.Scanner, parser LineParser, resolver NameResolver, shelfLives ShelfLives, advisor Advisor, sessions SessionStore) *Service {
	return NewServiceWithDeps(db, scanner, parser, resolver, shelfLives, advisor, sessions, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, parser LineParser, resolver NameResolver, shelfLives ShelfLives, advisor Advisor, sessions SessionStore, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		parser:      parser,
		resolver:    resolver,
		calculator:  NewCalculator(shelfLives),
		shelfLives:  shelfLives,
		advisor:     advisor,
		sessions:    sessions,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ScanResult is the reviewable outcome of scanning one receipt image.
type ScanResult struct {
	SessionID    string         `json:"session_id"`
	PurchaseDate *time.Time     `json:"purchase_date,omitempty"`
	Lines        []parsing.Line `json:"lines"`
}

// ScanReceipt extracts text from a receipt image via the vision
// collaborator, parses it into deduplicated lines and caches them under a
// new import session. Nothing is added to the pantry until the session is
// committed.
func (s *Service) ScanReceipt(imageData []byte, contentType string) (*ScanResult, error) {
	text, err := s.scanner.ExtractText(imageData, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"content_type", contentType,
			"file_size", len(imageData),
			"error", err,
		)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	lines := s.parser.Parse(strings.Join(text.Lines, "\n"))

	var purchaseDate *time.Time
	if d, err := time.Parse("2006-01-02", text.PurchaseDate); err == nil {
		purchaseDate = &d
	}
	for i := range lines {
		lines[i].PurchaseDate = purchaseDate
	}

	result := &ScanResult{
		SessionID:    s.idGenerator.Generate(),
		PurchaseDate: purchaseDate,
		Lines:        lines,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if err := s.sessions.Save(result.SessionID, data); err != nil {
		return nil, fmt.Errorf("caching session: %w", err)
	}

	return result, nil
}

// AbandonSession discards a cached import session.
func (s *Service) AbandonSession(sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("abandoning session: %w", err)
	}
	return nil
}

// CommitLines turns reviewed parsed lines into pantry items with receipt
// provenance. Lines the user edited keep their carried canonical name;
// lines with the name blanked are re-resolved from the display name, and
// unresolvable ones are skipped rather than failing the commit. When a
// session ID is given, the cached session is discarded afterward.
func (s *Service) CommitLines(sessionID string, lines []parsing.Line) ([]*Item, error) {
	now := s.timeSource.Now()

	items := make([]*Item, 0, len(lines))
	for _, line := range lines {
		canonical := line.CanonicalName
		if canonical == "" || canonical == ingredient.Unknown {
			match := s.resolver.Resolve(line.DisplayName)
			if match.CanonicalName == ingredient.Unknown {
				slog.Warn("Skipping unresolvable receipt line", "raw_line", line.RawLine)
				continue
			}
			canonical = match.CanonicalName
		}

		quantity := line.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		unit := line.Unit
		if unit == "" {
			unit = "item"
		}
		displayName := line.DisplayName
		if displayName == "" {
			displayName = canonical
		}
		purchase := now
		if line.PurchaseDate != nil {
			purchase = *line.PurchaseDate
		}

		item := &Item{
			ID:                     s.idGenerator.Generate(),
			CanonicalName:          canonical,
			DisplayName:            displayName,
			Quantity:               quantity,
			Unit:                   unit,
			PurchaseDate:           purchase,
			ComputedExpirationDate: s.calculator.ComputeExpiration(canonical, purchase, nil),
			Source:                 SourceReceipt,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if err := s.db.SaveItem(item); err != nil {
			return nil, fmt.Errorf("saving item: %w", err)
		}
		items = append(items, item)
	}

	if sessionID != "" {
		if err := s.sessions.Delete(sessionID); err != nil {
			slog.Warn("Failed to discard import session", "session_id", sessionID, "error", err)
		}
	}

	return items, nil
}

// AddItemInput is a manual pantry entry before validation.
type AddItemInput struct {
	Name                   string
	Quantity               float64
	Unit                   string
	PurchaseDate           *time.Time
	OverrideExpirationDate string
}

// AddItem validates and creates a manually entered item. The canonical
// name is resolved once here and never changes afterward.
func (s *Service) AddItem(input AddItemInput) (*Item, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrEmptyName
	}
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	match := s.resolver.Resolve(input.Name)
	if match.CanonicalName == ingredient.Unknown {
		return nil, ErrEmptyName
	}

	override, err := parseOverrideDate(input.OverrideExpirationDate)
	if err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	purchase := now
	if input.PurchaseDate != nil {
		purchase = *input.PurchaseDate
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "item"
	}

	item := &Item{
		ID:                     s.idGenerator.Generate(),
		CanonicalName:          match.CanonicalName,
		DisplayName:            strings.TrimSpace(input.Name),
		Quantity:               input.Quantity,
		Unit:                   unit,
		PurchaseDate:           purchase,
		ComputedExpirationDate: s.calculator.ComputeExpiration(match.CanonicalName, purchase, nil),
		OverrideExpirationDate: override,
		Source:                 SourceManual,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.db.SaveItem(item); err != nil {
		return nil, fmt.Errorf("saving item: %w", err)
	}
	return item, nil
}

// UpdateItemInput carries a partial edit. Nil fields are left untouched.
// An empty OverrideExpirationDate string clears the override.
type UpdateItemInput struct {
	DisplayName            *string
	Quantity               *float64
	Unit                   *string
	OverrideExpirationDate *string
}

// UpdateItem applies a partial edit to an item. The canonical name is
// deliberately never recomputed, even when the display name changes.
func (s *Service) UpdateItem(id string, input UpdateItemInput) (*Item, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting item for update: %w", err)
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, ErrEmptyName
		}
		item.DisplayName = name
	}
	if input.Quantity != nil {
		if *input.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		item.Quantity = *input.Quantity
	}
	if input.Unit != nil {
		unit := strings.TrimSpace(*input.Unit)
		if unit == "" {
			unit = "item"
		}
		item.Unit = unit
	}
	if input.OverrideExpirationDate != nil {
		if *input.OverrideExpirationDate == "" {
			item.OverrideExpirationDate = nil
		} else {
			override, err := parseOverrideDate(*input.OverrideExpirationDate)
			if err != nil {
				return nil, err
			}
			item.OverrideExpirationDate = override
		}
	}

	item.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveItem(item); err != nil {
		return nil, fmt.Errorf("saving updated item: %w", err)
	}
	return item, nil
}

// GetItem retrieves an item by ID
func (s *Service) GetItem(id string) (*Item, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all pantry items
func (s *Service) ListItems() ([]*Item, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// DeleteItem removes an item
func (s *Service) DeleteItem(id string) error {
	if _, err := s.db.GetItem(id); err != nil {
		return fmt.Errorf("getting item for deletion: %w", err)
	}
	if err := s.db.DeleteItem(id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// RankedItems projects the pantry against a single current instant and
// returns at most limit entries in urgency order. A non-positive limit
// returns everything.
func (s *Service) RankedItems(limit int) ([]RankedIngredient, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items for ranking: %w", err)
	}
	return TopN(Rank(items, s.timeSource.Now()), limit), nil
}

// ShelfLifeRequest names one ingredient to look up. CanonicalName is
// optional; when absent the name is resolved first.
type ShelfLifeRequest struct {
	Name          string `json:"name"`
	CanonicalName string `json:"canonical_name,omitempty"`
}

// EnrichShelfLives merges external shelf-life answers with the built-in
// table. External day counts are accepted only when they round to an
// integer between 1 and 365; everything else, and every name the
// collaborator has no answer for, falls back to the table.
func (s *Service) EnrichShelfLives(reqs []ShelfLifeRequest) (map[string]int, error) {
	names := make([]string, 0, len(reqs))
	for _, req := range reqs {
		canonical := req.CanonicalName
		if canonical == "" {
			canonical = s.resolver.Resolve(req.Name).CanonicalName
		}
		if canonical == ingredient.Unknown || canonical == "" {
			continue
		}
		names = append(names, canonical)
	}

	var external map[string]float64
	if s.advisor != nil && len(names) > 0 {
		var err error
		external, err = s.advisor.LookupShelfLives(names)
		if err != nil {
			slog.Warn("Shelf-life lookup unavailable, using built-in table", "error", err)
			external = nil
		}
	}

	result := make(map[string]int, len(names))
	for _, name := range names {
		if days, ok := acceptExternalDays(external[name]); ok {
			result[name] = days
			continue
		}
		result[name] = s.shelfLives.Days(name)
	}
	return result, nil
}

// acceptExternalDays validates an externally sourced day count.
func acceptExternalDays(v float64) (int, bool) {
	rounded := math.Round(v)
	if math.Abs(v-rounded) > 1e-9 {
		return 0, false
	}
	days := int(rounded)
	if days < minExternalShelfLifeDays || days > maxExternalShelfLifeDays {
		return 0, false
	}
	return days, true
}

// SuggestRecipes hands the full pantry plus the top ten most urgent
// ingredients to the recipe collaborator.
func (s *Service) SuggestRecipes() ([]Recipe, error) {
	if s.advisor == nil {
		return nil, fmt.Errorf("recipe suggestions are not configured")
	}

	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items for suggestions: %w", err)
	}
	urgent := TopN(Rank(items, s.timeSource.Now()), 10)

	recipes, err := s.advisor.SuggestRecipes(items, urgent)
	if err != nil {
		return nil, fmt.Errorf("suggesting recipes: %w", err)
	}
	return recipes, nil
}

// parseOverrideDate parses a user-supplied override expiration. The empty
// string means no override. Anything non-empty that does not parse is a
// validation error; it cannot be silently defaulted.
func parseOverrideDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, ErrInvalidOverride
}
