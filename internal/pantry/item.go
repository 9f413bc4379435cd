package pantry

import "time"

// Provenance of a pantry item.
const (
	SourceManual  = "manual"
	SourceReceipt = "receipt"
)

// Item is a tracked pantry entry.
//
// CanonicalName is fixed at creation from the resolver output and is never
// recomputed afterward, even when the display name is edited.
type Item struct {
	ID                     string     `json:"id"`
	CanonicalName          string     `json:"canonical_name"`
	DisplayName            string     `json:"display_name"`
	Quantity               float64    `json:"quantity"`
	Unit                   string     `json:"unit"`
	PurchaseDate           time.Time  `json:"purchase_date"`
	ComputedExpirationDate time.Time  `json:"computed_expiration_date"`
	OverrideExpirationDate *time.Time `json:"override_expiration_date,omitempty"`
	Source                 string     `json:"source"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// EffectiveExpiration returns the override date when present, else the
// computed date. All urgency and display logic uses this value.
func (i *Item) EffectiveExpiration() time.Time {
	if i.OverrideExpirationDate != nil {
		return *i.OverrideExpirationDate
	}
	return i.ComputedExpirationDate
}

// RankedIngredient is a projection of an Item against "now". It is never
// persisted; field names follow the contract consumed by the recipe
// suggestion collaborator.
type RankedIngredient struct {
	CanonicalName       string  `json:"canonicalName"`
	DisplayName         string  `json:"displayName"`
	DaysUntilExpiration int     `json:"daysUntilExpiration"`
	UrgencyScore        float64 `json:"urgencyScore"`
}

// Recipe is a suggestion produced by the external recipe collaborator.
type Recipe struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	IngredientsUsed []string `json:"ingredients_used"`
	Steps           []string `json:"steps"`
}
