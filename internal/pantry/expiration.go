package pantry

import (
	"math"
	"time"
)

// urgencyHorizonDays is how far out an item must be before its urgency
// reaches zero.
const urgencyHorizonDays = 7

// ShelfLives answers shelf-life lookups by canonical name.
type ShelfLives interface {
	Days(canonicalName string) int
}

// Calculator derives expiration dates from purchase dates and shelf lives.
type Calculator struct {
	shelfLives ShelfLives
}

// NewCalculator creates a Calculator backed by the given shelf-life table.
func NewCalculator(shelfLives ShelfLives) *Calculator {
	return &Calculator{shelfLives: shelfLives}
}

// ComputeExpiration returns the override verbatim when one is supplied,
// otherwise purchaseDate plus the ingredient's shelf life. The addition is
// calendar-day arithmetic: the result lands on the same wall-clock time N
// days later regardless of month length or leap years.
func (c *Calculator) ComputeExpiration(canonicalName string, purchaseDate time.Time, override *time.Time) time.Time {
	if override != nil {
		return *override
	}
	return purchaseDate.AddDate(0, 0, c.shelfLives.Days(canonicalName))
}

// DaysUntil returns the signed number of days from now until expiration,
// rounded up. Negative means overdue. Callers ranking multiple items must
// pass the same now to every call so the whole pass is compared against a
// single instant.
func DaysUntil(expiration, now time.Time) int {
	return int(math.Ceil(expiration.Sub(now).Hours() / 24))
}

// UrgencyScore rises linearly as the deadline approaches or passes: zero
// for anything seven or more days out, uncapped on the overdue side.
func UrgencyScore(daysUntilExpiration int) float64 {
	score := float64(urgencyHorizonDays - daysUntilExpiration)
	if score < 0 {
		return 0
	}
	return score
}
