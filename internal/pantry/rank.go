package pantry

import (
	"sort"
	"time"
)

// Rank projects items against a single now and orders them by descending
// urgency, breaking ties by soonest expiration first. The projection is
// recomputed on every call and never stored on the items.
func Rank(items []*Item, now time.Time) []RankedIngredient {
	ranked := make([]RankedIngredient, 0, len(items))
	for _, item := range items {
		days := DaysUntil(item.EffectiveExpiration(), now)
		ranked = append(ranked, RankedIngredient{
			CanonicalName:       item.CanonicalName,
			DisplayName:         item.DisplayName,
			DaysUntilExpiration: days,
			UrgencyScore:        UrgencyScore(days),
		})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].UrgencyScore != ranked[b].UrgencyScore {
			return ranked[a].UrgencyScore > ranked[b].UrgencyScore
		}
		return ranked[a].DaysUntilExpiration < ranked[b].DaysUntilExpiration
	})

	return ranked
}

// TopN returns at most n entries from an already-ranked slice. A
// non-positive n means no limit.
func TopN(ranked []RankedIngredient, n int) []RankedIngredient {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
