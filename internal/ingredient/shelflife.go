package ingredient

// DefaultShelfLifeDays is returned for any canonical name not present in
// the table.
const DefaultShelfLifeDays = 7

// ShelfLifeTable maps canonical ingredient names to an expected
// refrigerated shelf life in days. Lookups never fail; unknown names get
// the table's default.
type ShelfLifeTable struct {
	days        map[string]int
	defaultDays int
}

// NewShelfLifeTable creates a ShelfLifeTable from the given map and default.
func NewShelfLifeTable(days map[string]int, defaultDays int) *ShelfLifeTable {
	copied := make(map[string]int, len(days))
	for k, v := range days {
		copied[k] = v
	}
	return &ShelfLifeTable{days: copied, defaultDays: defaultDays}
}

// NewDefaultShelfLifeTable creates a ShelfLifeTable with the built-in
// entries and a default of DefaultShelfLifeDays.
func NewDefaultShelfLifeTable() *ShelfLifeTable {
	return NewShelfLifeTable(defaultShelfLives, DefaultShelfLifeDays)
}

// Days returns the expected shelf life for a canonical name.
func (t *ShelfLifeTable) Days(canonicalName string) int {
	if d, ok := t.days[canonicalName]; ok {
		return d
	}
	return t.defaultDays
}
