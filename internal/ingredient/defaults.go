package ingredient

// defaultVocabulary is the built-in set of canonical ingredient names.
// NewResolver sorts it, so declaration order here does not matter.
var defaultVocabulary = []string{
	"apple",
	"banana",
	"beef",
	"bread",
	"broccoli",
	"butter",
	"carrot",
	"cheese",
	"chicken",
	"egg",
	"fish",
	"garlic",
	"lettuce",
	"milk",
	"mushroom",
	"onion",
	"orange",
	"pork",
	"potato",
	"shrimp",
	"spinach",
	"tomato",
	"yogurt",
}

// defaultAliases maps common plurals, misspellings and receipt-style
// abbreviations to vocabulary entries. Keys are pre-normalized.
var defaultAliases = map[string]string{
	"apples":    "apple",
	"bananas":   "banana",
	"bnna":      "banana",
	"bnnas":     "banana",
	"brd":       "bread",
	"carrots":   "carrot",
	"chkn":      "chicken",
	"chix":      "chicken",
	"chse":      "cheese",
	"eggs":      "egg",
	"grlc":      "garlic",
	"mlk":       "milk",
	"mushrooms": "mushroom",
	"onions":    "onion",
	"oranges":   "orange",
	"potatoes":  "potato",
	"tomatoes":  "tomato",
	"wholemilk": "milk",
	"yoghurt":   "yogurt",
}

// defaultShelfLives is the built-in refrigerated shelf life table, in days
// from purchase.
var defaultShelfLives = map[string]int{
	"apple":    30,
	"banana":   5,
	"beef":     3,
	"bread":    7,
	"broccoli": 7,
	"butter":   30,
	"carrot":   21,
	"cheese":   14,
	"chicken":  2,
	"egg":      21,
	"fish":     2,
	"garlic":   45,
	"lettuce":  7,
	"milk":     7,
	"mushroom": 7,
	"onion":    30,
	"orange":   14,
	"pork":     3,
	"potato":   30,
	"shrimp":   2,
	"spinach":  5,
	"tomato":   7,
	"yogurt":   10,
}
