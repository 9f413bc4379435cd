// Package advisor implements the external knowledge collaborators: recipe
// suggestions biased toward soon-to-expire ingredients, and shelf-life
// lookups for ingredients the built-in table does not know.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/spoilsense/spoilsense/internal/pantry"
)

const recipePromptHeader = `You are a cooking assistant helping a household use up groceries before they spoil.

The pantry and the most urgent ingredients are listed below. Propose up to 3 simple recipes. Strongly prefer recipes that use the urgent ingredients - they expire soonest (negative days means already overdue).

Return ONLY a valid JSON array in this exact format:
[
  {
    "name": "Recipe name",
    "description": "One sentence on why this recipe fits",
    "ingredients_used": ["canonical ingredient names from the pantry"],
    "steps": ["short imperative steps"]
  }
]

Important:
- ingredients_used must only contain canonical names that appear in the pantry list
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

const shelfLifePromptHeader = `You are a food-safety reference. For each ingredient listed below, give the expected refrigerated shelf life in whole days from purchase.

Return ONLY a valid JSON object mapping each ingredient name to a number of days, for example:
{"milk": 7, "chicken": 2}

Important:
- Every listed ingredient must appear as a key
- Values must be whole numbers of days between 1 and 365
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// Gemini implements the pantry.Advisor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini advisor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// SuggestRecipes proposes recipes from the pantry, biased toward the
// urgent list.
func (g *Gemini) SuggestRecipes(items []*pantry.Item, urgent []pantry.RankedIngredient) ([]pantry.Recipe, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	prompt := buildRecipePrompt(items, urgent)
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	recipes, err := parseRecipes(text)
	if err != nil {
		return nil, fmt.Errorf("parsing recipes: %w", err)
	}
	return recipes, nil
}

// LookupShelfLives asks for refrigerated shelf lives in days. Values are
// returned as-is; the caller is responsible for range-checking them before
// trusting them.
func (g *Gemini) LookupShelfLives(canonicalNames []string) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	prompt := shelfLifePromptHeader + "\n\nIngredients:\n- " + strings.Join(canonicalNames, "\n- ")
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	days, err := parseShelfLives(text)
	if err != nil {
		return nil, fmt.Errorf("parsing shelf lives: %w", err)
	}
	return days, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return out.String(), nil
}

// buildRecipePrompt renders the pantry and the urgent slice into the
// recipe prompt.
func buildRecipePrompt(items []*pantry.Item, urgent []pantry.RankedIngredient) string {
	var b strings.Builder
	b.WriteString(recipePromptHeader)

	b.WriteString("\n\nPantry:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s (%g %s)\n", item.CanonicalName, item.Quantity, item.Unit)
	}

	b.WriteString("\nMost urgent (use these first):\n")
	for _, r := range urgent {
		fmt.Fprintf(&b, "- %s: expires in %d days (urgency %g)\n", r.CanonicalName, r.DaysUntilExpiration, r.UrgencyScore)
	}

	return b.String()
}
