package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"bakery-service/pkg/apperr"
	"bakery-service/pkg/logkey"

	"github.com/sethvargo/go-retry"
)

const (
	maxAttempts     = 3
	fallbackMessage = "The AI service is currently busy. We've provided a basic recipe template instead."
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Request struct {
	DishName    string   `json:"dishName"`
	Ingredients []string `json:"ingredients"`
}

type Result struct {
	Recipe   string `json:"recipe"`
	Fallback bool   `json:"fallback,omitempty"`
	Message  string `json:"message,omitempty"`
}

type Conf struct {
	gen       Generator
	retryBase time.Duration
}

// NewConf builds the recipe client. A nil generator always serves the
// fallback template.
func NewConf(gen Generator, retryBase time.Duration) *Conf {
	return &Conf{gen: gen, retryBase: retryBase}
}

// Generate asks the generative service for a recipe. Overload answers are
// retried with a growing delay; any other failure, or running out of
// attempts, yields the local template marked as a fallback.
func (c *Conf) Generate(ctx context.Context, req Request) (Result, error) {
	dish := strings.TrimSpace(req.DishName)
	if dish == "" {
		return Result{}, apperr.Invalid("Dish name is required", nil)
	}
	ingredients := cleanIngredients(req.Ingredients)

	if c.gen == nil {
		return fallbackResult(dish, ingredients), nil
	}

	prompt := buildPrompt(dish, ingredients)
	attempt := 0
	text, err := retry.DoValue(ctx, c.backoff(), func(ctx context.Context) (string, error) {
		attempt++
		text, err := c.gen.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}

		slog.Warn("recipe generation attempt failed",
			slog.Int("attempt", attempt), slog.String(logkey.ERROR, err.Error()))

		var se *StatusError
		if errors.As(err, &se) && se.Overloaded() {
			return "", retry.RetryableError(err)
		}
		return "", err
	})
	if err != nil {
		return fallbackResult(dish, ingredients), nil
	}
	return Result{Recipe: text}, nil
}

// backoff waits base*2, then base*3, between the three attempts.
func (c *Conf) backoff() retry.Backoff {
	var mu sync.Mutex
	n := 1
	next := retry.BackoffFunc(func() (time.Duration, bool) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return c.retryBase * time.Duration(n), false
	})
	return retry.WithMaxRetries(maxAttempts-1, next)
}

func cleanIngredients(in []string) []string {
	var out []string
	for _, i := range in {
		if s := strings.TrimSpace(i); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func buildPrompt(dish string, ingredients []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a detailed recipe for %s.", dish)
	if len(ingredients) > 0 {
		fmt.Fprintf(&b, " Use the following ingredients: %s.", strings.Join(ingredients, ", "))
	}
	b.WriteString(` Format the response in plain text (no markdown, no asterisks) with the following structure:
- Start with the dish name as a title
- Then a section titled "Ingredients:" with each ingredient on a new line with measurements
- Then a section titled "Instructions:" with numbered steps
- Finally, a section titled "Notes:" with any additional information

Do not use any special formatting characters like asterisks, hashes, or markdown syntax. Just use plain text with clear section titles.`)
	return b.String()
}

func fallbackResult(dish string, ingredients []string) Result {
	return Result{
		Recipe:   FallbackRecipe(dish, ingredients),
		Fallback: true,
		Message:  fallbackMessage,
	}
}

// FallbackRecipe is the deterministic template served when the generative
// service cannot answer.
func FallbackRecipe(dish string, ingredients []string) string {
	words := strings.Split(dish, " ")
	for i, w := range words {
		if r, size := utf8.DecodeRuneInString(w); size > 0 {
			words[i] = string(unicode.ToUpper(r)) + w[size:]
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(words, " "))
	b.WriteString("\n\nIngredients:\n")
	if len(ingredients) > 0 {
		for _, i := range ingredients {
			fmt.Fprintf(&b, "- %s\n", i)
		}
	} else {
		b.WriteString("- [Main ingredients based on the dish]\n")
		b.WriteString("- [Additional ingredients as needed]\n")
	}

	b.WriteString("\nInstructions:\n")
	b.WriteString("1. Prepare all ingredients as needed (washing, chopping, etc.)\n")
	b.WriteString("2. [First step of preparation]\n")
	b.WriteString("3. [Main cooking process]\n")
	b.WriteString("4. [Final steps]\n")
	b.WriteString("5. Serve and enjoy!\n")

	b.WriteString("\nNotes:\n")
	b.WriteString("This is a basic recipe template. For a more detailed recipe, please try again later when our AI service is available.\n")
	return b.String()
}
