// Package provider implements the search gateway against the reverse-image
// -search provider: request construction, retry with backoff, response
// normalization across the two provider sub-channels, and deduplication.
package provider

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

// Sub-channel identifiers as reported in the provider response.
const (
	SourceVisualMatches   = "visual_matches"
	SourceShoppingResults = "shopping_results"
)

// Product is the structurally uniform record produced from either provider
// sub-channel. Price stays a raw display string, multi-currency parsing is
// out of scope.
type Product struct {
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	ImageURL     string   `json:"image_url"`
	Price        string   `json:"price"`
	Brand        string   `json:"brand"`
	Source       string   `json:"source"`
	Description  string   `json:"description"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewsCount *int     `json:"reviews_count,omitempty"`

	// RawData carries the original provider item, populated only when raw
	// payload retention is enabled.
	RawData string `json:"-"`
}

var (
	// Currency-like token: symbol or code followed by digits, or digits
	// followed by a currency code.
	pricePattern = regexp.MustCompile(
		`(?:[\$£€¥₹]|USD|EUR|GBP|JPY|INR)\s*\d{1,3}(?:[,\s]\d{3})*(?:[.,]\d+)?` +
			`|\d{1,3}(?:[,\s]\d{3})*(?:[.,]\d+)?\s*(?:USD|EUR|GBP|JPY|INR)`)

	brandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^([\w\s]+?)\s+[-–|]`),  // brand before a separator
		regexp.MustCompile(`(?i)by\s+([\w\s]+)`),   // "by Brand"
		regexp.MustCompile(`(?i)from\s+([\w\s]+)`), // "from Brand"
	}

	similarItemPattern   = regexp.MustCompile(`\(Similar Item \d+\)`)
	parentheticalPattern = regexp.MustCompile(`\s*\([^)]*\)`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

// ExtractPrice pulls a currency-like token out of arbitrary text.
// Returns an empty string when no price-like token is present.
func ExtractPrice(text string) string {
	if text == "" {
		return ""
	}
	return pricePattern.FindString(text)
}

// ExtractBrand attempts a best-effort brand extraction from a product title.
// Tried in order: leading token before a separator, "by Brand", "from Brand",
// then the first capitalized word. Returns an empty string on failure.
func ExtractBrand(title string) string {
	if title == "" {
		return ""
	}
	for _, pattern := range brandPatterns {
		if m := pattern.FindStringSubmatch(title); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	words := strings.Fields(title)
	if len(words) > 0 {
		first := []rune(words[0])
		if len(first) > 0 && unicode.IsUpper(first[0]) {
			return words[0]
		}
	}
	return ""
}

// NormalizeTitle produces the canonical form of a title used for
// deduplication only, never for display: parenthetical content (including
// "(Similar Item N)" annotations) is stripped, whitespace collapsed, and the
// result lowercased.
func NormalizeTitle(title string) string {
	if title == "" {
		return title
	}
	t := similarItemPattern.ReplaceAllString(title, "")
	t = parentheticalPattern.ReplaceAllString(t, "")
	t = whitespacePattern.ReplaceAllString(t, " ")
	return strings.ToLower(strings.TrimSpace(t))
}

// Normalize fills a product's derivable fields: a missing price is extracted
// from the title or description, a missing brand from the title. Applying
// Normalize to an already-normalized product is a no-op.
func Normalize(p Product) Product {
	if p.Price == "" {
		if price := ExtractPrice(p.Title); price != "" {
			p.Price = price
		} else if price := ExtractPrice(p.Description); price != "" {
			p.Price = price
		}
	}
	if p.Brand == "" {
		p.Brand = ExtractBrand(p.Title)
	}
	return p
}

// decodeNumber returns the value and true only when raw holds a genuine JSON
// number. String representations of numbers are rejected, not coerced.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}
