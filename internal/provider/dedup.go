package provider

// Tuning for near-duplicate detection. The fuzzy pass can over-collapse
// sparse result sets, so a floor triggers a fallback to exact matching only.
const (
	similarityThreshold = 0.70
	shortTitleLength    = 10
	shortTitleBoost     = 0.1
	lengthRatioFloor    = 0.7
	dedupFloor          = 20
	dedupCeiling        = 30
)

// Deduplicate removes products whose titles exactly or nearly match an
// earlier product's title, preserving input order. Products with empty
// titles are dropped. If fuzzy matching leaves fewer than dedupFloor
// survivors from a larger input, the result is recomputed with exact title
// matching only.
func Deduplicate(products []Product) []Product {
	seenTitles := make(map[string]struct{}, len(products))
	var seenNormalized []string
	unique := make([]Product, 0, len(products))

	for i := range products {
		title := products[i].Title
		if title == "" {
			continue
		}
		if _, ok := seenTitles[title]; ok {
			continue
		}

		normalized := NormalizeTitle(title)
		duplicate := false
		for _, prev := range seenNormalized {
			if isSimilarTitle(normalized, prev) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		seenTitles[title] = struct{}{}
		seenNormalized = append(seenNormalized, normalized)
		unique = append(unique, products[i])
	}

	if len(unique) < dedupFloor && len(products) > dedupFloor {
		return exactTitlePass(products)
	}
	return unique
}

// exactTitlePass keeps the first product for each distinct title, stopping
// once the ceiling is reached.
func exactTitlePass(products []Product) []Product {
	seen := make(map[string]struct{}, len(products))
	unique := make([]Product, 0, dedupCeiling)
	for i := range products {
		title := products[i].Title
		if title == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		unique = append(unique, products[i])
		if len(unique) >= dedupCeiling {
			break
		}
	}
	return unique
}

// isSimilarTitle reports whether two normalized titles are near-duplicates.
// Titles with very different lengths are assumed distinct without comparing,
// and short titles get a stricter threshold since small strings produce
// inflated ratios.
func isSimilarTitle(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	shorter, longer := len(a), len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if float64(shorter)/float64(longer) < lengthRatioFloor {
		return false
	}

	threshold := similarityThreshold
	if shorter < shortTitleLength {
		threshold += shortTitleBoost
	}
	return similarityRatio(a, b) >= threshold
}
