package datastore

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/snappedai/snapsearch/internal/errors"
)

// ResultFilter narrows stored results. Brand and source filters run in SQL;
// the price range is applied afterwards because prices are stored as the
// provider's display strings.
type ResultFilter struct {
	SearchID *uint
	Brands   []string
	Sources  []string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
	Offset   int
}

var priceNumberPattern = regexp.MustCompile(`\d{1,3}(?:[,\s]\d{3})*(?:\.\d+)?|\d+(?:\.\d+)?`)

// FilterResults returns results matching the filter, preserving insertion
// order within a search.
func (ds *DataStore) FilterResults(ctx context.Context, filter ResultFilter) ([]SearchResult, error) {
	query := ds.DB.WithContext(ctx).Model(&SearchResult{})

	if filter.SearchID != nil {
		query = query.Where("search_id = ?", *filter.SearchID)
	}
	if len(filter.Brands) > 0 {
		var clauses []string
		var args []any
		for _, brand := range filter.Brands {
			brand = strings.TrimSpace(brand)
			if brand == "" {
				continue
			}
			clauses = append(clauses, "LOWER(brand) LIKE ?")
			args = append(args, "%"+strings.ToLower(brand)+"%")
		}
		if len(clauses) > 0 {
			query = query.Where(strings.Join(clauses, " OR "), args...)
		}
	}
	if len(filter.Sources) > 0 {
		query = query.Where("source IN ?", filter.Sources)
	}

	var results []SearchResult
	if err := query.Order("id ASC").Find(&results).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "filter_results").
			Build()
	}

	if filter.MinPrice != nil || filter.MaxPrice != nil {
		filtered := results[:0]
		for i := range results {
			value, ok := PriceValue(results[i].Price)
			if !ok {
				continue
			}
			if filter.MinPrice != nil && value < *filter.MinPrice {
				continue
			}
			if filter.MaxPrice != nil && value > *filter.MaxPrice {
				continue
			}
			filtered = append(filtered, results[i])
		}
		results = filtered
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return []SearchResult{}, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// PriceValue extracts the numeric amount from a display price such as
// "$25.50" or "EUR 1,299.00". It returns false when no number is present.
func PriceValue(price string) (float64, bool) {
	match := priceNumberPattern.FindString(price)
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", "")
	match = strings.ReplaceAll(match, " ", "")
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
