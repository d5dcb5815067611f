package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// lensResponse is the provider response envelope. Products can arrive under
// two differently shaped sub-channels that are merged into one schema.
type lensResponse struct {
	Error           string
	VisualMatches   []lensItem
	ShoppingResults []lensItem
}

// lensItem covers the union of the fields both sub-channels may carry.
type lensItem struct {
	Title        string          `json:"title"`
	Link         string          `json:"link"`
	Source       string          `json:"source"`
	Thumbnail    string          `json:"thumbnail"`
	Original     string          `json:"original"`
	Snippet      string          `json:"snippet"`
	Price        lensPrice       `json:"price"`
	Rating       json.RawMessage `json:"rating"`
	Reviews      json.RawMessage `json:"reviews"`
	ReviewsCount json.RawMessage `json:"reviews_count"`

	raw json.RawMessage // original item payload for optional retention
}

// lensPrice is the sum type over the price shapes the provider emits: a
// structured object with a display value (visual matches), a bare display
// string (shopping results), or a bare number.
type lensPrice struct {
	Value string
}

func (p *lensPrice) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	switch trimmed[0] {
	case '{':
		var obj struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		p.Value = obj.Value
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		p.Value = s
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		p.Value = n.String()
	}
	return nil
}

// parseResponse decodes the provider payload and keeps each item's original
// bytes so raw retention can persist them verbatim.
func parseResponse(data []byte) (*lensResponse, error) {
	var envelope struct {
		Error           string            `json:"error"`
		VisualMatches   []json.RawMessage `json:"visual_matches"`
		ShoppingResults []json.RawMessage `json:"shopping_results"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}

	resp := &lensResponse{Error: envelope.Error}

	decodeItems := func(raws []json.RawMessage) ([]lensItem, error) {
		items := make([]lensItem, 0, len(raws))
		for _, raw := range raws {
			var item lensItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return nil, fmt.Errorf("decoding provider item: %w", err)
			}
			item.raw = raw
			items = append(items, item)
		}
		return items, nil
	}

	var err error
	if resp.VisualMatches, err = decodeItems(envelope.VisualMatches); err != nil {
		return nil, err
	}
	if resp.ShoppingResults, err = decodeItems(envelope.ShoppingResults); err != nil {
		return nil, err
	}
	return resp, nil
}

// productFromVisualMatch maps a visual_matches item into the uniform record.
func productFromVisualMatch(item *lensItem, keepRaw bool) Product {
	title := strings.TrimSpace(item.Title)

	link := item.Link
	if link == "" {
		link = item.Source
	}
	imageURL := item.Thumbnail
	if imageURL == "" {
		imageURL = item.Original
	}

	p := Product{
		Title:       title,
		Link:        link,
		ImageURL:    imageURL,
		Price:       item.Price.Value,
		Brand:       ExtractBrand(title),
		Source:      SourceVisualMatches,
		Description: strings.TrimSpace(item.Snippet),
	}
	applyNumericFields(&p, item)
	if keepRaw {
		p.RawData = string(item.raw)
	}
	return Normalize(p)
}

// productFromShoppingResult maps a shopping_results item into the uniform
// record. The shopping channel reports the merchant under "source", which
// doubles as the brand when title extraction fails.
func productFromShoppingResult(item *lensItem, keepRaw bool) Product {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "Unknown Product"
	}

	brand := item.Source
	if brand == "" {
		brand = ExtractBrand(title)
	}

	p := Product{
		Title:       title,
		Link:        item.Link,
		ImageURL:    item.Thumbnail,
		Price:       item.Price.Value,
		Brand:       brand,
		Source:      SourceShoppingResults,
		Description: strings.TrimSpace(item.Snippet),
	}
	applyNumericFields(&p, item)
	if keepRaw {
		p.RawData = string(item.raw)
	}
	return Normalize(p)
}

// applyNumericFields copies rating and review count when the source
// representation is a genuine number, dropping anything else to nil.
func applyNumericFields(p *Product, item *lensItem) {
	if rating, ok := decodeNumber(item.Rating); ok {
		p.Rating = &rating
	}
	if reviews, ok := decodeNumber(item.Reviews); ok {
		count := int(reviews)
		p.ReviewsCount = &count
	} else if reviews, ok := decodeNumber(item.ReviewsCount); ok {
		count := int(reviews)
		p.ReviewsCount = &count
	}
}
