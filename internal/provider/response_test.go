package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLensPriceShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		json string
		want string
	}{
		{"object", `{"price": {"value": "$25.50", "currency": "$"}}`, "$25.50"},
		{"string", `{"price": "$25.50"}`, "$25.50"},
		{"number", `{"price": 25.5}`, "25.5"},
		{"null", `{"price": null}`, ""},
		{"absent", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var item lensItem
			require.NoError(t, json.Unmarshal([]byte(tt.json), &item))
			assert.Equal(t, tt.want, item.Price.Value)
		})
	}
}

func TestParseResponseBothChannels(t *testing.T) {
	t.Parallel()

	payload := `{
		"visual_matches": [
			{"title": "Nike Air Max 90", "link": "https://shop.example/1",
			 "thumbnail": "https://img.example/1.jpg",
			 "price": {"value": "$120.00"}, "rating": 4.5, "reviews": 120}
		],
		"shopping_results": [
			{"title": "Air Max Replica", "link": "https://shop.example/2",
			 "source": "ShoeMart", "thumbnail": "https://img.example/2.jpg",
			 "price": "$99.00"}
		]
	}`
	resp, err := parseResponse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, resp.VisualMatches, 1)
	require.Len(t, resp.ShoppingResults, 1)

	vm := productFromVisualMatch(&resp.VisualMatches[0], false)
	assert.Equal(t, SourceVisualMatches, vm.Source)
	assert.Equal(t, "$120.00", vm.Price)
	assert.Equal(t, "Nike", vm.Brand)
	require.NotNil(t, vm.Rating)
	assert.InDelta(t, 4.5, *vm.Rating, 1e-9)
	require.NotNil(t, vm.ReviewsCount)
	assert.Equal(t, 120, *vm.ReviewsCount)
	assert.Empty(t, vm.RawData)

	sr := productFromShoppingResult(&resp.ShoppingResults[0], false)
	assert.Equal(t, SourceShoppingResults, sr.Source)
	assert.Equal(t, "ShoeMart", sr.Brand)
	assert.Equal(t, "$99.00", sr.Price)
	assert.Nil(t, sr.Rating)
}

func TestParseResponseStringRatingIgnored(t *testing.T) {
	t.Parallel()

	payload := `{"visual_matches": [
		{"title": "Widget", "rating": "4.5", "reviews": "many"}
	]}`
	resp, err := parseResponse([]byte(payload))
	require.NoError(t, err)

	p := productFromVisualMatch(&resp.VisualMatches[0], false)
	assert.Nil(t, p.Rating)
	assert.Nil(t, p.ReviewsCount)
}

func TestProductFromVisualMatchFallbacks(t *testing.T) {
	t.Parallel()

	item := lensItem{
		Source:   "https://merchant.example",
		Original: "https://img.example/full.jpg",
	}
	p := productFromVisualMatch(&item, false)
	assert.Equal(t, "https://merchant.example", p.Link)
	assert.Equal(t, "https://img.example/full.jpg", p.ImageURL)
}

func TestProductFromShoppingResultUnknownTitle(t *testing.T) {
	t.Parallel()

	p := productFromShoppingResult(&lensItem{Source: "MegaStore"}, false)
	assert.Equal(t, "Unknown Product", p.Title)
	assert.Equal(t, "MegaStore", p.Brand)
}

func TestParseResponseKeepsRaw(t *testing.T) {
	t.Parallel()

	payload := `{"visual_matches": [{"title": "Widget", "extra": "kept"}]}`
	resp, err := parseResponse([]byte(payload))
	require.NoError(t, err)

	p := productFromVisualMatch(&resp.VisualMatches[0], true)
	assert.Contains(t, p.RawData, `"extra"`)
}

func TestParseResponseMalformed(t *testing.T) {
	t.Parallel()

	_, err := parseResponse([]byte(`{"visual_matches": "nope"}`))
	assert.Error(t, err)
}
