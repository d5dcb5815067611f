package datastore

import (
	"time"
)

// ImageSearch records one reverse image search: the stored upload, the
// optional crop that was actually searched, and the public URLs handed to
// the provider.
type ImageSearch struct {
	ID                uint   `gorm:"primaryKey"`
	ImagePath         string `gorm:"type:varchar(255);not null"`
	OriginalImagePath string `gorm:"type:varchar(255)"`
	IsClipped         bool
	RemoteURL         string         `gorm:"type:varchar(512)"`
	OriginalRemoteURL string         `gorm:"type:varchar(512)"`
	SearchTime        time.Time      `gorm:"index:idx_searches_time"`
	Results           []SearchResult `gorm:"foreignKey:SearchID;constraint:OnDelete:CASCADE"`
}

// SearchResult is one product found for a search.
type SearchResult struct {
	ID           uint   `gorm:"primaryKey"`
	SearchID     uint   `gorm:"index;not null"`
	Title        string `gorm:"type:varchar(512);not null"`
	Link         string `gorm:"type:varchar(1024)"`
	ImageURL     string `gorm:"type:varchar(1024)"`
	Price        string `gorm:"type:varchar(64);index:idx_results_price"`
	Brand        string `gorm:"type:varchar(255);index:idx_results_brand"`
	Source       string `gorm:"type:varchar(64)"`
	Description  string `gorm:"type:text"`
	Rating       *float64
	ReviewsCount *int
	RawData      *string `gorm:"type:text"`
}
