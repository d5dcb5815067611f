// Package datastore persists image searches and their product results.
package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/snappedai/snapsearch/internal/conf"
	"github.com/snappedai/snapsearch/internal/errors"
)

// Interface is the datastore contract consumed by the API layer.
type Interface interface {
	Open() error
	Close() error
	CreateSearch(ctx context.Context, search *ImageSearch) error
	CreateResults(ctx context.Context, results []SearchResult) error
	GetSearch(ctx context.Context, id uint) (*ImageSearch, error)
	ListRecent(ctx context.Context, limit, offset int, includeResults bool) ([]ImageSearch, error)
	CountSearches(ctx context.Context) (int64, error)
	FilterResults(ctx context.Context, filter ResultFilter) ([]SearchResult, error)
	DeleteSearch(ctx context.Context, id uint) error
}

// New creates the datastore for the enabled output backend.
func New(settings *conf.Settings) (Interface, error) {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{DataStore: DataStore{Settings: settings}}, nil
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{DataStore: DataStore{Settings: settings}}, nil
	default:
		return nil, errors.Newf("no database backend enabled").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// DataStore implements the shared persistence operations on a GORM handle
// opened by the driver-specific store.
type DataStore struct {
	DB       *gorm.DB
	Settings *conf.Settings
}

// Close releases the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("fetching database handle: %w", err)
	}
	return sqlDB.Close()
}

// CreateSearch inserts a search together with any attached results.
func (ds *DataStore) CreateSearch(ctx context.Context, search *ImageSearch) error {
	if search.SearchTime.IsZero() {
		search.SearchTime = time.Now()
	}
	if err := ds.DB.WithContext(ctx).Create(search).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "create_search").
			Build()
	}
	return nil
}

// CreateResults inserts results for an existing search.
func (ds *DataStore) CreateResults(ctx context.Context, results []SearchResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := ds.DB.WithContext(ctx).Create(&results).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "create_results").
			Build()
	}
	return nil
}

// GetSearch loads a search and its results.
func (ds *DataStore) GetSearch(ctx context.Context, id uint) (*ImageSearch, error) {
	var search ImageSearch
	err := ds.DB.WithContext(ctx).Preload("Results").First(&search, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("search %d not found", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("search_id", id).
			Build()
	}
	return &search, nil
}

// ListRecent returns searches ordered most recent first. Results are only
// preloaded when requested, since the join is wasted on plain listings.
// Ties on search time break toward the higher id.
func (ds *DataStore) ListRecent(ctx context.Context, limit, offset int, includeResults bool) ([]ImageSearch, error) {
	if limit <= 0 {
		limit = 20
	}
	query := ds.DB.WithContext(ctx)
	if includeResults {
		query = query.Preload("Results")
	}
	var searches []ImageSearch
	err := query.
		Order("search_time DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&searches).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "list_recent").
			Build()
	}
	return searches, nil
}

// CountSearches returns the total number of stored searches.
func (ds *DataStore) CountSearches(ctx context.Context) (int64, error) {
	var count int64
	if err := ds.DB.WithContext(ctx).Model(&ImageSearch{}).Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_searches").
			Build()
	}
	return count, nil
}

// DeleteSearch removes a search; its results go with it via the cascade.
func (ds *DataStore) DeleteSearch(ctx context.Context, id uint) error {
	result := ds.DB.WithContext(ctx).Delete(&ImageSearch{}, id)
	if result.Error != nil {
		return errors.New(result.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("search_id", id).
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.Newf("search %d not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// performAutoMigration keeps the schema current for both backends.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&ImageSearch{}, &SearchResult{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}
	if debug {
		logger.Debug("database initialized",
			"type", strings.ToLower(dbType), "connection", connectionInfo)
	}
	return nil
}
