package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/snappedai/snapsearch/internal/datastore"
	"github.com/snappedai/snapsearch/internal/errors"
	"github.com/snappedai/snapsearch/internal/imaging"
	"github.com/snappedai/snapsearch/internal/provider"
)

// persistTimeout bounds the write-behind result persistence after the
// response has gone out.
const persistTimeout = 30 * time.Second

// UploadResponse describes a stored upload.
type UploadResponse struct {
	Path      string `json:"path"`
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Optimized bool   `json:"optimized"`
}

// ClipRequest selects a rectangle of a stored image.
type ClipRequest struct {
	ImagePath string `json:"image_path" form:"image_path"`
	X         int    `json:"x" form:"x"`
	Y         int    `json:"y" form:"y"`
	Width     int    `json:"width" form:"width"`
	Height    int    `json:"height" form:"height"`
}

// ClipResponse describes the cropped image.
type ClipResponse struct {
	Path   string `json:"path"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SearchRequest asks for a reverse image search of a stored image.
type SearchRequest struct {
	ImagePath         string `json:"image_path" form:"image_path"`
	OriginalImagePath string `json:"original_image_path" form:"original_image_path"`
	IsClipped         bool   `json:"is_clipped" form:"is_clipped"`
}

// ResultDTO is the JSON shape of one product result.
type ResultDTO struct {
	ID           uint     `json:"id"`
	SearchID     uint     `json:"search_id"`
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	ImageURL     string   `json:"image_url"`
	Price        string   `json:"price"`
	Brand        string   `json:"brand"`
	Source       string   `json:"source"`
	Description  string   `json:"description,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewsCount *int     `json:"reviews_count,omitempty"`
}

// SearchDTO is the JSON shape of a search with its results.
type SearchDTO struct {
	ID         uint        `json:"id"`
	ImagePath  string      `json:"image_path"`
	IsClipped  bool        `json:"is_clipped"`
	SearchTime time.Time   `json:"search_time"`
	Results    []ResultDTO `json:"results,omitempty"`
}

// UploadImage stores a multipart upload, optionally downscaling it, and
// returns the stored path, public URL and dimensions.
func (c *Controller) UploadImage(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, err, "Missing file field", http.StatusBadRequest)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read upload", http.StatusBadRequest)
	}
	defer src.Close()

	path, err := c.Images.SaveUpload(fileHeader.Filename, fileHeader.Size, src)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to store upload")
	}

	optimized := false
	if parseBool(ctx.FormValue("optimize")) {
		maxDim, _ := strconv.Atoi(ctx.FormValue("max_size"))
		optimized, err = imaging.Optimize(path, maxDim)
		if err != nil {
			os.Remove(path)
			return c.handleDomainError(ctx, err, "Failed to optimize image")
		}
	}

	width, height, err := imaging.Dimensions(path)
	if err != nil {
		os.Remove(path)
		return c.handleDomainError(ctx, err, "Failed to read image")
	}

	c.apiLogger.Info("image uploaded",
		"path", path, "size", fileHeader.Size, "optimized", optimized)

	return ctx.JSON(http.StatusCreated, UploadResponse{
		Path:      path,
		URL:       c.publicImageURL(path),
		Width:     width,
		Height:    height,
		Optimized: optimized,
	})
}

// ClipImage crops a rectangle out of a stored image and returns the crop as
// a new stored image.
func (c *Controller) ClipImage(ctx echo.Context) error {
	var req ClipRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid clip request", http.StatusBadRequest)
	}
	if _, err := os.Stat(req.ImagePath); err != nil {
		return c.HandleError(ctx, err, "Image not found", http.StatusNotFound)
	}

	dst := c.Images.DerivedPath(req.ImagePath, "clip")
	if err := imaging.Crop(req.ImagePath, dst, req.X, req.Y, req.Width, req.Height); err != nil {
		return c.handleDomainError(ctx, err, "Failed to clip image")
	}

	c.apiLogger.Info("image clipped",
		"source", req.ImagePath, "path", dst,
		"width", req.Width, "height", req.Height)

	return ctx.JSON(http.StatusCreated, ClipResponse{
		Path:   dst,
		URL:    c.publicImageURL(dst),
		Width:  req.Width,
		Height: req.Height,
	})
}

// SearchImage runs a reverse image search for a stored image. The search
// record is written before the provider call; the product results are
// persisted after the response goes out, so the immediate response carries
// result ids of zero.
func (c *Controller) SearchImage(ctx echo.Context) error {
	var req SearchRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid search request", http.StatusBadRequest)
	}
	if req.ImagePath == "" {
		return c.HandleError(ctx, nil, "image_path is required", http.StatusBadRequest)
	}
	if !isRemoteURL(req.ImagePath) {
		if _, err := os.Stat(req.ImagePath); err != nil {
			return c.HandleError(ctx, err, "Image not found", http.StatusNotFound)
		}
	}

	search := &datastore.ImageSearch{
		ImagePath:         req.ImagePath,
		OriginalImagePath: req.OriginalImagePath,
		IsClipped:         req.IsClipped,
		RemoteURL:         c.publicImageURL(req.ImagePath),
		SearchTime:        time.Now(),
	}
	if req.OriginalImagePath != "" {
		search.OriginalRemoteURL = c.publicImageURL(req.OriginalImagePath)
	}
	if err := c.DS.CreateSearch(ctx.Request().Context(), search); err != nil {
		return c.HandleError(ctx, err, "Failed to create search record", http.StatusInternalServerError)
	}

	products, err := c.Searcher.Search(ctx.Request().Context(), search.RemoteURL)
	if err != nil {
		return c.HandleError(ctx, err, "Search failed", http.StatusInternalServerError)
	}

	if c.metrics != nil {
		c.metrics.SearchesTotal.Inc()
	}
	c.schedulePersist(search.ID, products)

	results := make([]ResultDTO, 0, len(products))
	for i := range products {
		results = append(results, productDTO(search.ID, &products[i]))
	}
	return ctx.JSON(http.StatusOK, SearchDTO{
		ID:         search.ID,
		ImagePath:  search.ImagePath,
		IsClipped:  search.IsClipped,
		SearchTime: search.SearchTime,
		Results:    results,
	})
}

// schedulePersist writes the search results in the background. Failures are
// logged only; the response has already been sent.
func (c *Controller) schedulePersist(searchID uint, products []provider.Product) {
	if len(products) == 0 {
		return
	}
	records := make([]datastore.SearchResult, 0, len(products))
	for i := range products {
		records = append(records, resultRecord(searchID, &products[i]))
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.DS.CreateResults(pctx, records); err != nil {
			c.apiLogger.Error("failed to persist search results",
				"search_id", searchID, "count", len(records), "error", err)
			return
		}
		c.apiLogger.Debug("search results persisted",
			"search_id", searchID, "count", len(records))
	}()
}

// GetSearch returns a stored search with its results.
func (c *Controller) GetSearch(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid search id", http.StatusBadRequest)
	}
	search, err := c.DS.GetSearch(ctx.Request().Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, "Search not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to load search", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, searchDTO(search, true))
}

// ListSearches returns stored searches most recent first.
func (c *Controller) ListSearches(ctx echo.Context) error {
	skip, _ := strconv.Atoi(ctx.QueryParam("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	includeResults := parseBool(ctx.QueryParam("include_results"))

	searches, err := c.DS.ListRecent(ctx.Request().Context(), limit, skip, includeResults)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list searches", http.StatusInternalServerError)
	}
	total, err := c.DS.CountSearches(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to count searches", http.StatusInternalServerError)
	}

	dtos := make([]SearchDTO, 0, len(searches))
	for i := range searches {
		dtos = append(dtos, searchDTO(&searches[i], includeResults))
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"total":     total,
		"page":      skip/limit + 1,
		"page_size": limit,
		"searches":  dtos,
	})
}

// FilterRequest narrows the results of a search.
type FilterRequest struct {
	Brands   []string `json:"brands"`
	Sources  []string `json:"sources"`
	PriceMin *float64 `json:"price_min"`
	PriceMax *float64 `json:"price_max"`
	Skip     int      `json:"skip"`
	Limit    int      `json:"limit"`
}

// FilterResults returns the subset of a search's results matching the
// filter body.
func (c *Controller) FilterResults(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid search id", http.StatusBadRequest)
	}
	if _, err := c.DS.GetSearch(ctx.Request().Context(), id); err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, "Search not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to load search", http.StatusInternalServerError)
	}

	var req FilterRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid filter request", http.StatusBadRequest)
	}

	results, err := c.DS.FilterResults(ctx.Request().Context(), datastore.ResultFilter{
		SearchID: &id,
		Brands:   req.Brands,
		Sources:  req.Sources,
		MinPrice: req.PriceMin,
		MaxPrice: req.PriceMax,
	})
	if err != nil {
		return c.HandleError(ctx, err, "Failed to filter results", http.StatusInternalServerError)
	}

	total := len(results)
	if req.Skip > 0 {
		if req.Skip >= len(results) {
			results = nil
		} else {
			results = results[req.Skip:]
		}
	}
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}

	dtos := make([]ResultDTO, 0, len(results))
	for i := range results {
		dtos = append(dtos, resultDTO(&results[i]))
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"total":   total,
		"results": dtos,
	})
}

// GetDimensions returns the pixel dimensions of a stored image.
func (c *Controller) GetDimensions(ctx echo.Context) error {
	path := ctx.QueryParam("path")
	if path == "" {
		return c.HandleError(ctx, nil, "path is required", http.StatusBadRequest)
	}
	if _, err := os.Stat(path); err != nil {
		return c.HandleError(ctx, err, "Image not found", http.StatusNotFound)
	}
	width, height, err := imaging.Dimensions(path)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to read image")
	}
	return ctx.JSON(http.StatusOK, map[string]int{
		"width":  width,
		"height": height,
	})
}

// Health reports service liveness.
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// handleDomainError maps error categories to HTTP statuses.
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.IsValidation(err):
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	case errors.IsCategory(err, errors.CategoryLimit):
		return c.HandleError(ctx, err, message, http.StatusRequestEntityTooLarge)
	case errors.IsNotFound(err):
		return c.HandleError(ctx, err, message, http.StatusNotFound)
	case errors.IsCategory(err, errors.CategoryImage):
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}

// publicImageURL resolves the absolute URL the provider can fetch the image
// from. Remote URLs pass through untouched.
func (c *Controller) publicImageURL(path string) string {
	if isRemoteURL(path) {
		return path
	}
	base := strings.TrimRight(c.Settings.Server.PublicBaseURL, "/")
	return base + "/static/uploads/" + filepath.Base(path)
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func productDTO(searchID uint, p *provider.Product) ResultDTO {
	return ResultDTO{
		SearchID:     searchID,
		Title:        p.Title,
		Link:         p.Link,
		ImageURL:     p.ImageURL,
		Price:        p.Price,
		Brand:        p.Brand,
		Source:       p.Source,
		Description:  p.Description,
		Rating:       p.Rating,
		ReviewsCount: p.ReviewsCount,
	}
}

func resultDTO(r *datastore.SearchResult) ResultDTO {
	return ResultDTO{
		ID:           r.ID,
		SearchID:     r.SearchID,
		Title:        r.Title,
		Link:         r.Link,
		ImageURL:     r.ImageURL,
		Price:        r.Price,
		Brand:        r.Brand,
		Source:       r.Source,
		Description:  r.Description,
		Rating:       r.Rating,
		ReviewsCount: r.ReviewsCount,
	}
}

func resultRecord(searchID uint, p *provider.Product) datastore.SearchResult {
	rec := datastore.SearchResult{
		SearchID:     searchID,
		Title:        p.Title,
		Link:         p.Link,
		ImageURL:     p.ImageURL,
		Price:        p.Price,
		Brand:        p.Brand,
		Source:       p.Source,
		Description:  p.Description,
		Rating:       p.Rating,
		ReviewsCount: p.ReviewsCount,
	}
	if p.RawData != "" {
		raw := p.RawData
		rec.RawData = &raw
	}
	return rec
}

func searchDTO(s *datastore.ImageSearch, includeResults bool) SearchDTO {
	dto := SearchDTO{
		ID:         s.ID,
		ImagePath:  s.ImagePath,
		IsClipped:  s.IsClipped,
		SearchTime: s.SearchTime,
	}
	if includeResults {
		dto.Results = make([]ResultDTO, 0, len(s.Results))
		for i := range s.Results {
			dto.Results = append(dto.Results, resultDTO(&s.Results[i]))
		}
	}
	return dto
}
