package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Owoblo/sold2move-sub003/internal/cache"
	"github.com/Owoblo/sold2move-sub003/internal/database"
	"github.com/Owoblo/sold2move-sub003/internal/export"
	"github.com/Owoblo/sold2move-sub003/internal/reveal"
)

// handleJustListed serves a page of just-listed rows, cached briefly in
// Redis. Masking happens per user after the cache, so the cache holds one
// copy of the raw page for everyone.
func (s *Server) handleJustListed(c *gin.Context) {
	cities := s.citiesForUser(c)
	filter, problems := parseFilter(c)
	if len(problems) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter", "problems": problems})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	key := cache.QueryKey(cities, page, pageSize, filter)
	result, hit := s.cache.GetCachedJustListed(key)
	if !hit {
		var err error
		result, err = s.db.FetchJustListed(c.Request.Context(), cities, page, pageSize, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  "failed to load listings",
				"detail": err.Error(),
			})
			return
		}
		if err := s.cache.CacheJustListed(key, result); err != nil {
			log.Printf("Failed to cache just-listed page: %v", err)
		}
	}

	views, err := s.formatForUser(c, result.Listings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to load listings",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": views,
		"total":    result.Total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// handleSold serves all sold rows since the previous run, filtered
// in-process.
func (s *Server) handleSold(c *gin.Context) {
	cities := s.citiesForUser(c)
	filter, problems := parseFilter(c)
	if len(problems) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter", "problems": problems})
		return
	}

	listings, err := s.db.FetchSoldSincePrev(c.Request.Context(), cities, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to load listings",
			"detail": err.Error(),
		})
		return
	}

	views, err := s.formatForUser(c, listings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to load listings",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": views,
		"total":    len(views),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	cities := s.citiesForUser(c)
	if len(cities) == 0 {
		cities = s.cfg.ServiceCities
	}

	stats, err := s.db.Stats(c.Request.Context(), cities)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to load stats",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cities": stats})
}

// handleExportCSV streams the current result set as a mail-merge CSV.
// Unrevealed listings keep their placeholder strings in the file.
func (s *Server) handleExportCSV(c *gin.Context) {
	cities := s.citiesForUser(c)
	filter, problems := parseFilter(c)
	if len(problems) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter", "problems": problems})
		return
	}

	var (
		listings []*database.Listing
		err      error
	)

	status := c.DefaultQuery("status", database.StatusJustListed)
	if status == database.StatusSold {
		listings, err = s.db.FetchSoldSincePrev(c.Request.Context(), cities, filter)
	} else {
		var page *database.JustListedPage
		page, err = s.db.FetchJustListed(c.Request.Context(), cities, 1, 10_000, filter)
		if page != nil {
			listings = page.Listings
		}
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to export listings",
			"detail": err.Error(),
		})
		return
	}

	views, err := s.formatForUser(c, listings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to export listings",
			"detail": err.Error(),
		})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-listings.csv", status))
	if err := export.Listings(c.Writer, views); err != nil {
		// Headers are out by now; all we can do is log.
		log.Printf("CSV export failed mid-stream: %v", err)
	}
}

// handleTriggerScrape publishes a scrape request for the ingestor.
func (s *Server) handleTriggerScrape(c *gin.Context) {
	var req struct {
		City string `json:"city"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := s.producer.PublishScrapeRequest(req.City); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to trigger scrape",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "scrape requested", "city": req.City})
}

// formatForUser loads the caller's reveal state and maps rows to masked
// views.
func (s *Server) formatForUser(c *gin.Context, listings []*database.Listing) ([]*reveal.ListingView, error) {
	userID := currentUser(c)

	profile, err := s.db.GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	unlimited := profile != nil && profile.Unlimited

	revealed, err := s.reveals.RevealedSet(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}

	return reveal.FormatListings(listings, revealed, unlimited), nil
}

// citiesForUser resolves the query scope: an explicit city parameter wins,
// then the profile's subscribed cities.
func (s *Server) citiesForUser(c *gin.Context) []string {
	if cities := parseCities(c); len(cities) > 0 {
		return cities
	}

	profile, err := s.db.GetProfile(currentUser(c))
	if err != nil {
		log.Printf("Failed to load profile for city scope: %v", err)
		return nil
	}
	return profile.CityList()
}

func parseCities(c *gin.Context) []string {
	raw := c.Query("city")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	cities := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			cities = append(cities, trimmed)
		}
	}
	return cities
}

// parseFilter builds the filter object from query parameters and validates
// it. The dateRange parameter is a preset; custom ranges come as startDate
// and endDate.
func parseFilter(c *gin.Context) (*database.Filter, []string) {
	f := &database.Filter{
		SearchTerm:   c.Query("searchTerm"),
		PropertyType: c.Query("propertyType"),
	}

	f.MinPrice = queryFloat(c, "minPrice")
	f.MaxPrice = queryFloat(c, "maxPrice")
	f.Beds = queryInt(c, "beds")
	f.Baths = queryInt(c, "baths")
	f.MinSqft = queryInt(c, "minSqft")
	f.MaxSqft = queryInt(c, "maxSqft")

	if start, end := c.Query("startDate"), c.Query("endDate"); start != "" || end != "" {
		f.DateRange = &database.DateRange{Type: "custom", StartDate: start, EndDate: end}
	} else if preset := c.Query("dateRange"); preset != "" {
		f.DateRange = &database.DateRange{Preset: preset}
	}

	return f, f.Validate()
}

func queryFloat(c *gin.Context, key string) *float64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryInt(c *gin.Context, key string) *int64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
