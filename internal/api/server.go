package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Owoblo/sold2move-sub003/internal/billing"
	"github.com/Owoblo/sold2move-sub003/internal/cache"
	"github.com/Owoblo/sold2move-sub003/internal/config"
	"github.com/Owoblo/sold2move-sub003/internal/database"
	"github.com/Owoblo/sold2move-sub003/internal/kafka"
	"github.com/Owoblo/sold2move-sub003/internal/reveal"
)

// Server is the dashboard HTTP API.
type Server struct {
	cfg      *config.Config
	db       *database.DB
	cache    *cache.RedisCache
	reveals  *reveal.Service
	billing  *billing.Service
	producer *kafka.Producer
}

func NewServer(cfg *config.Config, db *database.DB, redisCache *cache.RedisCache, producer *kafka.Producer) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		cache:    redisCache,
		reveals:  reveal.NewService(db),
		billing:  billing.NewService(db),
		producer: producer,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks carry their own authentication semantics and no
	// user header.
	r.POST("/webhooks/billing/:provider", s.handleBillingWebhook)

	api := r.Group("/api")
	api.Use(requireUser())
	{
		api.GET("/listings/just-listed", s.handleJustListed)
		api.GET("/listings/sold", s.handleSold)
		api.GET("/stats", s.handleStats)
		api.GET("/export/csv", s.handleExportCSV)

		api.GET("/reveals", s.handleListReveals)
		api.POST("/reveals", s.handleReveal)
		api.POST("/reveals/bulk", s.handleBulkReveal)

		api.GET("/profile", s.handleProfile)
		api.POST("/profile/telegram", s.handleLinkTelegram)
		api.POST("/profile/cities", s.handleSetCities)

		api.GET("/alerts", s.handleListAlerts)
		api.POST("/alerts", s.handleCreateAlert)
		api.POST("/alerts/:id/toggle", s.handleToggleAlert)
		api.DELETE("/alerts/:id", s.handleDeleteAlert)

		api.POST("/admin/scrape", s.handleTriggerScrape)
	}

	return r
}

const userKey = "userID"

// requireUser resolves the caller from the X-User-Id header set by the
// auth proxy in front of this service.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-Id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		c.Set(userKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userKey)
}
