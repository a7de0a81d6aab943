package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Owoblo/sold2move-sub003/internal/billing"
	"github.com/Owoblo/sold2move-sub003/internal/reveal"
)

func (s *Server) handleReveal(c *gin.Context) {
	var req struct {
		Zpid string `json:"zpid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Zpid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "zpid is required"})
		return
	}

	charged, err := s.reveals.Reveal(c.Request.Context(), currentUser(c), req.Zpid)
	if err != nil {
		if errors.Is(err, reveal.ErrInsufficientCredits) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to reveal listing",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"zpid": req.Zpid, "charged": charged})
}

func (s *Server) handleBulkReveal(c *gin.Context) {
	var req struct {
		Zpids []string `json:"zpids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Zpids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "zpids are required"})
		return
	}

	charged, err := s.reveals.RevealMany(c.Request.Context(), currentUser(c), req.Zpids)
	if err != nil {
		if errors.Is(err, reveal.ErrInsufficientCredits) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to reveal listings",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requested": len(req.Zpids), "charged": charged})
}

func (s *Server) handleListReveals(c *gin.Context) {
	revealed, err := s.reveals.RevealedSet(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to load reveals",
			"detail": err.Error(),
		})
		return
	}

	zpids := make([]string, 0, len(revealed))
	for z := range revealed {
		zpids = append(zpids, z)
	}
	c.JSON(http.StatusOK, gin.H{"zpids": zpids})
}

func (s *Server) handleProfile(c *gin.Context) {
	profile, err := s.db.CreateOrUpdateProfile(currentUser(c), c.Query("email"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to load profile",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleLinkTelegram(c *gin.Context) {
	var req struct {
		ChatID int64 `json:"chat_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id is required"})
		return
	}

	if err := s.db.SetTelegramChat(currentUser(c), req.ChatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to link telegram chat",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "linked"})
}

func (s *Server) handleSetCities(c *gin.Context) {
	var req struct {
		Cities []string `json:"cities"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Cities) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cities are required"})
		return
	}

	if _, err := s.db.CreateOrUpdateProfile(currentUser(c), ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to update cities",
			"detail": err.Error(),
		})
		return
	}
	if err := s.db.SetServiceCities(currentUser(c), req.Cities); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to update cities",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cities": req.Cities})
}

func (s *Server) handleListAlerts(c *gin.Context) {
	alerts, err := s.db.GetUserAlerts(currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to load alerts",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *Server) handleCreateAlert(c *gin.Context) {
	var req struct {
		City     string  `json:"city"`
		MinPrice float64 `json:"min_price"`
		MaxPrice float64 `json:"max_price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.City == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}
	if req.MaxPrice > 0 && req.MinPrice > req.MaxPrice {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Minimum price cannot be greater than maximum"})
		return
	}

	alert, err := s.db.CreateAlert(currentUser(c), req.City, req.MinPrice, req.MaxPrice)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to create alert",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

func (s *Server) handleToggleAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	if err := s.db.ToggleAlert(uint(id), currentUser(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to toggle alert",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "toggled"})
}

func (s *Server) handleDeleteAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	if err := s.db.DeleteAlert(uint(id), currentUser(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to delete alert",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleBillingWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	event, err := s.billing.ProcessWebhook(c.Param("provider"), body)
	if err != nil {
		// Providers treat 4xx as permanent and stop retrying, so only
		// truly unusable payloads get one. Storage or grant failures are
		// transient and must come back.
		if errors.Is(err, billing.ErrBadPayload) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "invalid webhook payload",
				"detail": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to process webhook",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event_id":        event.ProviderEventID,
		"credits_granted": event.CreditsGranted,
	})
}
