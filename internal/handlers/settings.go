package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/vmops/snapfleet/api/v1"
	"github.com/vmops/snapfleet/internal/forest"
	"github.com/vmops/snapfleet/internal/store"
)

// GetSettings returns the persisted operator preferences
// (GET /settings)
func (h *Handler) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()

	ageMode, err := h.settings.Get(ctx, store.SettingAgeMode, "")
	if err != nil {
		zap.S().Named("settings_handler").Errorw("failed to load settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	criteriaJSON, err := h.settings.Get(ctx, store.SettingDefaultCriteria, "")
	if err != nil {
		zap.S().Named("settings_handler").Errorw("failed to load settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	settings := v1.Settings{AgeMode: ageMode}
	if criteriaJSON != "" {
		var criteria v1.SnapshotQueryRequest
		if err := json.Unmarshal([]byte(criteriaJSON), &criteria); err == nil {
			settings.DefaultCriteria = &criteria
		}
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings persists the operator preferences wholesale
// (PUT /settings)
func (h *Handler) UpdateSettings(c *gin.Context) {
	var settings v1.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings body"})
		return
	}
	switch forest.AgeMode(settings.AgeMode) {
	case "", forest.AgeModeBusiness, forest.AgeModeCalendar:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "age mode must be business or calendar"})
		return
	}

	criteriaJSON := ""
	if settings.DefaultCriteria != nil {
		raw, err := json.Marshal(settings.DefaultCriteria)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid default criteria"})
			return
		}
		criteriaJSON = string(raw)
	}

	ctx := c.Request.Context()
	if err := h.settings.Set(ctx, store.SettingAgeMode, settings.AgeMode); err != nil {
		zap.S().Named("settings_handler").Errorw("failed to save settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	if err := h.settings.Set(ctx, store.SettingDefaultCriteria, criteriaJSON); err != nil {
		zap.S().Named("settings_handler").Errorw("failed to save settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}
