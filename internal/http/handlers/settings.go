package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/settings"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SettingsHandler manages the runtime-tunable engine knobs. Writes refresh
// the in-memory snapshot so the next check pass picks them up without a
// restart. Admin only.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// knownSettingKeys lists the keys the engine reads. Writes to other keys
// are rejected so typos fail loudly instead of silently doing nothing.
var knownSettingKeys = map[string]bool{
	settings.CheckTimeoutSecondsKey: true,
	settings.CheckMaxConcurrencyKey: true,
	settings.CheckURLKey:            true,
	settings.ExpiringSoonDaysKey:    true,
}

// List returns all settings rows.
func (h *SettingsHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"key":        row.Key,
			"value":      row.Value,
			"updated_at": row.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

// Put upserts one setting. The body is the raw JSON value.
func (h *SettingsHandler) Put(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if !knownSettingKeys[key] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown setting key"})
		return
	}

	raw, errRead := io.ReadAll(io.LimitReader(c.Request.Body, 4096))
	if errRead != nil || !json.Valid(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON value"})
		return
	}

	if errPut := settings.Put(c.Request.Context(), h.db, key, json.RawMessage(raw)); errPut != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save setting failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"value": json.RawMessage(raw),
	})
}
