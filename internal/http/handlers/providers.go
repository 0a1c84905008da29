package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProviderHandler manages proxy vendor bookkeeping endpoints.
type ProviderHandler struct {
	db *gorm.DB
}

// NewProviderHandler constructs a provider handler.
func NewProviderHandler(db *gorm.DB) *ProviderHandler {
	return &ProviderHandler{db: db}
}

// providerRequest captures the payload for creating or updating a provider.
type providerRequest struct {
	Name   string          `json:"name"`
	APIURL *string         `json:"api_url"`
	APIKey *string         `json:"api_key"`
	Config json.RawMessage `json:"config"`
}

// Create inserts a new provider. Names are unique.
func (h *ProviderHandler) Create(c *gin.Context) {
	var body providerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	row := models.Provider{
		Name:   name,
		APIURL: body.APIURL,
		APIKey: body.APIKey,
	}
	if len(body.Config) > 0 {
		row.Config = datatypes.JSON(body.Config)
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "provider name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, providerRow(&row))
}

// List returns all providers.
func (h *ProviderHandler) List(c *gin.Context) {
	var rows []models.Provider
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("name ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, providerRow(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"providers": out, "total": len(out)})
}

// Get returns one provider by id.
func (h *ProviderHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, ok := h.find(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, providerRow(row))
}

// Update edits a provider's vendor bookkeeping fields.
func (h *ProviderHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body providerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	row, ok := h.find(c, id)
	if !ok {
		return
	}
	if name := strings.TrimSpace(body.Name); name != "" {
		row.Name = name
	}
	if body.APIURL != nil {
		row.APIURL = body.APIURL
	}
	if body.APIKey != nil {
		row.APIKey = body.APIKey
	}
	if len(body.Config) > 0 {
		row.Config = datatypes.JSON(body.Config)
	}

	if errSave := h.db.WithContext(c.Request.Context()).Save(row).Error; errSave != nil {
		if errors.Is(errSave, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "provider name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, providerRow(row))
}

// Delete removes a provider. Proxies keep their free-text provider name, so
// billing rollups are unaffected.
func (h *ProviderHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Provider{}, "id = ?", id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *ProviderHandler) find(c *gin.Context, id uint64) (*models.Provider, bool) {
	var row models.Provider
	if errFind := h.db.WithContext(c.Request.Context()).
		First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return nil, false
	}
	return &row, true
}

// providerRow converts a provider model into a response payload.
func providerRow(row *models.Provider) gin.H {
	var cfg json.RawMessage
	if len(row.Config) > 0 {
		cfg = json.RawMessage(row.Config)
	}
	return gin.H{
		"id":         row.ID,
		"name":       row.Name,
		"api_url":    row.APIURL,
		"api_key":    row.APIKey,
		"config":     cfg,
		"created_at": row.CreatedAt,
		"updated_at": row.UpdatedAt,
	}
}
