package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/blong711/Proxy-Manager/internal/checker"
	"github.com/blong711/Proxy-Manager/internal/importer"
	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/security"
	"github.com/blong711/Proxy-Manager/internal/store"
	"github.com/gin-gonic/gin"
)

// ProxyHandler manages proxy CRUD, bulk import and health-check endpoints.
type ProxyHandler struct {
	proxies *store.ProxyStore
	orch    *checker.Orchestrator
}

// NewProxyHandler constructs a proxy handler.
func NewProxyHandler(proxies *store.ProxyStore, orch *checker.Orchestrator) *ProxyHandler {
	return &ProxyHandler{proxies: proxies, orch: orch}
}

// createProxyRequest captures the payload for creating a proxy.
type createProxyRequest struct {
	Host         string     `json:"host"`
	Port         int        `json:"port"`
	Username     *string    `json:"username"`
	Password     *string    `json:"password"`
	Protocol     string     `json:"protocol"`
	ProviderName *string    `json:"provider_name"`
	ExpireAt     *time.Time `json:"expire_at"`
	CostMicros   *int64     `json:"cost_micros"`
	Note         *string    `json:"note"`
}

// updateProxyRequest captures the payload for updating a proxy; absent
// fields are left untouched.
type updateProxyRequest struct {
	Host         *string    `json:"host"`
	Port         *int       `json:"port"`
	Username     *string    `json:"username"`
	Password     *string    `json:"password"`
	Protocol     *string    `json:"protocol"`
	ProviderName *string    `json:"provider_name"`
	ExpireAt     *time.Time `json:"expire_at"`
	CostMicros   *int64     `json:"cost_micros"`
	Note         *string    `json:"note"`
}

// importRequest captures a bulk import batch: raw text plus shared defaults.
type importRequest struct {
	Text         string  `json:"text"`
	Protocol     string  `json:"protocol"`
	ProviderName *string `json:"provider_name"`
	CostMicros   *int64  `json:"cost_micros"`
}

// Create validates and inserts a new proxy record.
func (h *ProxyHandler) Create(c *gin.Context, actor security.Actor) {
	var body createProxyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Protocol == "" {
		body.Protocol = models.ProtocolHTTP
	}

	row, errCreate := h.proxies.Create(c.Request.Context(), actor, store.CreateProxyCommand{
		Host:         body.Host,
		Port:         body.Port,
		Username:     body.Username,
		Password:     body.Password,
		Protocol:     body.Protocol,
		ProviderName: body.ProviderName,
		ExpireAt:     body.ExpireAt,
		CostMicros:   body.CostMicros,
		Note:         body.Note,
	})
	if errCreate != nil {
		respondStoreError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, proxyRow(row))
}

// List returns proxies filtered by status, provider and keyword.
func (h *ProxyHandler) List(c *gin.Context) {
	rows, total, errList := h.proxies.List(c.Request.Context(), store.ListProxiesQuery{
		Status:       c.Query("status"),
		ProviderName: c.Query("provider_name"),
		Keyword:      c.Query("keyword"),
		Offset:       parseIntQuery(c, "offset", 0),
		Limit:        parseIntQuery(c, "limit", 100),
	})
	if errList != nil {
		respondStoreError(c, errList)
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, proxyRow(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"proxies": out, "total": total})
}

// Get returns one proxy by id.
func (h *ProxyHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, errGet := h.proxies.Get(c.Request.Context(), id)
	if errGet != nil {
		respondStoreError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, proxyRow(row))
}

// Update edits a proxy's address, credentials or billing fields.
func (h *ProxyHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body updateProxyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	row, errUpdate := h.proxies.Update(c.Request.Context(), id, store.UpdateProxyCommand{
		Host:         body.Host,
		Port:         body.Port,
		Username:     body.Username,
		Password:     body.Password,
		Protocol:     body.Protocol,
		ProviderName: body.ProviderName,
		ExpireAt:     body.ExpireAt,
		CostMicros:   body.CostMicros,
		Note:         body.Note,
	})
	if errUpdate != nil {
		respondStoreError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, proxyRow(row))
}

// Delete removes a proxy, honoring the bound-accounts policy.
func (h *ProxyHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if errDelete := h.proxies.Delete(c.Request.Context(), id); errDelete != nil {
		respondStoreError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Import parses pasted text and inserts the valid lines. Malformed lines
// are counted, never fatal.
func (h *ProxyHandler) Import(c *gin.Context, actor security.Actor) {
	var body importRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if body.Protocol == "" {
		body.Protocol = models.ProtocolHTTP
	}
	if !models.ValidProtocol(body.Protocol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown protocol"})
		return
	}
	if body.CostMicros != nil && *body.CostMicros < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cost must be non-negative"})
		return
	}

	result := importer.Parse(body.Text, importer.Defaults{
		Protocol:     body.Protocol,
		ProviderName: body.ProviderName,
		CostMicros:   body.CostMicros,
		Owner:        actor.Username,
	})
	if errInsert := h.proxies.InsertBatch(c.Request.Context(), result.Proxies); errInsert != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imported": len(result.Proxies),
		"failed":   result.Failed,
	})
}

// CheckOne runs a synchronous health check for a single proxy.
func (h *ProxyHandler) CheckOne(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, errCheck := h.orch.CheckOne(c.Request.Context(), id)
	if errCheck != nil {
		respondStoreError(c, errCheck)
		return
	}
	c.JSON(http.StatusOK, proxyRow(row))
}

// CheckAll schedules a background pass over every proxy and returns the
// job id immediately.
func (h *ProxyHandler) CheckAll(c *gin.Context) {
	job, errSchedule := h.orch.CheckAll(c.Request.Context())
	if errSchedule != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "schedule check failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"total":  job.Total,
		"status": job.Status,
	})
}

// CheckJob returns the progress of one check-all pass.
func (h *ProxyHandler) CheckJob(c *gin.Context) {
	job, ok := h.orch.Job(strings.TrimSpace(c.Param("job_id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, jobRow(job))
}

// proxyRow converts a proxy model into a response payload. The password is
// echoed back; the dashboard edits credentials in place.
func proxyRow(row *models.Proxy) gin.H {
	if row == nil {
		return gin.H{}
	}
	return gin.H{
		"id":              row.ID,
		"host":            row.Host,
		"port":            row.Port,
		"username":        row.Username,
		"password":        row.Password,
		"protocol":        row.Protocol,
		"provider_name":   row.ProviderName,
		"expire_at":       row.ExpireAt,
		"cost_micros":     row.CostMicros,
		"status":          row.Status,
		"last_checked_at": row.LastCheckedAt,
		"latency_ms":      row.LatencyMs,
		"note":            row.Note,
		"owner":           row.Owner,
		"created_at":      row.CreatedAt,
		"updated_at":      row.UpdatedAt,
	}
}

// jobRow converts a job snapshot into a response payload.
func jobRow(job checker.Job) gin.H {
	return gin.H{
		"job_id":      job.ID,
		"status":      job.Status,
		"total":       job.Total,
		"processed":   job.Processed,
		"by_status":   job.ByStatus,
		"skipped":     job.Skipped,
		"started_at":  job.StartedAt,
		"finished_at": job.FinishedAt,
	}
}
