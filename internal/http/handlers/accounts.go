package handlers

import (
	"net/http"

	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/store"
	"github.com/gin-gonic/gin"
)

// AccountHandler manages platform account CRUD endpoints.
type AccountHandler struct {
	accounts *store.AccountStore
}

// NewAccountHandler constructs an account handler.
func NewAccountHandler(accounts *store.AccountStore) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// createAccountRequest captures the payload for creating an account.
type createAccountRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Platform string  `json:"platform"`
	Status   string  `json:"status"`
	Note     *string `json:"note"`
	ProxyID  *uint64 `json:"proxy_id"`
}

// updateAccountRequest captures the payload for updating an account.
// clear_proxy unbinds the account regardless of proxy_id.
type updateAccountRequest struct {
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	Platform   *string `json:"platform"`
	Status     *string `json:"status"`
	Note       *string `json:"note"`
	ProxyID    *uint64 `json:"proxy_id"`
	ClearProxy bool    `json:"clear_proxy"`
}

// Create validates and inserts a new account.
func (h *AccountHandler) Create(c *gin.Context) {
	var body createAccountRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	row, errCreate := h.accounts.Create(c.Request.Context(), store.CreateAccountCommand{
		Username: body.Username,
		Password: body.Password,
		Platform: body.Platform,
		Status:   body.Status,
		Note:     body.Note,
		ProxyID:  body.ProxyID,
	})
	if errCreate != nil {
		respondStoreError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, accountRow(row))
}

// List returns accounts filtered by platform and status.
func (h *AccountHandler) List(c *gin.Context) {
	rows, total, errList := h.accounts.List(c.Request.Context(), store.ListAccountsQuery{
		Platform: c.Query("platform"),
		Status:   c.Query("status"),
		Offset:   parseIntQuery(c, "offset", 0),
		Limit:    parseIntQuery(c, "limit", 100),
	})
	if errList != nil {
		respondStoreError(c, errList)
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, accountRow(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out, "total": total})
}

// Get returns one account by id.
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, errGet := h.accounts.Get(c.Request.Context(), id)
	if errGet != nil {
		respondStoreError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, accountRow(row))
}

// Update edits an account's fields or proxy binding.
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body updateAccountRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	row, errUpdate := h.accounts.Update(c.Request.Context(), id, store.UpdateAccountCommand{
		Username:   body.Username,
		Password:   body.Password,
		Platform:   body.Platform,
		Status:     body.Status,
		Note:       body.Note,
		ProxyID:    body.ProxyID,
		ClearProxy: body.ClearProxy,
	})
	if errUpdate != nil {
		respondStoreError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, accountRow(row))
}

// Delete removes an account.
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if errDelete := h.accounts.Delete(c.Request.Context(), id); errDelete != nil {
		respondStoreError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// accountRow converts an account model into a response payload.
func accountRow(row *models.Account) gin.H {
	if row == nil {
		return gin.H{}
	}
	return gin.H{
		"id":         row.ID,
		"username":   row.Username,
		"password":   row.Password,
		"platform":   row.Platform,
		"status":     row.Status,
		"note":       row.Note,
		"proxy_id":   row.ProxyID,
		"created_at": row.CreatedAt,
		"updated_at": row.UpdatedAt,
	}
}
