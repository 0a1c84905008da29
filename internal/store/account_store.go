package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blong711/Proxy-Manager/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AccountStore manages platform accounts and their weak proxy bindings.
// It is the engine's account collaborator: binding validation only checks
// that the target proxy exists; binding to a non-live proxy is allowed.
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore constructs an account store.
func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// CreateAccountCommand is the validated payload for an account create.
type CreateAccountCommand struct {
	Username string
	Password string
	Platform string
	Status   string
	Note     *string
	ProxyID  *uint64
}

// UpdateAccountCommand carries optional field updates; nil fields are untouched.
// ClearProxy unbinds the account regardless of ProxyID.
type UpdateAccountCommand struct {
	Username   *string
	Password   *string
	Platform   *string
	Status     *string
	Note       *string
	ProxyID    *uint64
	ClearProxy bool
}

// ListAccountsQuery filters and pages the account list.
type ListAccountsQuery struct {
	Platform string
	Status   string
	Offset   int
	Limit    int
}

// Create validates and inserts a new account.
func (s *AccountStore) Create(ctx context.Context, cmd CreateAccountCommand) (*models.Account, error) {
	username := strings.TrimSpace(cmd.Username)
	platform := strings.TrimSpace(cmd.Platform)
	if username == "" || cmd.Password == "" || platform == "" {
		return nil, fmt.Errorf("%w: username, password and platform are required", ErrValidation)
	}
	status := cmd.Status
	if status == "" {
		status = models.AccountActive
	}
	if !models.ValidAccountStatus(status) {
		return nil, fmt.Errorf("%w: unknown account status %q", ErrValidation, status)
	}
	if errBind := s.validateBinding(ctx, cmd.ProxyID); errBind != nil {
		return nil, errBind
	}

	row := models.Account{
		Username: username,
		Password: cmd.Password,
		Platform: platform,
		Status:   status,
		Note:     cmd.Note,
		ProxyID:  cmd.ProxyID,
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, errCreate
	}
	return &row, nil
}

// Get fetches one account by id.
func (s *AccountStore) Get(ctx context.Context, id uint64) (*models.Account, error) {
	var row models.Account
	if errFind := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &row, nil
}

// List returns accounts matching the query plus the unpaged total.
func (s *AccountStore) List(ctx context.Context, q ListAccountsQuery) ([]models.Account, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.Account{})
	if platform := strings.TrimSpace(q.Platform); platform != "" {
		base = base.Where("platform = ?", platform)
	}
	if status := strings.TrimSpace(q.Status); status != "" {
		if !models.ValidAccountStatus(status) {
			return nil, 0, fmt.Errorf("%w: unknown account status %q", ErrValidation, status)
		}
		base = base.Where("status = ?", status)
	}

	var total int64
	if errCount := base.Count(&total).Error; errCount != nil {
		return nil, 0, errCount
	}

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var rows []models.Account
	if errFind := base.Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, 0, errFind
	}
	return rows, total, nil
}

// Update applies the non-nil fields of cmd to an existing account.
func (s *AccountStore) Update(ctx context.Context, id uint64, cmd UpdateAccountCommand) (*models.Account, error) {
	row, errGet := s.Get(ctx, id)
	if errGet != nil {
		return nil, errGet
	}

	if cmd.Username != nil {
		username := strings.TrimSpace(*cmd.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", ErrValidation)
		}
		row.Username = username
	}
	if cmd.Password != nil {
		if *cmd.Password == "" {
			return nil, fmt.Errorf("%w: password cannot be empty", ErrValidation)
		}
		row.Password = *cmd.Password
	}
	if cmd.Platform != nil {
		platform := strings.TrimSpace(*cmd.Platform)
		if platform == "" {
			return nil, fmt.Errorf("%w: platform cannot be empty", ErrValidation)
		}
		row.Platform = platform
	}
	if cmd.Status != nil {
		if !models.ValidAccountStatus(*cmd.Status) {
			return nil, fmt.Errorf("%w: unknown account status %q", ErrValidation, *cmd.Status)
		}
		row.Status = *cmd.Status
	}
	if cmd.Note != nil {
		row.Note = normalizeOptional(cmd.Note)
	}
	if cmd.ClearProxy {
		row.ProxyID = nil
	} else if cmd.ProxyID != nil {
		if errBind := s.validateBinding(ctx, cmd.ProxyID); errBind != nil {
			return nil, errBind
		}
		row.ProxyID = cmd.ProxyID
	}

	row.UpdatedAt = time.Now().UTC()
	if errSave := s.db.WithContext(ctx).Save(row).Error; errSave != nil {
		return nil, errSave
	}
	return row, nil
}

// Delete removes an account. Accounts are leaves; nothing cascades.
func (s *AccountStore) Delete(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.Account{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of accounts.
func (s *AccountStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if errCount := s.db.WithContext(ctx).Model(&models.Account{}).Count(&total).Error; errCount != nil {
		return 0, errCount
	}
	return total, nil
}

// validateBinding verifies the referenced proxy exists. Liveness is not
// required; operators bind accounts ahead of the first check.
func (s *AccountStore) validateBinding(ctx context.Context, proxyID *uint64) error {
	if proxyID == nil {
		return nil
	}
	var row models.Proxy
	errFind := s.db.WithContext(ctx).Select("id", "status").First(&row, "id = ?", *proxyID).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: proxy %d does not exist", ErrValidation, *proxyID)
	}
	if errFind != nil {
		return errFind
	}
	if row.Status != models.StatusLive {
		log.Debugf("binding account to non-live proxy %d (status=%s)", row.ID, row.Status)
	}
	return nil
}
