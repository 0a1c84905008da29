package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blong711/Proxy-Manager/internal/config"
	dbutil "github.com/blong711/Proxy-Manager/internal/db"
	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/security"
	"gorm.io/gorm"
)

// DefaultExpiryHorizon is the expiring-soon window used when the caller
// does not supply one.
const DefaultExpiryHorizon = 3 * 24 * time.Hour

// ProxyStore is the durable record store for proxies. All reads and writes
// of proxy state go through it; status writeback is a single UPDATE so
// concurrent readers never observe a latency without a live status.
type ProxyStore struct {
	db          *gorm.DB
	deleteBound string // config.DeleteBoundReject or config.DeleteBoundUnbind
}

// NewProxyStore constructs a proxy store with the configured delete policy.
func NewProxyStore(db *gorm.DB, deleteBoundPolicy string) *ProxyStore {
	if strings.TrimSpace(deleteBoundPolicy) == "" {
		deleteBoundPolicy = config.DeleteBoundReject
	}
	return &ProxyStore{db: db, deleteBound: deleteBoundPolicy}
}

// CreateProxyCommand is the validated payload for a single proxy create.
type CreateProxyCommand struct {
	Host         string
	Port         int
	Username     *string
	Password     *string
	Protocol     string
	ProviderName *string
	ExpireAt     *time.Time
	CostMicros   *int64
	Note         *string
}

// UpdateProxyCommand carries optional field updates; nil fields are untouched.
type UpdateProxyCommand struct {
	Host         *string
	Port         *int
	Username     *string
	Password     *string
	Protocol     *string
	ProviderName *string
	ExpireAt     *time.Time
	CostMicros   *int64
	Note         *string
}

// ListProxiesQuery filters and pages the proxy list.
type ListProxiesQuery struct {
	Status       string // Optional health-state filter.
	ProviderName string // Optional provider filter.
	Keyword      string // Optional case-insensitive host substring.
	Offset       int
	Limit        int
}

// Create validates and inserts a new proxy record owned by the actor.
func (s *ProxyStore) Create(ctx context.Context, actor security.Actor, cmd CreateProxyCommand) (*models.Proxy, error) {
	if errValidate := validateAddress(cmd.Host, cmd.Port); errValidate != nil {
		return nil, errValidate
	}
	if !models.ValidProtocol(cmd.Protocol) {
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrValidation, cmd.Protocol)
	}
	if cmd.CostMicros != nil && *cmd.CostMicros < 0 {
		return nil, fmt.Errorf("%w: cost must be non-negative", ErrValidation)
	}

	row := models.Proxy{
		Host:         strings.TrimSpace(cmd.Host),
		Port:         cmd.Port,
		Username:     cmd.Username,
		Password:     cmd.Password,
		Protocol:     cmd.Protocol,
		ProviderName: cmd.ProviderName,
		ExpireAt:     cmd.ExpireAt,
		CostMicros:   cmd.CostMicros,
		Status:       models.StatusUnchecked,
		Note:         cmd.Note,
		Owner:        actor.Username,
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, errCreate
	}
	return &row, nil
}

// InsertBatch inserts parsed import records in one statement. Duplicate
// host:port pairs are kept as-is; dedup is deliberately not a parser or
// store concern so re-imports stay visible to the operator.
func (s *ProxyStore) InsertBatch(ctx context.Context, proxies []models.Proxy) error {
	if len(proxies) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&proxies).Error
}

// Get fetches one proxy by id.
func (s *ProxyStore) Get(ctx context.Context, id uint64) (*models.Proxy, error) {
	var row models.Proxy
	if errFind := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &row, nil
}

// List returns proxies matching the query plus the unpaged total.
func (s *ProxyStore) List(ctx context.Context, q ListProxiesQuery) ([]models.Proxy, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.Proxy{})
	if status := strings.TrimSpace(q.Status); status != "" {
		if !models.ValidStatus(status) {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		base = base.Where("status = ?", status)
	}
	if provider := strings.TrimSpace(q.ProviderName); provider != "" {
		base = base.Where("provider_name = ?", provider)
	}
	if keyword := strings.TrimSpace(q.Keyword); keyword != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+keyword+"%")
		base = base.Where(dbutil.CaseInsensitiveLikeExpr(s.db, "host"), pattern)
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

	var rows []models.Proxy
	if errFind := base.Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, 0, errFind
	}
	return rows, total, nil
}

// IDs returns every proxy id, ascending. The check orchestrator snapshots
// this once per pass.
func (s *ProxyStore) IDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	if errFind := s.db.WithContext(ctx).Model(&models.Proxy{}).
		Order("id ASC").
		Pluck("id", &ids).Error; errFind != nil {
		return nil, errFind
	}
	return ids, nil
}

// Update applies the non-nil fields of cmd to an existing proxy. Status
// fields are owned by the health checker and cannot be edited here.
func (s *ProxyStore) Update(ctx context.Context, id uint64, cmd UpdateProxyCommand) (*models.Proxy, error) {
	row, errGet := s.Get(ctx, id)
	if errGet != nil {
		return nil, errGet
	}

	if cmd.Host != nil {
		row.Host = strings.TrimSpace(*cmd.Host)
	}
	if cmd.Port != nil {
		row.Port = *cmd.Port
	}
	if errValidate := validateAddress(row.Host, row.Port); errValidate != nil {
		return nil, errValidate
	}
	if cmd.Protocol != nil {
		if !models.ValidProtocol(*cmd.Protocol) {
			return nil, fmt.Errorf("%w: unknown protocol %q", ErrValidation, *cmd.Protocol)
		}
		row.Protocol = *cmd.Protocol
	}
	if cmd.CostMicros != nil && *cmd.CostMicros < 0 {
		return nil, fmt.Errorf("%w: cost must be non-negative", ErrValidation)
	}
	if cmd.Username != nil {
		row.Username = normalizeOptional(cmd.Username)
	}
	if cmd.Password != nil {
		row.Password = cmd.Password
	}
	if cmd.ProviderName != nil {
		row.ProviderName = normalizeOptional(cmd.ProviderName)
	}
	if cmd.ExpireAt != nil {
		row.ExpireAt = cmd.ExpireAt
	}
	if cmd.CostMicros != nil {
		row.CostMicros = cmd.CostMicros
	}
	if cmd.Note != nil {
		row.Note = normalizeOptional(cmd.Note)
	}

	row.UpdatedAt = time.Now().UTC()
	if errSave := s.db.WithContext(ctx).Save(row).Error; errSave != nil {
		return nil, errSave
	}
	return row, nil
}

// ApplyCheckResult writes one health-check outcome back to a record. The
// whole transition lands in a single UPDATE: latency is cleared unless the
// new status is live, and last_checked_at always moves to the check start.
func (s *ProxyStore) ApplyCheckResult(ctx context.Context, id uint64, status string, latencyMs *int64, checkedAt time.Time) error {
	if !models.ValidStatus(status) || status == models.StatusUnchecked {
		return fmt.Errorf("%w: invalid check status %q", ErrValidation, status)
	}
	if status != models.StatusLive {
		latencyMs = nil
	} else if latencyMs == nil {
		return fmt.Errorf("%w: live result requires latency", ErrValidation)
	}

	res := s.db.WithContext(ctx).Model(&models.Proxy{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"latency_ms":      latencyMs,
			"last_checked_at": checkedAt.UTC(),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpiringSoon returns proxies whose expiry falls within [now, now+horizon],
// ascending by expiry. Already-expired proxies are excluded; they need
// replacement, not renewal alerts.
func (s *ProxyStore) ExpiringSoon(ctx context.Context, horizon time.Duration) ([]models.Proxy, error) {
	if horizon <= 0 {
		horizon = DefaultExpiryHorizon
	}
	now := time.Now().UTC()
	var rows []models.Proxy
	if errFind := s.db.WithContext(ctx).
		Where("expire_at IS NOT NULL AND expire_at >= ? AND expire_at <= ?", now, now.Add(horizon)).
		Order("expire_at ASC").
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// Delete removes a proxy. Behavior with bound accounts follows the
// configured policy: reject with ErrBoundAccounts, or clear the bindings in
// the same transaction so accounts fall back to direct connection.
func (s *ProxyStore) Delete(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Proxy
		if errFind := tx.Select("id").First(&row, "id = ?", id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}

		var bound int64
		if errCount := tx.Model(&models.Account{}).
			Where("proxy_id = ?", id).
			Count(&bound).Error; errCount != nil {
			return errCount
		}
		if bound > 0 {
			if s.deleteBound == config.DeleteBoundReject {
				return fmt.Errorf("%w: %d bound", ErrBoundAccounts, bound)
			}
			if errUnbind := tx.Model(&models.Account{}).
				Where("proxy_id = ?", id).
				Update("proxy_id", nil).Error; errUnbind != nil {
				return errUnbind
			}
		}

		return tx.Delete(&models.Proxy{}, "id = ?", id).Error
	})
}

// validateAddress checks host and port before any store mutation.
func validateAddress(host string, port int) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("%w: host is required", ErrValidation)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrValidation, port)
	}
	return nil
}

// normalizeOptional trims an optional string, mapping empty to nil.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
