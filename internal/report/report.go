// Package report computes the dashboard-facing summary: status histogram,
// expiring-soon list and billing rollups. All monetary values are integer
// micros so sums are exact.
package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/settings"
	"github.com/blong711/Proxy-Manager/internal/store"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// summaryCacheKey is the redis key holding the cached summary JSON.
const summaryCacheKey = "proxy-manager:dashboard:summary"

// Summary is the full dashboard payload, recomputed on each invocation
// unless served from the short-TTL cache.
type Summary struct {
	Proxies     ProxySummary   `json:"proxies"`
	Accounts    AccountSummary `json:"accounts"`
	Billing     BillingSummary `json:"billing"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// ProxySummary aggregates proxy pool state.
type ProxySummary struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	ExpiringSoon []ExpiringProxy  `json:"expiring_soon"`
}

// ExpiringProxy is one renewal-alert entry, ascending by expiry.
type ExpiringProxy struct {
	ID           uint64    `json:"id"`
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	ExpireAt     time.Time `json:"expire_at"`
	ProviderName *string   `json:"provider_name"`
	CostMicros   *int64    `json:"cost_micros"`
}

// AccountSummary aggregates the external account collaborator's records.
type AccountSummary struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// BillingSummary carries the cost rollups in micros.
//
// TotalMonthlyCostMicros and ByProviderMicros share the same base set —
// proxies currently bound to at least one account — so the per-provider
// values sum exactly to the total restricted to named providers.
type BillingSummary struct {
	TotalMonthlyCostMicros int64            `json:"total_monthly_cost_micros"`
	RenewalNeededMicros    int64            `json:"renewal_needed_micros"`
	ByProviderMicros       map[string]int64 `json:"by_provider_micros"`
}

// Reporter computes dashboard summaries from the record store, with an
// optional redis cache whose TTL must stay below the dashboard poll interval.
type Reporter struct {
	db      *gorm.DB
	proxies *store.ProxyStore
	cache   *redis.Client
	ttl     time.Duration
}

// NewReporter constructs a reporter. cache may be nil to disable caching.
func NewReporter(db *gorm.DB, proxies *store.ProxyStore, cache *redis.Client, ttl time.Duration) *Reporter {
	return &Reporter{db: db, proxies: proxies, cache: cache, ttl: ttl}
}

// Summary returns the current dashboard summary, serving the cached copy
// when one is fresh.
func (r *Reporter) Summary(ctx context.Context) (Summary, error) {
	if cached, ok := r.fromCache(ctx); ok {
		return cached, nil
	}

	summary, errCompute := r.compute(ctx)
	if errCompute != nil {
		return Summary{}, errCompute
	}
	r.toCache(ctx, summary)
	return summary, nil
}

// compute runs the aggregate queries.
func (r *Reporter) compute(ctx context.Context) (Summary, error) {
	now := time.Now().UTC()
	summary := Summary{GeneratedAt: now}

	byStatus, total, errProxies := r.statusHistogram(ctx)
	if errProxies != nil {
		return Summary{}, errProxies
	}
	summary.Proxies.Total = total
	summary.Proxies.ByStatus = byStatus

	horizonDays := settings.IntValue(settings.ExpiringSoonDaysKey, settings.DefaultExpiringSoonDays)
	if horizonDays <= 0 {
		horizonDays = settings.DefaultExpiringSoonDays
	}
	expiring, errExpiring := r.proxies.ExpiringSoon(ctx, time.Duration(horizonDays)*24*time.Hour)
	if errExpiring != nil {
		return Summary{}, errExpiring
	}
	summary.Proxies.ExpiringSoon = make([]ExpiringProxy, 0, len(expiring))
	renewal := int64(0)
	for i := range expiring {
		p := &expiring[i]
		summary.Proxies.ExpiringSoon = append(summary.Proxies.ExpiringSoon, ExpiringProxy{
			ID:           p.ID,
			Host:         p.Host,
			Port:         p.Port,
			ExpireAt:     *p.ExpireAt,
			ProviderName: p.ProviderName,
			CostMicros:   p.CostMicros,
		})
		if p.CostMicros != nil {
			renewal += *p.CostMicros
		}
	}
	summary.Billing.RenewalNeededMicros = renewal

	accountTotal, accountByStatus, errAccounts := r.accountHistogram(ctx)
	if errAccounts != nil {
		return Summary{}, errAccounts
	}
	summary.Accounts.Total = accountTotal
	summary.Accounts.ByStatus = accountByStatus

	totalCost, byProvider, errBilling := r.boundCosts(ctx)
	if errBilling != nil {
		return Summary{}, errBilling
	}
	summary.Billing.TotalMonthlyCostMicros = totalCost
	summary.Billing.ByProviderMicros = byProvider

	return summary, nil
}

// statusHistogram counts proxies per health state, including empty buckets.
func (r *Reporter) statusHistogram(ctx context.Context) (map[string]int64, int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if errFind := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; errFind != nil {
		return nil, 0, errFind
	}

	byStatus := make(map[string]int64, len(models.ProxyStatuses))
	for _, status := range models.ProxyStatuses {
		byStatus[status] = 0
	}
	total := int64(0)
	for _, row := range rows {
		byStatus[row.Status] = row.N
		total += row.N
	}
	return byStatus, total, nil
}

// accountHistogram counts accounts per state.
func (r *Reporter) accountHistogram(ctx context.Context) (int64, map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if errFind := r.db.WithContext(ctx).Model(&models.Account{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; errFind != nil {
		return 0, nil, errFind
	}

	byStatus := make(map[string]int64, len(rows))
	total := int64(0)
	for _, row := range rows {
		byStatus[row.Status] = row.N
		total += row.N
	}
	return total, byStatus, nil
}

// boundCosts sums monthly cost over proxies bound to at least one account,
// in total and grouped by provider. Proxies without a provider name count
// toward the total but not the grouping.
func (r *Reporter) boundCosts(ctx context.Context) (int64, map[string]int64, error) {
	boundIDs := r.db.WithContext(ctx).Model(&models.Account{}).
		Select("DISTINCT proxy_id").
		Where("proxy_id IS NOT NULL")

	var totalCost int64
	if errSum := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Where("cost_micros IS NOT NULL AND id IN (?)", boundIDs).
		Select("COALESCE(SUM(cost_micros), 0)").
		Scan(&totalCost).Error; errSum != nil {
		return 0, nil, errSum
	}

	var rows []struct {
		ProviderName string
		Cost         int64
	}
	if errGroup := r.db.WithContext(ctx).Model(&models.Proxy{}).
		Select("provider_name, COALESCE(SUM(cost_micros), 0) AS cost").
		Where("cost_micros IS NOT NULL AND provider_name IS NOT NULL AND provider_name <> '' AND id IN (?)", boundIDs).
		Group("provider_name").
		Scan(&rows).Error; errGroup != nil {
		return 0, nil, errGroup
	}

	byProvider := make(map[string]int64, len(rows))
	for _, row := range rows {
		byProvider[row.ProviderName] = row.Cost
	}
	return totalCost, byProvider, nil
}

// fromCache fetches a fresh cached summary if redis is configured.
func (r *Reporter) fromCache(ctx context.Context) (Summary, bool) {
	if r.cache == nil || r.ttl <= 0 {
		return Summary{}, false
	}
	raw, errGet := r.cache.Get(ctx, summaryCacheKey).Result()
	if errGet != nil {
		if errGet != redis.Nil {
			log.WithError(errGet).Debug("report: summary cache read failed")
		}
		return Summary{}, false
	}
	var cached Summary
	if errUnmarshal := json.Unmarshal([]byte(raw), &cached); errUnmarshal != nil {
		return Summary{}, false
	}
	return cached, true
}

// toCache stores a computed summary; cache failures are non-fatal.
func (r *Reporter) toCache(ctx context.Context, summary Summary) {
	if r.cache == nil || r.ttl <= 0 {
		return
	}
	payload, errMarshal := json.Marshal(summary)
	if errMarshal != nil {
		return
	}
	if errSet := r.cache.Set(ctx, summaryCacheKey, payload, r.ttl).Err(); errSet != nil {
		log.WithError(errSet).Debug("report: summary cache write failed")
	}
}
