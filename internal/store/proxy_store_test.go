package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/blong711/Proxy-Manager/internal/config"
	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/security"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:proxystore_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.Proxy{}, &models.Account{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func testActor() security.Actor {
	return security.Actor{UserID: 1, Username: "admin", Role: models.RoleAdmin}
}

func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }

func mustCreateProxy(t *testing.T, s *ProxyStore, cmd CreateProxyCommand) *models.Proxy {
	t.Helper()
	if cmd.Protocol == "" {
		cmd.Protocol = models.ProtocolHTTP
	}
	row, errCreate := s.Create(context.Background(), testActor(), cmd)
	if errCreate != nil {
		t.Fatalf("create proxy: %v", errCreate)
	}
	return row
}

func TestProxyStoreCreateStartsUnchecked(t *testing.T) {
	s := NewProxyStore(setupStoreDB(t), config.DeleteBoundReject)

	row := mustCreateProxy(t, s, CreateProxyCommand{Host: "10.0.0.1", Port: 8080})

	if row.Status != models.StatusUnchecked {
		t.Fatalf("expected unchecked status, got %s", row.Status)
	}
	if row.LastCheckedAt != nil || row.LatencyMs != nil {
		t.Fatalf("expected no check fields before first check")
	}
	if row.Owner != "admin" {
		t.Fatalf("expected owner recorded, got %s", row.Owner)
	}
}

func TestProxyStoreCreateValidation(t *testing.T) {
	s := NewProxyStore(setupStoreDB(t), config.DeleteBoundReject)
	ctx := context.Background()

	cases := []CreateProxyCommand{
		{Host: "", Port: 8080, Protocol: models.ProtocolHTTP},
		{Host: "10.0.0.1", Port: 0, Protocol: models.ProtocolHTTP},
		{Host: "10.0.0.1", Port: 70000, Protocol: models.ProtocolHTTP},
		{Host: "10.0.0.1", Port: 8080, Protocol: "ftp"},
		{Host: "10.0.0.1", Port: 8080, Protocol: models.ProtocolHTTP, CostMicros: int64Ptr(-1)},
	}
	for i, cmd := range cases {
		if _, errCreate := s.Create(ctx, testActor(), cmd); !errors.Is(errCreate, ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, errCreate)
		}
	}
}

func TestProxyStoreApplyCheckResultLive(t *testing.T) {
	s := NewProxyStore(setupStoreDB(t), config.DeleteBoundReject)
	ctx := context.Background()
	row := mustCreateProxy(t, s, CreateProxyCommand{Host: "10.0.0.1", Port: 8080})

	checkedAt := time.Now().UTC().Truncate(time.Second)
	if errApply := s.ApplyCheckResult(ctx, row.ID, models.StatusLive, int64Ptr(123), checkedAt); errApply != nil {
		t.Fatalf("apply check result: %v", errApply)
	}

	got, errGet := s.Get(ctx, row.ID)
	if errGet != nil {
		t.Fatalf("get proxy: %v", errGet)
	}
	if got.Status != models.StatusLive {
		t.Fatalf("expected live status, got %s", got.Status)
	}
	if got.LatencyMs == nil || *got.LatencyMs != 123 {
		t.Fatalf("expected latency 123, got %v", got.LatencyMs)
	}
	if got.LastCheckedAt == nil || !got.LastCheckedAt.Equal(checkedAt) {
		t.Fatalf("expected last_checked_at %v, got %v", checkedAt, got.LastCheckedAt)
	}
}

func TestProxyStoreApplyCheckResultClearsLatencyWhenNotLive(t *testing.T) {
	s := NewProxyStore(setupStoreDB(t), config.DeleteBoundReject)
	ctx := context.Background()
	row := mustCreateProxy(t, s, CreateProxyCommand{Host: "10.0.0.1", Port: 8080})

	if errApply := s.ApplyCheckResult(ctx, row.ID, models.StatusLive, int64Ptr(50), time.Now().UTC()); errApply != nil {
		t.Fatalf("apply live result: %v", errApply)
	}
	// Stale latency from the live check must not survive a die transition.
	if errApply := s.ApplyCheckResult(ctx, row.ID, models.StatusDie, int64Ptr(999), time.Now().UTC()); errApply != nil {
		t.Fatalf("apply die result: %v", errApply)
	}

	got, errGet := s.Get(ctx, row.ID)
	if errGet != nil {
		t.Fatalf("get proxy: %v", errGet)
	}
	if got.Status != models.StatusDie {
		t.Fatalf("expected die status, got %s", got.Status)
	}
	if got.LatencyMs != nil {
		t.Fatalf("expected latency cleared, got %v", *got.LatencyMs)
	}
	if got.LastCheckedAt == nil {
		t.Fatalf("expected last_checked_at kept")
	}
}

func TestProxyStoreApplyCheckResultRejectsInvalidTransitions(t *testing.T) {
	s := NewProxyStore(setupStoreDB(t), config.DeleteBoundReject)
	ctx := context.Background()
	row := mustCreateProxy(t, s, CreateProxyCommand{Host: "10.0.0.1", Port: 8080})

	if errApply := s.ApplyCheckResult(ctx, row.ID, models.StatusUnchecked, nil, time.Now().UTC()); !errors.Is(errApply, ErrValidation) {
		t.Fatalf("expected unchecked writeback rejected, got %v", errApply)
	}
	if errApply := s.ApplyCheckResult(ctx, row.ID, models.StatusLive, nil, time.Now().UTC()); !errors.Is(errApply, ErrValidation) {
		t.Fatalf("expected live without latency rejected, got %v", errApply)
	}
	if errApply := s.ApplyCheckResult(ctx, 9999, models.StatusDie, nil, time.Now().UTC()); !errors.Is(errApply, ErrNotFound) {
		t.Fatalf("expected not found for missing proxy, got %v", errApply)
	}
}

func TestProxyStoreUpdateCannotTouchCheckFields(t *testing.T) {
	s := NewProxyStore(setupStoreDB(t), config.DeleteBoundReject)
	ctx := context.Background()
	row := mustCreateProxy(t, s, CreateProxyCommand{Host: "10.0.0.1", Port: 8080})

	if errApply := s.ApplyCheckResult(ctx, row.ID, models.StatusLive, int64Ptr(42), time.Now().UTC()); errApply != nil {
		t.Fatalf("apply check result: %v", errApply)
	}

	updated, errUpdate := s.Update(ctx, row.ID, UpdateProxyCommand{
		Host: strPtr("10.0.0.9"),
		Note: strPtr("rotated"),
	})
	if errUpdate != nil {
		t.Fatalf("update proxy: %v", errUpdate)
	}
	if updated.Host != "10.0.0.9" {
		t.Fatalf("expected host updated, got %s", updated.Host)
	}
	if updated.Status != models.StatusLive || updated.LatencyMs == nil || *updated.LatencyMs != 42 {
		t.Fatalf("expected check fields untouched by edit")
	}
}

func TestProxyStoreListFilters(t *testing.T) {
	s := NewProxyStore(setupStoreDB(t), config.DeleteBoundReject)
	ctx := context.Background()

	first := mustCreateProxy(t, s, CreateProxyCommand{Host: "alpha.example.com", Port: 8080, ProviderName: strPtr("acme")})
	mustCreateProxy(t, s, CreateProxyCommand{Host: "beta.example.com", Port: 8081, ProviderName: strPtr("other")})
	if errApply := s.ApplyCheckResult(ctx, first.ID, models.StatusLive, int64Ptr(10), time.Now().UTC()); errApply != nil {
		t.Fatalf("apply check result: %v", errApply)
	}

	rows, total, errList := s.List(ctx, ListProxiesQuery{Status: models.StatusLive})
	if errList != nil {
		t.Fatalf("list by status: %v", errList)
	}
	if total != 1 || len(rows) != 1 || rows[0].ID != first.ID {
		t.Fatalf("expected only the live proxy, got total=%d", total)
	}

	rows, total, errList = s.List(ctx, ListProxiesQuery{ProviderName: "acme"})
	if errList != nil {
		t.Fatalf("list by provider: %v", errList)
	}
	if total != 1 || len(rows) != 1 || rows[0].Host != "alpha.example.com" {
		t.Fatalf("expected only the acme proxy, got total=%d", total)
	}

	rows, total, errList = s.List(ctx, ListProxiesQuery{Keyword: "ALPHA"})
	if errList != nil {
		t.Fatalf("list by keyword: %v", errList)
	}
	if total != 1 || len(rows) != 1 || rows[0].Host != "alpha.example.com" {
		t.Fatalf("expected case-insensitive keyword match, got total=%d", total)
	}

	if _, _, errList = s.List(ctx, ListProxiesQuery{Status: "bogus"}); !errors.Is(errList, ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", errList)
	}
}

func TestProxyStoreExpiringSoonWindow(t *testing.T) {
	s := NewProxyStore(setupStoreDB(t), config.DeleteBoundReject)
	ctx := context.Background()
	now := time.Now().UTC()

	soonAt := now.Add(24 * time.Hour)
	laterAt := now.Add(48 * time.Hour)
	farAt := now.Add(10 * 24 * time.Hour)
	pastAt := now.Add(-24 * time.Hour)

	later := mustCreateProxy(t, s, CreateProxyCommand{Host: "later.example.com", Port: 8080, ExpireAt: &laterAt})
	soon := mustCreateProxy(t, s, CreateProxyCommand{Host: "soon.example.com", Port: 8080, ExpireAt: &soonAt})
	mustCreateProxy(t, s, CreateProxyCommand{Host: "far.example.com", Port: 8080, ExpireAt: &farAt})
	mustCreateProxy(t, s, CreateProxyCommand{Host: "past.example.com", Port: 8080, ExpireAt: &pastAt})
	mustCreateProxy(t, s, CreateProxyCommand{Host: "never.example.com", Port: 8080})

	rows, errExpiring := s.ExpiringSoon(ctx, 3*24*time.Hour)
	if errExpiring != nil {
		t.Fatalf("expiring soon: %v", errExpiring)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 proxies in window, got %d", len(rows))
	}
	if rows[0].ID != soon.ID || rows[1].ID != later.ID {
		t.Fatalf("expected ascending expiry order")
	}
}

func TestProxyStoreDeleteRejectsWhenBound(t *testing.T) {
	conn := setupStoreDB(t)
	s := NewProxyStore(conn, config.DeleteBoundReject)
	ctx := context.Background()
	row := mustCreateProxy(t, s, CreateProxyCommand{Host: "10.0.0.1", Port: 8080})

	account := models.Account{Username: "acc", Password: "pw", Platform: "site", Status: models.AccountActive, ProxyID: &row.ID}
	if errSeed := conn.Create(&account).Error; errSeed != nil {
		t.Fatalf("seed account: %v", errSeed)
	}

	if errDelete := s.Delete(ctx, row.ID); !errors.Is(errDelete, ErrBoundAccounts) {
		t.Fatalf("expected bound accounts error, got %v", errDelete)
	}
	if _, errGet := s.Get(ctx, row.ID); errGet != nil {
		t.Fatalf("expected proxy kept after rejected delete: %v", errGet)
	}
}

func TestProxyStoreDeleteUnbindsWhenConfigured(t *testing.T) {
	conn := setupStoreDB(t)
	s := NewProxyStore(conn, config.DeleteBoundUnbind)
	ctx := context.Background()
	row := mustCreateProxy(t, s, CreateProxyCommand{Host: "10.0.0.1", Port: 8080})

	account := models.Account{Username: "acc", Password: "pw", Platform: "site", Status: models.AccountActive, ProxyID: &row.ID}
	if errSeed := conn.Create(&account).Error; errSeed != nil {
		t.Fatalf("seed account: %v", errSeed)
	}

	if errDelete := s.Delete(ctx, row.ID); errDelete != nil {
		t.Fatalf("delete with unbind policy: %v", errDelete)
	}
	if _, errGet := s.Get(ctx, row.ID); !errors.Is(errGet, ErrNotFound) {
		t.Fatalf("expected proxy deleted, got %v", errGet)
	}

	var got models.Account
	if errFind := conn.First(&got, "id = ?", account.ID).Error; errFind != nil {
		t.Fatalf("load account: %v", errFind)
	}
	if got.ProxyID != nil {
		t.Fatalf("expected account unbound, got proxy_id %v", *got.ProxyID)
	}
}

func TestProxyStoreDeleteMissing(t *testing.T) {
	s := NewProxyStore(setupStoreDB(t), config.DeleteBoundReject)

	if errDelete := s.Delete(context.Background(), 12345); !errors.Is(errDelete, ErrNotFound) {
		t.Fatalf("expected not found, got %v", errDelete)
	}
}

func TestProxyStoreInsertBatchKeepsDuplicates(t *testing.T) {
	conn := setupStoreDB(t)
	s := NewProxyStore(conn, config.DeleteBoundReject)
	ctx := context.Background()

	batch := []models.Proxy{
		{Host: "10.0.0.1", Port: 8080, Protocol: models.ProtocolHTTP, Status: models.StatusUnchecked, Owner: "admin"},
		{Host: "10.0.0.1", Port: 8080, Protocol: models.ProtocolHTTP, Status: models.StatusUnchecked, Owner: "admin"},
	}
	if errInsert := s.InsertBatch(ctx, batch); errInsert != nil {
		t.Fatalf("insert batch: %v", errInsert)
	}

	var total int64
	if errCount := conn.Model(&models.Proxy{}).Count(&total).Error; errCount != nil {
		t.Fatalf("count proxies: %v", errCount)
	}
	if total != 2 {
		t.Fatalf("expected duplicate host:port kept, got %d rows", total)
	}
}
