package models

import (
	"fmt"
	"net/url"
	"time"
)

// Proxy protocols accepted by the engine.
const (
	// ProtocolHTTP is a plain HTTP forward proxy.
	ProtocolHTTP = "http"
	// ProtocolHTTPS is an HTTP proxy reached over TLS.
	ProtocolHTTPS = "https"
	// ProtocolSOCKS5 is a SOCKS5 proxy.
	ProtocolSOCKS5 = "socks5"
)

// Proxy health states. Every check re-evaluates from the current state;
// none of these is terminal except by deletion.
const (
	// StatusUnchecked marks a proxy that has never been checked.
	StatusUnchecked = "unchecked"
	// StatusLive marks a proxy that answered the last check.
	StatusLive = "live"
	// StatusDie marks a proxy that was unreachable on the last check.
	StatusDie = "die"
	// StatusTimeout marks a proxy that connected but never answered in time.
	StatusTimeout = "timeout"
	// StatusAuthFailed marks a proxy that rejected the stored credentials.
	StatusAuthFailed = "auth_failed"
)

// ProxyStatuses lists all health states in histogram order.
var ProxyStatuses = []string{StatusUnchecked, StatusLive, StatusDie, StatusTimeout, StatusAuthFailed}

// ProxyProtocols lists the accepted protocols.
var ProxyProtocols = []string{ProtocolHTTP, ProtocolHTTPS, ProtocolSOCKS5}

// ValidProtocol reports whether p is an accepted proxy protocol.
func ValidProtocol(p string) bool {
	for _, known := range ProxyProtocols {
		if p == known {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known health state.
func ValidStatus(s string) bool {
	for _, known := range ProxyStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Proxy represents one managed upstream proxy endpoint.
type Proxy struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Host     string  `gorm:"type:text;not null"`                // Hostname or IP.
	Port     int     `gorm:"not null"`                          // Port, 1-65535.
	Username *string `gorm:"type:text"`                         // Optional auth username.
	Password *string `gorm:"type:text"`                         // Optional auth password.
	Protocol string  `gorm:"type:text;not null;default:'http'"` // http, https or socks5.

	ProviderName *string    `gorm:"type:text;index"` // Free-text billing label, not a foreign key.
	ExpireAt     *time.Time `gorm:"index"`           // Optional expiry timestamp.
	CostMicros   *int64     // Monthly cost in micros of the billing currency.

	Status        string     `gorm:"type:text;not null;default:'unchecked';index"` // Current health state.
	LastCheckedAt *time.Time // Start time of the last health check; nil while unchecked.
	LatencyMs     *int64     // Round-trip of the last successful check; set only when live.

	Note  *string `gorm:"type:text"`          // Optional free text.
	Owner string  `gorm:"type:text;not null"` // Username of the creator.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Authenticated reports whether the proxy carries a credential pair.
func (p *Proxy) Authenticated() bool {
	return p.Username != nil && *p.Username != "" && p.Password != nil
}

// Addr returns the host:port dial address.
func (p *Proxy) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// URL builds the connection URL for the proxy, including credentials when present.
func (p *Proxy) URL() *url.URL {
	u := &url.URL{Scheme: p.Protocol, Host: p.Addr()}
	if p.Authenticated() {
		u.User = url.UserPassword(*p.Username, *p.Password)
	}
	return u
}
