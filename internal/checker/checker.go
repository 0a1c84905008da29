// Package checker implements the proxy health-check state machine and the
// bounded-concurrency orchestrator that fans it out over the pool.
package checker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/blong711/Proxy-Manager/internal/config"
	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/settings"
	"golang.org/x/net/proxy"
)

// Result is one health-check outcome. It is a classification, never an
// error: network failures map onto the status machine.
type Result struct {
	Status    string    // live, die, timeout or auth_failed.
	LatencyMs *int64    // Round-trip of the successful attempt; set only when live.
	CheckedAt time.Time // Start time of the check.
}

// Checker tests a single proxy's reachability and authentication by
// fetching a known URL through it. Each check carries its own timeout so a
// hung proxy releases its worker slot at the deadline.
type Checker struct {
	defaults config.CheckerConfig
}

// NewChecker constructs a checker with config defaults; timeout and check
// URL can be overridden at runtime through the settings table.
func NewChecker(defaults config.CheckerConfig) *Checker {
	return &Checker{defaults: defaults}
}

// Timeout resolves the per-check timeout from settings.
func (c *Checker) Timeout() time.Duration {
	seconds := settings.IntValue(settings.CheckTimeoutSecondsKey, c.defaults.TimeoutSeconds)
	if seconds <= 0 {
		seconds = settings.DefaultCheckTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// CheckURL resolves the target URL fetched through each proxy.
func (c *Checker) CheckURL() string {
	return settings.StringValue(settings.CheckURLKey, c.defaults.CheckURL)
}

// Check runs one pass of the state machine for a proxy. It is idempotent:
// with no environmental change, repeated runs classify identically.
func (c *Checker) Check(ctx context.Context, p *models.Proxy) Result {
	start := time.Now().UTC()
	res := Result{CheckedAt: start}

	checkCtx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	transport, errTransport := c.transportFor(p)
	if errTransport != nil {
		res.Status = models.StatusDie
		return res
	}
	client := &http.Client{Transport: transport}
	defer transport.CloseIdleConnections()

	req, errReq := http.NewRequestWithContext(checkCtx, http.MethodGet, c.CheckURL(), nil)
	if errReq != nil {
		res.Status = models.StatusDie
		return res
	}

	resp, errDo := client.Do(req)
	if errDo != nil {
		res.Status = classifyError(errDo)
		return res
	}
	defer func() { _ = resp.Body.Close() }()

	elapsed := time.Since(start)
	switch {
	case resp.StatusCode == http.StatusProxyAuthRequired:
		res.Status = models.StatusAuthFailed
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		latency := elapsed.Milliseconds()
		res.Status = models.StatusLive
		res.LatencyMs = &latency
	default:
		res.Status = models.StatusDie
	}
	return res
}

// transportFor builds a one-shot transport routing through the proxy.
func (c *Checker) transportFor(p *models.Proxy) (*http.Transport, error) {
	switch p.Protocol {
	case models.ProtocolHTTP, models.ProtocolHTTPS:
		return &http.Transport{
			Proxy:             http.ProxyURL(p.URL()),
			DisableKeepAlives: true,
		}, nil
	case models.ProtocolSOCKS5:
		var auth *proxy.Auth
		if p.Authenticated() {
			auth = &proxy.Auth{User: *p.Username, Password: *p.Password}
		}
		dialer, errDialer := proxy.SOCKS5("tcp", p.Addr(), auth, &net.Dialer{})
		if errDialer != nil {
			return nil, errDialer
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("checker: socks5 dialer lacks context support")
		}
		return &http.Transport{
			DialContext:       contextDialer.DialContext,
			DisableKeepAlives: true,
		}, nil
	default:
		return nil, errors.New("checker: unsupported protocol " + p.Protocol)
	}
}

// classifyError maps a transport error onto the status machine: deadline
// and timeout errors become timeout, SOCKS5 authentication rejections
// become auth_failed, everything else (refused, DNS, reset) is die.
func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.StatusTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.StatusTimeout
	}
	msg := err.Error()
	// CONNECT tunnels surface a proxy 407 as a transport error rather
	// than a response.
	if strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "username/password") ||
		strings.Contains(msg, "Proxy Authentication Required") {
		return models.StatusAuthFailed
	}
	if strings.Contains(msg, "context deadline exceeded") {
		return models.StatusTimeout
	}
	return models.StatusDie
}
