// Package importer converts freeform pasted proxy lists into proxy records.
//
// Three line shapes are recognized, tried in this order:
//
//	user:pass@host:port
//	host:port:user:pass
//	host:port
//
// Blank lines and #-comments are skipped silently; anything else that fails
// all three shapes, or carries an out-of-range port, counts as a failed
// line without aborting the batch.
package importer

import (
	"strconv"
	"strings"

	"github.com/blong711/Proxy-Manager/internal/models"
)

// Defaults carries the batch-level values applied to every parsed line.
type Defaults struct {
	Protocol     string  // Shared protocol; validated by the caller.
	ProviderName *string // Optional billing label.
	CostMicros   *int64  // Optional monthly cost in micros.
	Owner        string  // Username of the importing operator.
}

// Result is the outcome of parsing one batch.
type Result struct {
	Proxies []models.Proxy // Parsed records, in input order, all unchecked.
	Failed  int            // Count of malformed lines.
}

// Parse splits text into lines and parses each against the supported
// shapes. It never returns an error: per-line failures are counted and
// parsing continues.
func Parse(text string, defaults Defaults) Result {
	var out Result
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxy, ok := parseLine(line, defaults)
		if !ok {
			out.Failed++
			continue
		}
		out.Proxies = append(out.Proxies, proxy)
	}
	return out
}

// parseLine matches one trimmed, non-empty line against the three shapes.
func parseLine(line string, defaults Defaults) (models.Proxy, bool) {
	var host, portStr string
	var username, password *string

	if at := strings.LastIndex(line, "@"); at >= 0 {
		// user:pass@host:port
		auth := line[:at]
		addr := line[at+1:]
		user, pass, okAuth := strings.Cut(auth, ":")
		if !okAuth {
			return models.Proxy{}, false
		}
		var okAddr bool
		host, portStr, okAddr = splitHostPort(addr)
		if !okAddr {
			return models.Proxy{}, false
		}
		username, password = trimmedPtr(user), trimmedPtr(pass)
	} else {
		parts := strings.Split(line, ":")
		switch len(parts) {
		case 2:
			// host:port
			host, portStr = parts[0], parts[1]
		case 4:
			// host:port:user:pass
			host, portStr = parts[0], parts[1]
			username, password = trimmedPtr(parts[2]), trimmedPtr(parts[3])
		default:
			return models.Proxy{}, false
		}
	}

	host = strings.TrimSpace(host)
	if host == "" {
		return models.Proxy{}, false
	}
	port, errPort := strconv.Atoi(strings.TrimSpace(portStr))
	if errPort != nil || port < 1 || port > 65535 {
		return models.Proxy{}, false
	}
	if username != nil && *username == "" {
		username = nil
		password = nil
	}

	return models.Proxy{
		Host:         host,
		Port:         port,
		Username:     username,
		Password:     password,
		Protocol:     defaults.Protocol,
		ProviderName: defaults.ProviderName,
		CostMicros:   defaults.CostMicros,
		Status:       models.StatusUnchecked,
		Owner:        defaults.Owner,
	}, true
}

// splitHostPort splits on the last colon so IPv6-ish hosts keep their colons.
func splitHostPort(addr string) (string, string, bool) {
	idx := strings.LastIndex(addr, ":")
	if idx <= 0 || idx == len(addr)-1 {
		return "", "", false
	}
	return addr[:idx], addr[idx+1:], true
}

func trimmedPtr(s string) *string {
	trimmed := strings.TrimSpace(s)
	return &trimmed
}
