package settings

// DB config keys and defaults for runtime-tunable engine knobs. The YAML
// config seeds these; values written through the settings API take effect
// on the next snapshot refresh without a restart.
const (
	// CheckTimeoutSecondsKey controls the per-proxy health-check timeout.
	CheckTimeoutSecondsKey = "CHECK_TIMEOUT_SECONDS"
	// CheckMaxConcurrencyKey controls the check-all worker pool size.
	CheckMaxConcurrencyKey = "CHECK_MAX_CONCURRENCY"
	// CheckURLKey controls the URL fetched through each proxy.
	CheckURLKey = "CHECK_URL"
	// ExpiringSoonDaysKey controls the expiry alert horizon in days.
	ExpiringSoonDaysKey = "EXPIRING_SOON_DAYS"

	// DefaultCheckTimeoutSeconds is the fallback per-check timeout.
	DefaultCheckTimeoutSeconds = 5
	// DefaultCheckMaxConcurrency is the fallback worker pool size.
	DefaultCheckMaxConcurrency = 20
	// DefaultExpiringSoonDays is the fallback expiry alert horizon.
	DefaultExpiringSoonDays = 3

	// MaxCheckConcurrency caps the worker pool regardless of settings, so a
	// typo cannot open hundreds of outbound connections at once.
	MaxCheckConcurrency = 100
)
