package cookies

import "time"

// DefaultThresholdDays is the warning window used when no threshold is
// configured: cookies expiring in fewer than 7 days raise a warning.
const DefaultThresholdDays = 7

const secondsPerDay = 86400

// Classification is the derived expiry status of a single record.
// It is computed per run and never persisted.
type Classification struct {
	// Health is the tri-state result.
	Health Health
	// DaysLeft is the truncated whole-day count until expiry. Negative
	// when expired. Meaningless when Session is true.
	DaysLeft int64
	// Session is true for session cookies (expiry 0), which are always
	// Healthy regardless of the clock.
	Session bool
	// ExpiresAt is the human-readable local expiry instant, or "N/A"
	// when the instant is not applicable or cannot be rendered.
	ExpiresAt string
}

// Classify derives the health of one record at the given wall-clock time.
// The day count uses integer (truncating) division, matching the shell
// arithmetic of the original monitor: a cookie that expired less than a
// full day ago still counts as zero days left, i.e. Warning.
// The threshold is exclusive at the top: exactly thresholdDays away is
// Healthy. thresholdDays values below 1 fall back to the default.
func Classify(r Record, now time.Time, thresholdDays int) Classification {
	if thresholdDays < 1 {
		thresholdDays = DefaultThresholdDays
	}

	if r.Session() {
		return Classification{Health: Healthy, Session: true, ExpiresAt: "N/A"}
	}

	daysLeft := (r.Expiry - now.Unix()) / secondsPerDay

	c := Classification{
		DaysLeft:  daysLeft,
		ExpiresAt: formatExpiry(r.Expiry),
	}
	switch {
	case daysLeft < 0:
		c.Health = Expired
	case daysLeft < int64(thresholdDays):
		c.Health = Warning
	default:
		c.Health = Healthy
	}
	return c
}

// formatExpiry renders the expiry instant in local time. Instants the
// platform cannot represent sensibly are substituted with "N/A" rather
// than failing the run.
func formatExpiry(expiry int64) string {
	t := time.Unix(expiry, 0)
	if t.Year() < 1970 || t.Year() > 9999 {
		return "N/A"
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}
