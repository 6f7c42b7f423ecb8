package cookies

// Health classifies a cookie record by the time remaining until expiry.
type Health int

const (
	// Healthy means the cookie is a session cookie or expires at least
	// the alert threshold away.
	Healthy Health = iota
	// Warning means the cookie expires within the alert threshold.
	Warning
	// Expired means the cookie's expiry instant is in the past.
	Expired
)

// String returns the lowercase name of the health state.
func (h Health) String() string {
	switch h {
	case Warning:
		return "warning"
	case Expired:
		return "expired"
	default:
		return "healthy"
	}
}

// Record is one entry of a Netscape-format cookie store.
// IMPORTANT: Value is SENSITIVE, it must never be logged at any level
// or formatted into error messages. Only Name and Domain may appear in
// report output.
type Record struct {
	// Domain is the cookie domain (may have a leading dot for
	// subdomain-inclusive cookies).
	Domain string
	// IncludeSubdomains mirrors the second column of the store.
	IncludeSubdomains bool
	// Path is the cookie path scope.
	Path string
	// Secure indicates the cookie should only be sent over HTTPS.
	Secure bool
	// Expiry is the expiration instant in Unix seconds. 0 means the
	// cookie is session-scoped and never expires on its own.
	Expiry int64
	// Name is the cookie name.
	Name string
	// Value is the cookie value. SENSITIVE, never log.
	Value string
	// HttpOnly indicates the record carried the #HttpOnly_ prefix.
	HttpOnly bool
}

// Session reports whether the record is a session cookie (no expiry).
func (r Record) Session() bool {
	return r.Expiry == 0
}
