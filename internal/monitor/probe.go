package monitor

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ValidMarker is the substring the worker's status endpoint includes when
// the cookie store passed its last scheduled check.
const ValidMarker = `"cookies_valid":true`

// probeBodyLimit caps how much of the status response is read.
const probeBodyLimit = 1 << 20

// ProbeResult reports the outcome of one liveness probe against the
// worker's /cookies/status endpoint. It distinguishes "process is up"
// from "the session cookies are usable".
type ProbeResult struct {
	Reachable bool
	Valid     bool
	Detail    string
}

// Probe issues a single GET against url and inspects the body for
// ValidMarker. No retries and no timeout beyond the client's own; a
// failed probe is reported, never escalated to a different exit path.
func Probe(client *http.Client, url string) ProbeResult {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(url)
	if err != nil {
		return ProbeResult{Detail: fmt.Sprintf("worker unreachable: %s", err.Error())}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, probeBodyLimit))
	if err != nil {
		return ProbeResult{Reachable: true, Detail: fmt.Sprintf("reading status body: %s", err.Error())}
	}
	if !strings.Contains(string(body), ValidMarker) {
		return ProbeResult{Reachable: true, Detail: "worker reachable but cookies reported invalid"}
	}
	return ProbeResult{Reachable: true, Valid: true, Detail: "worker reachable, cookies valid"}
}
