package cookies

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseFile reads all cookie records from a Netscape-format cookie text
// file. Lines starting with # are skipped, except #HttpOnly_ which sets
// the HttpOnly flag on the record. Malformed lines (wrong field count or
// a non-integer expiry) are skipped and counted in skipped so callers can
// report them instead of dropping them silently.
//
// Unlike an HTTP client, the monitor never filters by domain or drops
// expired entries: expired cookies are exactly what it reports on.
func ParseFile(filePath string) (records []Record, skipped int, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot open cookie store: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		// Skip empty lines
		if line == "" {
			continue
		}

		// Handle #HttpOnly_ prefix
		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			httpOnly = true
			line = line[len("#HttpOnly_"):]
		} else if strings.HasPrefix(line, "#") {
			// Skip comment lines
			continue
		}

		// Split by tab, expect exactly 7 fields
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			skipped++
			continue
		}

		expiry, perr := strconv.ParseInt(fields[4], 10, 64)
		if perr != nil {
			skipped++
			continue
		}

		records = append(records, Record{
			Domain:            fields[0],
			IncludeSubdomains: strings.EqualFold(fields[1], "TRUE"),
			Path:              fields[2],
			Secure:            strings.EqualFold(fields[3], "TRUE"),
			Expiry:            expiry,
			Name:              fields[5],
			Value:             fields[6],
			HttpOnly:          httpOnly,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read cookie store: %w", err)
	}

	return records, skipped, nil
}
