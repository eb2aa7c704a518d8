package groups

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"google.golang.org/api/cloudidentity/v1"
)

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// expiryLayouts are tried before the general parser so the documented
// "Nov 30 2019 23:59:59" form never depends on heuristics.
var expiryLayouts = []string{
	"Jan 2 2006 15:04:05",
	"Jan 2 2006 15:04",
	"Jan 2 2006",
}

// ParseExpiry converts an expiry to Unix epoch seconds. An all-digit string is
// returned unchanged; anything else is parsed as a date/time in the local time
// zone. The result is not required to lie in the future.
func ParseExpiry(expiry string) (string, error) {
	if digitsOnly.MatchString(expiry) {
		return expiry, nil
	}
	if expiry == "" {
		return "", fmt.Errorf("expiry is empty")
	}
	for _, layout := range expiryLayouts {
		if t, err := time.ParseInLocation(layout, expiry, time.Local); err == nil {
			return strconv.FormatInt(t.Unix(), 10), nil
		}
	}
	t, err := dateparse.ParseLocal(expiry)
	if err != nil {
		return "", fmt.Errorf("parse expiry %q: %w", expiry, err)
	}
	return strconv.FormatInt(t.Unix(), 10), nil
}

// expiryDetail builds the API expiry block. The API carries timestamps as
// RFC 3339 strings.
func expiryDetail(expiry string) (*cloudidentity.ExpiryDetail, error) {
	secs, err := ParseExpiry(expiry)
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expiry %q out of range: %w", expiry, err)
	}
	return &cloudidentity.ExpiryDetail{
		ExpireTime: time.Unix(n, 0).UTC().Format(time.RFC3339),
	}, nil
}
