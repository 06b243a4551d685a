package scribes

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// normalizeDate parses a loosely formatted date and renders it as RFC 3339
// in loc. Values without a zone are taken to be in loc already.
func normalizeDate(value interface{}, loc *time.Location) (string, error) {
	switch v := value.(type) {
	case time.Time:
		return v.In(loc).Format(time.RFC3339), nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.In(loc).Format(time.RFC3339), nil
			}
		}
		return "", fmt.Errorf("unrecognized date: %q", v)
	default:
		return "", fmt.Errorf("unrecognized date: %v", v)
	}
}
