package model

import "time"

// timeLayouts are the accepted input forms for event dates and range bounds,
// tried in order. Outputs are always RFC 3339 UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a timestamp string in any accepted layout and normalizes
// it to UTC.
func ParseTime(s string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
