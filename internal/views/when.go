package views

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	reDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}(:\d{2})?$`)
)

// ParseWhen parses a deadline or reminder:
// - none / clear (returns nil, true)
// - YYYY-MM-DD (end of that local day)
// - YYYY-MM-DD HH:MM[:SS] (local)
// - RFC3339
func ParseWhen(s string, loc *time.Location) (*time.Time, bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return nil, false, fmt.Errorf("empty datetime")
	case "none", "clear":
		return nil, true, nil
	}
	if reDateOnly.MatchString(s) {
		d, err := time.ParseInLocation(time.DateOnly, s, loc)
		if err != nil {
			return nil, false, err
		}
		t := d.Add(24*time.Hour - time.Minute)
		return &t, false, nil
	}
	if reDateTime.MatchString(s) {
		s = strings.Replace(s, "T", " ", 1)
		layout := "2006-01-02 15:04"
		if len(s) == len(time.DateTime) {
			layout = time.DateTime
		}
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return nil, false, err
		}
		return &t, false, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, false, nil
	}
	return nil, false, fmt.Errorf("invalid datetime %q (expected YYYY-MM-DD, YYYY-MM-DD HH:MM, RFC3339 or none)", s)
}

// ParseMonth accepts YYYY-MM; empty means the month of now.
func ParseMonth(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	t, err := time.ParseInLocation("2006-01", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (expected YYYY-MM)", s)
	}
	return t, nil
}
