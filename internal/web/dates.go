package web

import (
	"fmt"
	"strings"
	"time"
)

// parseDate reads a date parameter: empty means now; otherwise RFC3339,
// 2006-01-02, or a natural phrase such as "next friday", resolved
// relative to now.
func (s *Server) parseDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(s.loc), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, s.loc); err == nil {
		return t, nil
	}

	res, err := s.dates.Parse(raw, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", raw, err)
	}
	if res == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
	}
	return res.Time.In(s.loc), nil
}
