// Package officetime maps wall-clock instants onto recurring weekly slots
// used to key door observations.
package officetime

import (
	"fmt"
	"time"
)

// Bucketer derives hour-of-week buckets in a fixed office time zone.
type Bucketer struct {
	loc *time.Location
}

// NewBucketer loads the named IANA zone ("" means UTC).
func NewBucketer(zone string) (*Bucketer, error) {
	if zone == "" {
		zone = "UTC"
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load office time zone %q: %w", zone, err)
	}
	return &Bucketer{loc: loc}, nil
}

// Bucket returns a key such as "Mon-09" for any instant in that weekday hour.
func (b *Bucketer) Bucket(t time.Time) string {
	local := t.In(b.loc)
	return fmt.Sprintf("%s-%02d", local.Weekday().String()[:3], local.Hour())
}

// Format renders t in office time for logs.
func (b *Bucketer) Format(t time.Time) string {
	return t.In(b.loc).Format("Mon 2006-01-02 15:04:05 MST")
}
