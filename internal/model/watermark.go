package model

import (
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// DefaultWatermarkEvents bounds the number of events with a tracked date.
const DefaultWatermarkEvents = 1024

var ticketDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2.01.2006, 15:04:05",
	"02.01.2006 15:04:05",
	"2006-01-02",
}

// DateWatermark tracks the latest ticket date observed, overall and per event.
// It only moves forward.
type DateWatermark struct {
	mu       sync.Mutex
	latest   time.Time
	perEvent *lru.Cache
}

// NewDateWatermark creates a watermark remembering up to `size` events.
func NewDateWatermark(size int) (*DateWatermark, error) {
	if size <= 0 {
		size = DefaultWatermarkEvents
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create lru cache")
	}
	return &DateWatermark{perEvent: cache}, nil
}

// Observe records `t` for `eventID` and reports whether the overall watermark advanced.
func (w *DateWatermark) Observe(eventID string, t time.Time) bool {
	if t.IsZero() {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.perEvent.Get(eventID); !ok || t.After(prev.(time.Time)) {
		w.perEvent.Add(eventID, t)
	}
	if t.After(w.latest) {
		w.latest = t
		return true
	}
	return false
}

// Latest returns the latest date observed, zero when none was.
func (w *DateWatermark) Latest() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest
}

// LatestFor returns the latest date observed for an event.
func (w *DateWatermark) LatestFor(eventID string) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.perEvent.Get(eventID)
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// ParseTicketDate parses the date formats used by the remote service, including
// unix timestamps. Dates without a zone are read in local time.
func ParseTicketDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0), true
	}
	for _, layout := range ticketDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
