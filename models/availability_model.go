package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeSlot is one of the fixed start times lessons can be booked into.
type TimeSlot string

// OfferedSlots are bi-hourly starts in the school's local time.
var OfferedSlots = []TimeSlot{
	"08:00 AM",
	"10:00 AM",
	"12:00 PM",
	"02:00 PM",
	"04:00 PM",
	"06:00 PM",
}

const DateLayout = "2006-01-02"

// ParseTimeSlot accepts "10:00 AM", "10:00am" or 24-hour "10:00" and returns
// the canonical offered slot.
func ParseTimeSlot(s string) (TimeSlot, error) {
	raw := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	var t time.Time
	var err error
	if strings.HasSuffix(raw, "AM") || strings.HasSuffix(raw, "PM") {
		t, err = time.Parse("03:04PM", raw)
		if err != nil {
			t, err = time.Parse("3:04PM", raw)
		}
	} else {
		t, err = time.Parse("15:04", raw)
	}
	if err != nil {
		return "", fmt.Errorf("unrecognised time %q", s)
	}
	canonical := TimeSlot(t.Format("03:04 PM"))
	for _, offered := range OfferedSlots {
		if offered == canonical {
			return canonical, nil
		}
	}
	return "", fmt.Errorf("time %q is not an offered slot", s)
}

func (s TimeSlot) clock() (hour, minute int) {
	t, err := time.Parse("03:04 PM", string(s))
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}

// On resolves the slot on date (only its calendar day is used) in loc.
func (s TimeSlot) On(date time.Time, loc *time.Location) time.Time {
	h, m := s.clock()
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, loc)
}

// ParseDate reads a YYYY-MM-DD calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// BlockedSlot marks an instant an instructor is not taking lessons even
// though nobody has booked it.
type BlockedSlot struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	InstructorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blocked_instructor_start" json:"instructor_id"`
	StartsAt     time.Time `gorm:"not null;uniqueIndex:idx_blocked_instructor_start" json:"starts_at"`
	Reason       string    `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
