package domain

import (
	"encoding/json"
	"regexp"
	"time"
)

type AppointmentMode string

const (
	ModeOnline  AppointmentMode = "online"
	ModeOffline AppointmentMode = "offline"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentAccepted  AppointmentStatus = "accepted"
	AppointmentRejected  AppointmentStatus = "rejected"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentAccepted, AppointmentRejected, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// Blocking reports whether an appointment in this status occupies its slot.
func (s AppointmentStatus) Blocking() bool {
	return s != AppointmentCancelled && s != AppointmentRejected
}

// DateLayout is the wire and storage format of appointment dates.
const DateLayout = "2006-01-02"

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidClock reports whether s is a zero-padded 24h "HH:MM" time. Such
// strings order correctly under plain string comparison.
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

type Appointment struct {
	ID           string            `json:"id"`
	ConsultantID string            `json:"consultant_id"`
	UserID       string            `json:"user_id"`
	Mode         AppointmentMode   `json:"mode"`
	Date         time.Time         `json:"-"`
	StartTime    string            `json:"start_time"`
	EndTime      string            `json:"end_time"`
	Status       AppointmentStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (a Appointment) MarshalJSON() ([]byte, error) {
	type plain Appointment
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain(a), a.Date.Format(DateLayout)})
}

func (a Appointment) Slot() Slot {
	return Slot{StartTime: a.StartTime, EndTime: a.EndTime}
}

// Slot is a booked interval on a consultant's day.
type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Overlaps reports whether the half-open intervals [a.Start, a.End) and
// [b.Start, b.End) intersect.
func (a Slot) Overlaps(b Slot) bool {
	return a.StartTime < b.EndTime && b.StartTime < a.EndTime
}
