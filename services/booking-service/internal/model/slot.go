package model

import (
	"fmt"
	"time"
)

// TimeSlot is a bookable appointment time. Date holds a calendar date; only
// its year, month and day are meaningful. Time is the offset from midnight.
type TimeSlot struct {
	ID      int64
	Date    time.Time
	Time    time.Duration
	IsTaken bool
}

// CalendarDate returns the date at UTC midnight.
func CalendarDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ClockTime returns the offset from midnight for hh:mm:ss.
func ClockTime(hour, min, sec int) time.Duration {
	return time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second
}

// DisplayDate renders DD/MM/YYYY from the stored calendar fields. The value
// is never converted to another zone.
func (s TimeSlot) DisplayDate() string {
	y, m, d := s.Date.Date()
	return fmt.Sprintf("%02d/%02d/%04d", d, int(m), y)
}

// DisplayTime renders HH:MM, dropping seconds.
func (s TimeSlot) DisplayTime() string {
	h, m, _ := clock(s.Time)
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ISODate renders YYYY-MM-DD.
func (s TimeSlot) ISODate() string {
	y, m, d := s.Date.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// ISOTime renders HH:MM:SS.
func (s TimeSlot) ISOTime() string {
	h, m, sec := clock(s.Time)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

func clock(d time.Duration) (int, int, int) {
	d = d.Truncate(time.Second)
	return int(d / time.Hour), int(d % time.Hour / time.Minute), int(d % time.Minute / time.Second)
}
