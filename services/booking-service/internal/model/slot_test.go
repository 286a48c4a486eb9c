package model

import (
	"testing"
	"time"
)

func TestDisplayIgnoresLocalZone(t *testing.T) {
	orig := time.Local
	t.Cleanup(func() { time.Local = orig })

	for _, zone := range []*time.Location{
		time.FixedZone("UTC-10", -10*3600),
		time.FixedZone("UTC+14", 14*3600),
		time.UTC,
	} {
		time.Local = zone
		s := TimeSlot{Date: CalendarDate(2025, time.March, 10), Time: ClockTime(9, 0, 0)}
		if got := s.DisplayDate(); got != "10/03/2025" {
			t.Fatalf("zone %s: date = %q", zone, got)
		}
		if got := s.DisplayTime(); got != "09:00" {
			t.Fatalf("zone %s: time = %q", zone, got)
		}
	}
}

func TestDisplayUsesCalendarFieldsAsStored(t *testing.T) {
	// a date carrying a non-UTC location still renders its own calendar day
	s := TimeSlot{Date: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.FixedZone("CET", 3600))}
	if got := s.DisplayDate(); got != "10/03/2025" {
		t.Fatalf("date = %q", got)
	}
	if got := s.ISODate(); got != "2025-03-10" {
		t.Fatalf("iso date = %q", got)
	}
}

func TestTimeTruncatesToMinute(t *testing.T) {
	s := TimeSlot{Time: ClockTime(14, 5, 59) + 999*time.Millisecond}
	if got := s.DisplayTime(); got != "14:05" {
		t.Fatalf("time = %q", got)
	}
	if got := s.ISOTime(); got != "14:05:59" {
		t.Fatalf("iso time = %q", got)
	}
}
