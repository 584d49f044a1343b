package services

import (
	"fmt"
	"time"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
)

// Pickup calendar defaults
const (
	DefaultPickupCutoff       = 14 * 60
	DefaultPickupHorizonDays  = 14
	DefaultPickupSlotCapacity = 20
)

// MinPickupLeadMinutes is how far ahead a same-day slot has to start
const MinPickupLeadMinutes = 120

// MinPickupWindowMinutes is the shortest pickup window a carrier accepts
const MinPickupWindowMinutes = 120

// Slot ids
const (
	SlotMorning   = "morning"
	SlotAfternoon = "afternoon"
	SlotEvening   = "evening"
	SlotAllDay    = "allday"
)

// StandardSlots are the pickup windows offered every business day
var StandardSlots = []entities.TimeSlot{
	{ID: SlotMorning, Start: "08:00", End: "12:00"},
	{ID: SlotAfternoon, Start: "12:00", End: "16:00"},
	{ID: SlotEvening, Start: "16:00", End: "18:00"},
	{ID: SlotAllDay, Start: "08:00", End: "18:00"},
}

// BookedFunc reports how many pickups are already booked into a slot on date
type BookedFunc func(date, slotID string) (int, error)

// PickupCalendar knows business days, the booking window and the slot grid
type PickupCalendar struct {
	Location      *time.Location
	CutoffMinutes int
	HorizonDays   int
	SlotCapacity  int
	Slots         []entities.TimeSlot
}

// NewPickupCalendar creates a calendar in loc with the default cutoff, horizon and slots
func NewPickupCalendar(loc *time.Location) *PickupCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &PickupCalendar{
		Location:      loc,
		CutoffMinutes: DefaultPickupCutoff,
		HorizonDays:   DefaultPickupHorizonDays,
		SlotCapacity:  DefaultPickupSlotCapacity,
		Slots:         StandardSlots,
	}
}

// Holidays returns the observed US federal holidays falling in year, keyed by date
func Holidays(year int) map[string]string {
	holidays := make(map[string]string)
	add := func(t time.Time, name string) {
		if t.Year() == year {
			holidays[t.Format(DateLayout)] = name
		}
	}

	fixed := func(y int, month time.Month, day int) time.Time {
		return observed(time.Date(y, month, day, 0, 0, 0, 0, time.UTC))
	}

	add(fixed(year, time.January, 1), "New Year's Day")
	// A Saturday New Year's Day is observed on the last day of the previous year
	add(fixed(year+1, time.January, 1), "New Year's Day")
	add(nthWeekday(year, time.January, time.Monday, 3), "Martin Luther King Jr. Day")
	add(nthWeekday(year, time.February, time.Monday, 3), "Washington's Birthday")
	add(lastWeekday(year, time.May, time.Monday), "Memorial Day")
	add(fixed(year, time.June, 19), "Juneteenth National Independence Day")
	add(fixed(year, time.July, 4), "Independence Day")
	add(nthWeekday(year, time.September, time.Monday, 1), "Labor Day")
	add(nthWeekday(year, time.October, time.Monday, 2), "Columbus Day")
	add(fixed(year, time.November, 11), "Veterans Day")
	add(nthWeekday(year, time.November, time.Thursday, 4), "Thanksgiving Day")
	add(fixed(year, time.December, 25), "Christmas Day")

	return holidays
}

func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(last.Weekday()) - int(weekday) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// Holiday returns the name of the holiday observed on day
func (c *PickupCalendar) Holiday(day time.Time) (string, bool) {
	name, ok := Holidays(day.Year())[day.Format(DateLayout)]
	return name, ok
}

// IsBusinessDay reports whether day is a weekday that is not a federal holiday
func (c *PickupCalendar) IsBusinessDay(day time.Time) bool {
	if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		return false
	}
	_, holiday := c.Holiday(day)
	return !holiday
}

// NextBusinessDay returns the first business day strictly after day
func (c *PickupCalendar) NextBusinessDay(day time.Time) time.Time {
	next := startOfDay(day).AddDate(0, 0, 1)
	for !c.IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// AddBusinessDays moves n business days forward from day
func (c *PickupCalendar) AddBusinessDays(day time.Time, n int) time.Time {
	result := startOfDay(day)
	for i := 0; i < n; i++ {
		result = c.NextBusinessDay(result)
	}
	return result
}

// Today returns the start of the current day in the calendar's location
func (c *PickupCalendar) Today(now time.Time) time.Time {
	return startOfDay(now.In(c.Location))
}

// Window returns the first and last dates a pickup may be booked for at now
func (c *PickupCalendar) Window(now time.Time) (time.Time, time.Time) {
	local := now.In(c.Location)
	today := startOfDay(local)
	first := today
	if minutesOfDay(local) >= c.CutoffMinutes || !c.IsBusinessDay(today) {
		first = c.NextBusinessDay(today)
	}
	return first, today.AddDate(0, 0, c.HorizonDays)
}

// InWindow reports whether day can be booked at now
func (c *PickupCalendar) InWindow(day, now time.Time) bool {
	first, last := c.Window(now)
	day = startOfDay(day.In(c.Location))
	return !day.Before(first) && !day.After(last)
}

// ParseDay parses a pickup date in the calendar's location
func (c *PickupCalendar) ParseDay(value string) (time.Time, error) {
	return ParseDate(value, c.Location)
}

// Slot looks up a slot by id
func (c *PickupCalendar) Slot(id string) (entities.TimeSlot, bool) {
	for _, slot := range c.Slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return entities.TimeSlot{}, false
}

// SlotsFor returns the slots that can still be booked on day at now
func (c *PickupCalendar) SlotsFor(day, now time.Time, freight bool) []entities.TimeSlot {
	if !c.IsBusinessDay(day) || !c.InWindow(day, now) {
		return nil
	}
	sameDay := c.Today(now).Equal(startOfDay(day.In(c.Location)))
	earliest := minutesOfDay(now.In(c.Location)) + MinPickupLeadMinutes

	var slots []entities.TimeSlot
	for _, slot := range c.Slots {
		if freight && slot.ID == SlotEvening {
			continue
		}
		if sameDay {
			start, err := ParseClock(slot.Start)
			if err != nil || start < earliest {
				continue
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// Availability lists days starting at from with every bookable slot and its
// remaining capacity; days outside the window or closed are returned with no slots
func (c *PickupCalendar) Availability(now, from time.Time, days int, freight bool, booked BookedFunc) ([]entities.PickupDay, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	day := startOfDay(from.In(c.Location))
	result := make([]entities.PickupDay, 0, days)
	for i := 0; i < days; i++ {
		date := day.Format(DateLayout)
		entry := entities.PickupDay{
			Date:        date,
			Weekday:     day.Weekday().String(),
			BusinessDay: c.IsBusinessDay(day),
			Slots:       []entities.SlotAvailability{},
		}
		if name, ok := c.Holiday(day); ok {
			entry.Holiday = name
		}

		for _, slot := range c.SlotsFor(day, now, freight) {
			taken := 0
			if booked != nil {
				n, err := booked(date, slot.ID)
				if err != nil {
					return nil, fmt.Errorf("failed to count pickups for %s %s: %w", date, slot.ID, err)
				}
				taken = n
			}
			remaining := c.SlotCapacity - taken
			if remaining < 0 {
				remaining = 0
			}
			entry.Slots = append(entry.Slots, entities.SlotAvailability{
				Slot:      slot,
				Capacity:  c.SlotCapacity,
				Remaining: remaining,
				Available: remaining > 0,
			})
		}

		result = append(result, entry)
		day = day.AddDate(0, 0, 1)
	}
	return result, nil
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
