package models

import "time"

// DayLayout is the on-disk format of a calendar day.
const DayLayout = "2006-01-02"

// Window is an inclusive range of calendar days. Empty bounds are open,
// so the zero Window covers all time.
type Window struct {
	From string
	To   string
}

// AllTime matches every day.
var AllTime = Window{}

// DayWindow is the calendar day of t in t's own location.
func DayWindow(t time.Time) Window {
	d := Day(t)
	return Window{From: d, To: d}
}

// WeekWindow is the ISO week (Monday to Sunday) containing t.
func WeekWindow(t time.Time) Window {
	offset := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -offset)
	return Window{From: Day(monday), To: Day(monday.AddDate(0, 0, 6))}
}

// Day formats t as YYYY-MM-DD in t's location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// IsDay reports whether the window spans exactly one calendar day.
func (w Window) IsDay() bool {
	return w.From != "" && w.From == w.To
}

// Contains reports whether day (YYYY-MM-DD) falls inside the window.
// The fixed-width layout makes string comparison chronological.
func (w Window) Contains(day string) bool {
	if w.From != "" && day < w.From {
		return false
	}
	if w.To != "" && day > w.To {
		return false
	}
	return true
}

func (w Window) String() string {
	switch {
	case w.From == "" && w.To == "":
		return "all time"
	case w.IsDay():
		return w.From
	}
	from, to := w.From, w.To
	if from == "" {
		from = "…"
	}
	if to == "" {
		to = "…"
	}
	return from + ".." + to
}
