package services

import "time"

type settings struct {
	now func() time.Time
	loc *time.Location
}

func defaultSettings() settings {
	return settings{now: time.Now, loc: time.Local}
}

// current returns the clock reading in the tracker's location.
func (s settings) current() time.Time {
	return s.now().In(s.loc)
}

// Option customises a service.
type Option func(*settings)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the location calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, o := range opts {
		o(&s)
	}
	return s
}
