package calendar

// TermObserver is notified when the calendar enters a new solar term.
type TermObserver func(term SolarTerm, now Time)

// SeasonObserver is notified when the calendar enters a new season.
type SeasonObserver func(season Season, now Time)

// YearObserver is notified when the calendar enters a new year.
type YearObserver func(year int, now Time)

// System owns the game calendar. It is the single source of temporal truth;
// other systems read it and subscribe to boundary notifications.
type System struct {
	now Time

	termObservers   []TermObserver
	seasonObservers []SeasonObserver
	yearObservers   []YearObserver
}

// NewSystem creates a calendar starting at the given total day count.
func NewSystem(totalDays int) *System {
	if totalDays < 0 {
		totalDays = 0
	}
	return &System{now: Time{TotalDays: totalDays}}
}

// Now returns the current calendar time.
func (s *System) Now() Time {
	return s.now
}

// TotalDays returns the monotonically increasing day counter.
func (s *System) TotalDays() int {
	return s.now.TotalDays
}

// CurrentSeason returns the season derived from the day counter.
func (s *System) CurrentSeason() Season {
	return s.now.Season()
}

// CurrentSolarTerm returns the solar term derived from the day counter.
func (s *System) CurrentSolarTerm() SolarTerm {
	return s.now.SolarTerm()
}

// OnSolarTermChanged registers an observer for solar term boundaries.
func (s *System) OnSolarTermChanged(fn TermObserver) {
	s.termObservers = append(s.termObservers, fn)
}

// OnSeasonChanged registers an observer for season boundaries.
func (s *System) OnSeasonChanged(fn SeasonObserver) {
	s.seasonObservers = append(s.seasonObservers, fn)
}

// OnNewYear registers an observer for year boundaries.
func (s *System) OnNewYear(fn YearObserver) {
	s.yearObservers = append(s.yearObservers, fn)
}

// Advance moves the calendar forward by days. Non-positive values are ignored.
// Observers fire once per boundary crossed, in calendar order, with the time
// at which that boundary was reached.
func (s *System) Advance(days int) {
	for i := 0; i < days; i++ {
		s.now.TotalDays++
		if s.now.TotalDays%DaysPerSolarTerm != 0 {
			continue
		}

		// A term boundary; season and year boundaries are always term boundaries too.
		at := s.now
		if at.TotalDays%DaysPerYear == 0 {
			for _, fn := range s.yearObservers {
				fn(at.Year(), at)
			}
		}
		if at.TotalDays%DaysPerSeason == 0 {
			for _, fn := range s.seasonObservers {
				fn(at.Season(), at)
			}
		}
		for _, fn := range s.termObservers {
			fn(at.SolarTerm(), at)
		}
	}
}
