package calendar

import "fmt"

var monthNamesZh = [MonthsPerYear]string{
	"正月", "二月", "三月",
	"四月", "五月", "六月",
	"七月", "八月", "九月",
	"十月", "冬月", "臘月",
}

// Display is the calendar as shown to the player.
type Display struct {
	Year              string  `json:"year"`
	Month             string  `json:"month"`
	Day               int     `json:"day"`
	Season            string  `json:"season"`
	SolarTerm         string  `json:"solar_term"`
	SeasonIndex       int     `json:"season_index"`
	MonthIndex        int     `json:"month_index"`
	SolarTermIndex    int     `json:"solar_term_index"`
	SeasonProgress    float64 `json:"season_progress"`
	SolarTermProgress float64 `json:"solar_term_progress"`
	TotalDays         int     `json:"total_days"`
}

// YearLabel renders the year in the Taixu era, e.g. 太虛元年, 太虛2年.
func YearLabel(year int) string {
	if year == 1 {
		return "太虛元年"
	}
	return fmt.Sprintf("太虛%d年", year)
}

// MonthName returns the traditional month name for a 1-based month.
func MonthName(month int) string {
	if month < 1 || month > MonthsPerYear {
		return ""
	}
	return monthNamesZh[month-1]
}

// DisplayOf builds the player-facing calendar view.
func DisplayOf(t Time) Display {
	return Display{
		Year:              YearLabel(t.Year()),
		Month:             MonthName(t.Month()),
		Day:               t.DayOfMonth(),
		Season:            t.Season().Zh(),
		SolarTerm:         t.SolarTerm().Zh(),
		SeasonIndex:       int(t.Season()),
		MonthIndex:        t.Month() - 1,
		SolarTermIndex:    int(t.SolarTerm()),
		SeasonProgress:    t.SeasonProgress(),
		SolarTermProgress: t.SolarTermProgress(),
		TotalDays:         t.TotalDays,
	}
}
