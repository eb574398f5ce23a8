// Package calendar provides the Taixu year: 120 days split into four seasons,
// twelve ten-day months and twenty-four five-day solar terms.
// Every derived field is computed from the day counter, never stored.
package calendar

import "fmt"

// Calendar proportions.
const (
	DaysPerYear      = 120
	DaysPerSeason    = 30
	DaysPerMonth     = 10
	DaysPerSolarTerm = 5

	MonthsPerYear     = DaysPerYear / DaysPerMonth     // 12
	SolarTermsPerYear = DaysPerYear / DaysPerSolarTerm // 24
	TermsPerSeason    = DaysPerSeason / DaysPerSolarTerm
)

// Season is one of the four 30-day seasons.
type Season uint8

const (
	Spring Season = iota
	Summer
	Autumn
	Winter
)

var seasonNames = [4]string{"Spring", "Summer", "Autumn", "Winter"}
var seasonNamesZh = [4]string{"春", "夏", "秋", "冬"}

func (s Season) String() string {
	if int(s) < len(seasonNames) {
		return seasonNames[s]
	}
	return fmt.Sprintf("Season(%d)", uint8(s))
}

// Zh returns the single-character Chinese season name.
func (s Season) Zh() string {
	if int(s) < len(seasonNamesZh) {
		return seasonNamesZh[s]
	}
	return "?"
}

// SolarTerm is one of the 24 five-day subdivisions of the year.
type SolarTerm uint8

const (
	LiChun SolarTerm = iota // Start of Spring
	YuShui
	JingZhe
	ChunFen
	QingMing
	GuYu
	LiXia // Start of Summer
	XiaoMan
	MangZhong
	XiaZhi
	XiaoShu
	DaShu
	LiQiu // Start of Autumn
	ChuShu
	BaiLu
	QiuFen
	HanLu
	ShuangJiang
	LiDong // Start of Winter
	XiaoXue
	DaXue
	DongZhi
	XiaoHan
	DaHan
)

var solarTermNames = [SolarTermsPerYear]string{
	"LiChun", "YuShui", "JingZhe", "ChunFen", "QingMing", "GuYu",
	"LiXia", "XiaoMan", "MangZhong", "XiaZhi", "XiaoShu", "DaShu",
	"LiQiu", "ChuShu", "BaiLu", "QiuFen", "HanLu", "ShuangJiang",
	"LiDong", "XiaoXue", "DaXue", "DongZhi", "XiaoHan", "DaHan",
}

var solarTermNamesZh = [SolarTermsPerYear]string{
	"立春", "雨水", "驚蟄", "春分", "清明", "穀雨",
	"立夏", "小滿", "芒種", "夏至", "小暑", "大暑",
	"立秋", "處暑", "白露", "秋分", "寒露", "霜降",
	"立冬", "小雪", "大雪", "冬至", "小寒", "大寒",
}

func (t SolarTerm) String() string {
	if int(t) < len(solarTermNames) {
		return solarTermNames[t]
	}
	return fmt.Sprintf("SolarTerm(%d)", uint8(t))
}

// Zh returns the traditional Chinese name of the term.
func (t SolarTerm) Zh() string {
	if int(t) < len(solarTermNamesZh) {
		return solarTermNamesZh[t]
	}
	return "?"
}

// Season returns the season the term belongs to.
func (t SolarTerm) Season() Season {
	return Season(int(t) / TermsPerSeason)
}

// Next returns the following term, wrapping from DaHan to LiChun.
func (t SolarTerm) Next() SolarTerm {
	return SolarTerm((int(t) + 1) % SolarTermsPerYear)
}

// Time is a point on the game calendar. TotalDays counts from day 0 of year 1.
type Time struct {
	TotalDays int `json:"total_days"`
}

// FromDate builds a Time from a year (1-based), month (1–12) and day of month (1–10).
func FromDate(year, month, day int) Time {
	return Time{TotalDays: (year-1)*DaysPerYear + (month-1)*DaysPerMonth + (day - 1)}
}

// Year is 1-based.
func (t Time) Year() int {
	return t.TotalDays/DaysPerYear + 1
}

// DayOfYear is 1–120.
func (t Time) DayOfYear() int {
	return t.TotalDays%DaysPerYear + 1
}

// Month is 1–12.
func (t Time) Month() int {
	return (t.TotalDays%DaysPerYear)/DaysPerMonth + 1
}

// DayOfMonth is 1–10.
func (t Time) DayOfMonth() int {
	return t.TotalDays%DaysPerMonth + 1
}

// Season returns the current season.
func (t Time) Season() Season {
	return Season((t.TotalDays % DaysPerYear) / DaysPerSeason)
}

// SolarTerm returns the current solar term: (totalDays mod 120) / 5.
func (t Time) SolarTerm() SolarTerm {
	return SolarTerm((t.TotalDays % DaysPerYear) / DaysPerSolarTerm)
}

// SeasonProgress is the fraction of the current season already elapsed, in [0,1).
func (t Time) SeasonProgress() float64 {
	return float64(t.TotalDays%DaysPerSeason) / DaysPerSeason
}

// SolarTermProgress is the fraction of the current solar term already elapsed, in [0,1).
func (t Time) SolarTermProgress() float64 {
	return float64(t.TotalDays%DaysPerSolarTerm) / DaysPerSolarTerm
}

// String returns a compact label such as "Y1 M3 D4 (JingZhe)".
func (t Time) String() string {
	return fmt.Sprintf("Y%d M%d D%d (%s)", t.Year(), t.Month(), t.DayOfMonth(), t.SolarTerm())
}
