// Package festival turns solar term boundaries into seasonal observances.
// The calendar knows nothing about festivals; they hook in as observers.
package festival

import (
	"fmt"
	"log/slog"

	"github.com/talgya/taixu/internal/calendar"
)

// Category is the event category festivals are emitted under.
const Category = "festival"

// Observance is a custom kept when a solar term begins.
type Observance struct {
	Term   calendar.SolarTerm
	Name   string
	Custom string
}

var observances = map[calendar.SolarTerm]Observance{
	calendar.LiChun:   {Term: calendar.LiChun, Name: "立春", Custom: "鞭春牛，迎新歲"},
	calendar.QingMing: {Term: calendar.QingMing, Name: "清明", Custom: "掃墓踏青"},
	calendar.XiaZhi:   {Term: calendar.XiaZhi, Name: "夏至", Custom: "祭地消夏"},
	calendar.QiuFen:   {Term: calendar.QiuFen, Name: "秋分", Custom: "祭月"},
	calendar.DongZhi:  {Term: calendar.DongZhi, Name: "冬至", Custom: "冬至大如年，闔家團圓"},
	calendar.DaHan:    {Term: calendar.DaHan, Name: "大寒", Custom: "除塵備年"},
}

// For returns the observance kept at term, if any.
func For(term calendar.SolarTerm) (Observance, bool) {
	o, ok := observances[term]
	return o, ok
}

// Sink receives festival events.
type Sink interface {
	Emit(category, description string, meta map[string]any)
}

// Register hooks the observance table into ts.
func Register(ts *calendar.System, sink Sink) {
	ts.OnSolarTermChanged(func(term calendar.SolarTerm, now calendar.Time) {
		o, ok := For(term)
		if !ok {
			return
		}
		slog.Info("festival", "term", term, "name", o.Name, "year", now.Year())
		sink.Emit(Category, fmt.Sprintf("%s：%s", o.Name, o.Custom), map[string]any{
			"term": term.String(),
			"year": now.Year(),
		})
	})
}
