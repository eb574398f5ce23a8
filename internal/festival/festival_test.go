package festival

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/taixu/internal/calendar"
)

type recordingSink struct {
	descriptions []string
	terms        []string
}

func (r *recordingSink) Emit(category, description string, meta map[string]any) {
	if category != Category {
		return
	}
	r.descriptions = append(r.descriptions, description)
	r.terms = append(r.terms, meta["term"].(string))
}

func TestQingMingFiresOnce(t *testing.T) {
	ts := calendar.NewSystem(0)
	sink := &recordingSink{}
	Register(ts, sink)

	// QingMing starts on day 20.
	ts.Advance(19)
	assert.Empty(t, sink.terms)
	ts.Advance(1)
	require.Equal(t, []string{"QingMing"}, sink.terms)
	assert.Contains(t, sink.descriptions[0], "清明")

	ts.Advance(4)
	assert.Len(t, sink.terms, 1)
}

func TestFullYearObservances(t *testing.T) {
	ts := calendar.NewSystem(0)
	sink := &recordingSink{}
	Register(ts, sink)

	ts.Advance(calendar.DaysPerYear)
	assert.Equal(t, []string{"QingMing", "XiaZhi", "QiuFen", "DongZhi", "DaHan", "LiChun"}, sink.terms)
}

func TestFor(t *testing.T) {
	o, ok := For(calendar.DongZhi)
	require.True(t, ok)
	assert.Equal(t, "冬至", o.Name)

	_, ok = For(calendar.YuShui)
	assert.False(t, ok)
}
