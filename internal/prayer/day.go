package prayer

import "time"

// Day is one resolved schedule together with the display metadata the
// timings API returns alongside it.
type Day struct {
	Timings  DailyTimings `json:"timings"`
	Hijri    string       `json:"hijri,omitempty"`
	Timezone string       `json:"timezone,omitempty"`
}

// Summary is the derived view of a day at a given moment.
type Summary struct {
	Prayers    []Prayer
	Next       NextPrayer
	Current    Name
	HasCurrent bool
}

// Summarize orders t's prayers on now's date and resolves the next and
// current prayer from the same reading of now.
func Summarize(t DailyTimings, now time.Time) (Summary, error) {
	prayers, err := t.Prayers(now)
	if err != nil {
		return Summary{}, err
	}
	next, err := ResolveNext(t, now)
	if err != nil {
		return Summary{}, err
	}
	current, ok := ResolveCurrent(next.Name)
	if next.Rollover {
		current, ok = "", false
	}
	return Summary{Prayers: prayers, Next: next, Current: current, HasCurrent: ok}, nil
}
