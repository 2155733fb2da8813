package prayer

import "time"

// ResolveNext returns the first prayer strictly after now on now's date.
// Once Isha has passed it returns Fajr on the following day, reusing today's
// Fajr wall-clock time; the API is not queried for tomorrow.
func ResolveNext(t DailyTimings, now time.Time) (NextPrayer, error) {
	for _, n := range Order {
		at, err := t.Instant(n, now)
		if err != nil {
			return NextPrayer{}, err
		}
		if at.After(now) {
			return NextPrayer{Name: n, Time: at}, nil
		}
	}

	fajr, err := t.Instant(Fajr, now.AddDate(0, 0, 1))
	if err != nil {
		return NextPrayer{}, err
	}
	return NextPrayer{Name: Fajr, Time: fajr, Rollover: true}, nil
}

// ResolveCurrent returns the prayer immediately preceding next in canonical
// order. There is no current prayer when next is Fajr, which includes the
// rollover case.
func ResolveCurrent(next Name) (Name, bool) {
	i := Index(next)
	if i <= 0 {
		return "", false
	}
	return Order[i-1], true
}
