package normalize

import (
	"sync"
	"time"
)

// The warehouses tender packages Monday, Wednesday, and Friday; the carrier
// pickup is at 5pm Eastern, so anything rated after cutoff ships on the
// following tender day.
const tenderCutoffHour = 17

var (
	easternOnce sync.Once
	eastern     *time.Location
)

func shipCalendarLocation() *time.Location {
	easternOnce.Do(func() {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.FixedZone("EST", -5*3600)
		}
		eastern = loc
	})
	return eastern
}

func isTenderDay(d time.Weekday) bool {
	return d == time.Monday || d == time.Wednesday || d == time.Friday
}

// NextShipDate returns the day the package will actually leave the
// warehouse: today when today is a tender day before cutoff, otherwise the
// next tender day.
func NextShipDate(now time.Time) time.Time {
	t := now.In(shipCalendarLocation())
	if isTenderDay(t.Weekday()) && t.Hour() < tenderCutoffHour {
		return t
	}
	for {
		t = t.AddDate(0, 0, 1)
		if isTenderDay(t.Weekday()) {
			return t
		}
	}
}
