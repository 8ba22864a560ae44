package schedule

import (
	"fmt"
	"io"
	"strings"
	"time"
)

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// MonthGrid returns the calendar cells of a month starting on Sunday.
// Leading cells before the first day are 0.
func MonthGrid(year int, month time.Month) []int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	cells := make([]int, int(first.Weekday()), int(first.Weekday())+daysInMonth)
	for day := 1; day <= daysInMonth; day++ {
		cells = append(cells, day)
	}
	return cells
}

// RenderMonth writes a month calendar. Days with a session are marked with *,
// today is wrapped in brackets.
func RenderMonth(w io.Writer, year int, month time.Month, sessions []Session, today time.Time) error {
	var b strings.Builder
	title := fmt.Sprintf("%s %d", month, year)
	fmt.Fprintf(&b, "%s\n", title)

	for _, d := range weekdays {
		fmt.Fprintf(&b, " %-4s", d)
	}
	b.WriteString("\n")

	cells := MonthGrid(year, month)
	for i, day := range cells {
		cell := ""
		if day > 0 {
			cell = fmt.Sprintf("%d", day)
			date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if HasSessionOn(sessions, date) {
				cell += "*"
			}
			if today.Year() == year && today.Month() == month && today.Day() == day {
				cell = "[" + cell + "]"
			}
		}
		fmt.Fprintf(&b, " %-4s", cell)
		if i%7 == 6 {
			b.WriteString("\n")
		}
	}
	if len(cells)%7 != 0 {
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ShiftMonth moves year/month by delta months
func ShiftMonth(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return t.Year(), t.Month()
}
