package roster

import "github.com/shopspring/decimal"

// ratePlaces is the precision attendance rates are rounded to.
const ratePlaces = 4

// DayStat is one date's attendance rate.
type DayStat struct {
	Date     string
	Recorded int
	Present  int
	Rate     decimal.Decimal
}

// Summary aggregates attendance over a date range.
type Summary struct {
	From          string
	To            string
	Days          []DayStat
	TotalRecorded int
	TotalPresent  int
	OverallRate   decimal.Decimal
}

// Summarize computes per-date and overall attendance rates. Rates use
// decimal arithmetic so 1/3 of a roster present reports as 0.3333, not a
// float artifact. A date with no recorded rows has rate zero.
func Summarize(from, to string, counts []DayCount) Summary {
	s := Summary{From: from, To: to, Days: make([]DayStat, 0, len(counts))}
	for _, c := range counts {
		s.Days = append(s.Days, DayStat{
			Date:     c.Date,
			Recorded: c.Recorded,
			Present:  c.Present,
			Rate:     rate(c.Present, c.Recorded),
		})
		s.TotalRecorded += c.Recorded
		s.TotalPresent += c.Present
	}
	s.OverallRate = rate(s.TotalPresent, s.TotalRecorded)
	return s
}

func rate(present, recorded int) decimal.Decimal {
	if recorded == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(present)).
		Div(decimal.NewFromInt(int64(recorded))).
		Round(ratePlaces)
}
