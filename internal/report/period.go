package report

import (
	"errors"
	"fmt"

	"moneylog/internal/core"
)

// Period is a named window relative to "now".
type Period string

const (
	ThisMonth     Period = "this_month"
	LastMonth     Period = "last_month"
	Last3Months   Period = "last_3_months"
	Last6Months   Period = "last_6_months"
	ThisYear      Period = "this_year"
	AllTime       Period = "all_time"
	DefaultPeriod        = ThisMonth
)

var ErrUnknownPeriod = errors.New("unknown period")

// All-time is a sentinel window rather than the data's actual bounds.
var (
	AllTimeStart = core.NewDate(1900, 1, 1)
	AllTimeEnd   = core.NewDate(9999, 12, 31)
)

// DateRange is an inclusive calendar window.
type DateRange struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// Contains reports whether d falls inside the range, endpoints included.
func (r DateRange) Contains(d core.Date) bool {
	return d.Between(r.Start, r.End)
}

func (r DateRange) IsAllTime() bool {
	return r.Start.Equal(AllTimeStart) && r.End.Equal(AllTimeEnd)
}

func Periods() []Period {
	return []Period{ThisMonth, LastMonth, Last3Months, Last6Months, ThisYear, AllTime}
}

func (p Period) IsValid() bool {
	for _, known := range Periods() {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePeriod maps a period id to a Period. The empty string selects the default.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
	return p, nil
}

// DateRangeForPeriod resolves p against now. Unknown periods resolve like this_month.
func DateRangeForPeriod(p Period, now core.Date) DateRange {
	month := now.StartOfMonth()
	switch p {
	case LastMonth:
		prev := month.AddMonths(-1)
		return DateRange{Start: prev, End: prev.EndOfMonth()}
	case Last3Months:
		return DateRange{Start: month.AddMonths(-2), End: now.EndOfMonth()}
	case Last6Months:
		return DateRange{Start: month.AddMonths(-5), End: now.EndOfMonth()}
	case ThisYear:
		return DateRange{Start: core.NewDate(now.Year(), 1, 1), End: core.NewDate(now.Year(), 12, 31)}
	case AllTime:
		return DateRange{Start: AllTimeStart, End: AllTimeEnd}
	default:
		return DateRange{Start: month, End: now.EndOfMonth()}
	}
}

// PreviousRange returns the window of equal length immediately before r.
// Ranges made of whole months step back by whole months; all-time has no
// predecessor and yields an empty range.
func PreviousRange(r DateRange) DateRange {
	if r.IsAllTime() {
		return DateRange{Start: AllTimeStart, End: AllTimeStart.AddDays(-1)}
	}
	if r.Start.Day() == 1 && r.End.Equal(r.End.EndOfMonth()) {
		months := (r.End.Year()-r.Start.Year())*12 + r.End.Month() - r.Start.Month() + 1
		start := r.Start.AddMonths(-months)
		return DateRange{Start: start, End: r.Start.AddDays(-1)}
	}
	days := int(r.End.Sub(r.Start.Time).Hours()/24) + 1
	return DateRange{Start: r.Start.AddDays(-days), End: r.Start.AddDays(-1)}
}
