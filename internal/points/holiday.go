package points

import (
	"fmt"
	"time"
)

// HolidayTimeLayout 暂停区间的时间格式（不带时区，按配置时区解释）
const HolidayTimeLayout = "2006-01-02T15:04:05"

// HolidayRange 春节暂停打卡区间，两端均包含
type HolidayRange struct {
	Start time.Time
	End   time.Time
}

// DefaultHolidayRange 2025-02-16T00:00:00 至 2025-02-22T23:59:59
func DefaultHolidayRange(loc *time.Location) HolidayRange {
	if loc == nil {
		loc = time.Local
	}
	return HolidayRange{
		Start: time.Date(2025, time.February, 16, 0, 0, 0, 0, loc),
		End:   time.Date(2025, time.February, 22, 23, 59, 59, 0, loc),
	}
}

// ParseHolidayRange 解析配置中的暂停区间
func ParseHolidayRange(start, end string, loc *time.Location) (HolidayRange, error) {
	if loc == nil {
		loc = time.Local
	}
	s, err := time.ParseInLocation(HolidayTimeLayout, start, loc)
	if err != nil {
		return HolidayRange{}, fmt.Errorf("invalid holiday start %q: %w", start, err)
	}
	e, err := time.ParseInLocation(HolidayTimeLayout, end, loc)
	if err != nil {
		return HolidayRange{}, fmt.Errorf("invalid holiday end %q: %w", end, err)
	}
	if e.Before(s) {
		return HolidayRange{}, fmt.Errorf("holiday end %s is before start %s", end, start)
	}
	return HolidayRange{Start: s, End: e}, nil
}

// IsSuspended 判断 t 是否处于暂停区间
func (h HolidayRange) IsSuspended(t time.Time) bool {
	if h.Start.IsZero() && h.End.IsZero() {
		return false
	}
	return !t.Before(h.Start) && !t.After(h.End)
}
