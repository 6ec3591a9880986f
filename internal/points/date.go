package points

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout 记录日期格式
const DateLayout = "2006-01-02"

// ParseDate 解析 yyyy-mm-dd，格式不合法时返回 false
func ParseDate(s string) (civil.Date, bool) {
	d, err := civil.ParseDate(s)
	if err != nil || !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

// DateOf 返回 t 在其所在时区的日历日期
func DateOf(t time.Time) civil.Date {
	return civil.DateOf(t)
}

// FormatDate 按本地日历日期格式化
func FormatDate(t time.Time) string {
	return civil.DateOf(t).String()
}

func weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// distinctDates 去重后按时间倒序返回，无法解析的日期被忽略
func distinctDates(records []CheckInRecord) []civil.Date {
	seen := make(map[civil.Date]struct{}, len(records))
	dates := make([]civil.Date, 0, len(records))
	for _, r := range records {
		d, ok := ParseDate(r.Date)
		if !ok {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates
}
