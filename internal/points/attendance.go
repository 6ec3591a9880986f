package points

import (
	"cloud.google.com/go/civil"
)

// Weekdays 周一到周日的展示名
var Weekdays = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// WeekRange 返回 d 所在周的周一和周日，周日算作当周最后一天
func WeekRange(d civil.Date) (civil.Date, civil.Date) {
	offset := (int(weekday(d)) + 6) % 7
	start := d.AddDays(-offset)
	return start, start.AddDays(6)
}

// CheckWeeklyFullAttendance 判断 target 所在周的七天是否都有打卡
// 同一天多次打卡只算一天
func CheckWeeklyFullAttendance(records []CheckInRecord, target civil.Date) bool {
	start, end := WeekRange(target)
	from, to := start.String(), end.String()

	days := make(map[string]struct{}, 7)
	for _, r := range records {
		if r.Date < from || r.Date > to {
			continue
		}
		if _, ok := ParseDate(r.Date); !ok {
			continue
		}
		days[r.Date] = struct{}{}
	}
	return len(days) == 7
}

// WeeklyProgress 本周每天的积分和完成情况，从周一开始
func WeeklyProgress(records []CheckInRecord, today civil.Date) []DayProgress {
	start, _ := WeekRange(today)
	progress := make([]DayProgress, 7)
	index := make(map[string]int, 7)
	for i := range progress {
		date := start.AddDays(i).String()
		progress[i] = DayProgress{Day: Weekdays[i], Date: date}
		index[date] = i
	}
	for _, r := range records {
		i, ok := index[r.Date]
		if !ok {
			continue
		}
		progress[i].Points += r.Points
		progress[i].Completed = true
	}
	return progress
}
