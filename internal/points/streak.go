package points

import (
	"cloud.google.com/go/civil"
)

// ComputeStreak 计算截止今天或昨天的连续打卡天数
// 最近一次打卡早于昨天时连续天数归零；更早的断档只截断计数
func ComputeStreak(records []CheckInRecord, today civil.Date) int {
	dates := distinctDates(records)
	if len(dates) == 0 {
		return 0
	}
	latest := dates[0]
	if latest != today && latest != today.AddDays(-1) {
		return 0
	}

	streak := 1
	for i := 0; i+1 < len(dates); i++ {
		if dates[i].DaysSince(dates[i+1]) != 1 {
			break
		}
		streak++
	}
	return streak
}
