package points

import (
	"sort"
	"time"
)

// Aggregate 由全部记录重新计算统计
// 本周全勤时总积分额外加一次周奖励；每次调用都从头计算，不累计
func (r Rules) Aggregate(records []CheckInRecord, now time.Time) UserStats {
	today := DateOf(now)

	var stats UserStats
	for _, rec := range records {
		stats.TotalPoints += rec.Points
		stats.TotalStudyHours += rec.StudyHours
	}
	if CheckWeeklyFullAttendance(records, today) {
		stats.TotalPoints += r.WeeklyBonus
	}
	stats.CheckInCount = len(records)
	stats.Streak = ComputeStreak(records, today)
	return stats
}

// Aggregate 使用默认规则计算统计
func Aggregate(records []CheckInRecord, now time.Time) UserStats {
	return DefaultRules().Aggregate(records, now)
}

// Rank 按总积分、连续天数、昵称排序并写入名次
func Rank(entries []RankEntry, selfID string) []RankEntry {
	ranked := make([]RankEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.Streak != b.Streak {
			return a.Streak > b.Streak
		}
		return a.DisplayName < b.DisplayName
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].IsSelf = selfID != "" && ranked[i].OwnerID == selfID
	}
	return ranked
}
