package points

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordsOn(dates ...string) []CheckInRecord {
	records := make([]CheckInRecord, 0, len(dates))
	for i, d := range dates {
		records = append(records, CheckInRecord{
			ID:         d + "-" + string(rune('a'+i)),
			Date:       d,
			Content:    "复习高数",
			StudyHours: 1,
			Points:     CalculatePoints(1),
		})
	}
	return records
}

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, ok := ParseDate(s)
	require.True(t, ok, "日期应该有效: %s", s)
	return d
}

// 测试积分计算
func TestCalculatePoints(t *testing.T) {
	assert.Equal(t, 1.0, CalculatePoints(0))
	assert.Equal(t, 17.0, CalculatePoints(8))
	assert.Equal(t, 17.0, CalculatePoints(8.5))
	assert.Equal(t, 17.0, CalculatePoints(24))
	assert.Equal(t, 4.0, CalculatePoints(1.5))

	for h := 0.0; h <= 8; h += 0.25 {
		assert.InDelta(t, 1.0+2*h, CalculatePoints(h), 1e-9, "时长 %v", h)
	}
	for h := 8.25; h <= 24; h += 0.25 {
		assert.Equal(t, 17.0, CalculatePoints(h), "时长 %v 应封顶", h)
	}
}

// 测试负数时长不会得到负分
func TestCalculatePointsNegative(t *testing.T) {
	assert.Equal(t, 1.0, CalculatePoints(-3))
	assert.Equal(t, CalculatePoints(2), CalculatePoints(2))
}

// 测试时长校验
func TestValidateHours(t *testing.T) {
	for _, h := range []float64{0, 0.5, 8, 24} {
		assert.NoError(t, ValidateHours(h), "时长应该有效: %v", h)
	}
	for _, h := range []float64{-0.1, 24.01, 100} {
		assert.ErrorIs(t, ValidateHours(h), ErrInvalidHours, "时长应该无效: %v", h)
	}
}

// 测试规则派生值
func TestRulesDerived(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, 2.0, r.HourlyRate())
	assert.Equal(t, 8.0, r.CapHours())
}

// 测试春节暂停区间
func TestHolidayRange(t *testing.T) {
	h := DefaultHolidayRange(time.UTC)

	assert.True(t, h.IsSuspended(time.Date(2025, 2, 16, 0, 0, 0, 0, time.UTC)))
	assert.True(t, h.IsSuspended(time.Date(2025, 2, 19, 12, 0, 0, 0, time.UTC)))
	assert.True(t, h.IsSuspended(time.Date(2025, 2, 22, 23, 59, 59, 0, time.UTC)))

	assert.False(t, h.IsSuspended(time.Date(2025, 2, 15, 23, 59, 59, 0, time.UTC)))
	assert.False(t, h.IsSuspended(time.Date(2025, 2, 23, 0, 0, 0, 0, time.UTC)))

	assert.False(t, HolidayRange{}.IsSuspended(time.Now()))
}

// 测试解析暂停区间配置
func TestParseHolidayRange(t *testing.T) {
	h, err := ParseHolidayRange("2025-02-16T00:00:00", "2025-02-22T23:59:59", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, DefaultHolidayRange(time.UTC), h)

	_, err = ParseHolidayRange("2025/02/16", "2025-02-22T23:59:59", time.UTC)
	assert.Error(t, err)

	_, err = ParseHolidayRange("2025-02-22T00:00:00", "2025-02-16T00:00:00", time.UTC)
	assert.Error(t, err)
}

// 测试周区间，周日归属于以它结尾的那一周
func TestWeekRange(t *testing.T) {
	cases := map[string][2]string{
		"2025-01-13": {"2025-01-13", "2025-01-19"}, // 周一
		"2025-01-16": {"2025-01-13", "2025-01-19"}, // 周四
		"2025-01-19": {"2025-01-13", "2025-01-19"}, // 周日
		"2025-03-01": {"2025-02-24", "2025-03-02"}, // 跨月
		"2024-12-31": {"2024-12-30", "2025-01-05"}, // 跨年
	}
	for in, want := range cases {
		start, end := WeekRange(mustDate(t, in))
		assert.Equal(t, want[0], start.String(), in)
		assert.Equal(t, want[1], end.String(), in)
	}
}

// 测试每周全勤
func TestCheckWeeklyFullAttendance(t *testing.T) {
	full := recordsOn("2025-01-13", "2025-01-14", "2025-01-15", "2025-01-16", "2025-01-17", "2025-01-18", "2025-01-19")
	assert.True(t, CheckWeeklyFullAttendance(full, mustDate(t, "2025-01-15")))
	assert.True(t, CheckWeeklyFullAttendance(full, mustDate(t, "2025-01-19")))
	assert.False(t, CheckWeeklyFullAttendance(full, mustDate(t, "2025-01-20")))

	sixDays := recordsOn("2025-01-13", "2025-01-14", "2025-01-15", "2025-01-16", "2025-01-17", "2025-01-18")
	assert.False(t, CheckWeeklyFullAttendance(sixDays, mustDate(t, "2025-01-18")))

	// 重复打卡只算一天
	dup := append(sixDays, recordsOn("2025-01-18", "2025-01-12", "2025-01-20")...)
	assert.False(t, CheckWeeklyFullAttendance(dup, mustDate(t, "2025-01-18")))
}

// 测试连续打卡
func TestComputeStreak(t *testing.T) {
	records := recordsOn("2025-01-10", "2025-01-11", "2025-01-12")
	assert.Equal(t, 3, ComputeStreak(records, mustDate(t, "2025-01-13")))
	assert.Equal(t, 3, ComputeStreak(records, mustDate(t, "2025-01-12")))
	assert.Equal(t, 0, ComputeStreak(records, mustDate(t, "2025-01-15")))

	gap := recordsOn("2025-01-01", "2025-01-02", "2025-01-10", "2025-01-11")
	assert.Equal(t, 2, ComputeStreak(gap, mustDate(t, "2025-01-12")))

	assert.Equal(t, 0, ComputeStreak(nil, mustDate(t, "2025-01-12")))
	assert.Equal(t, 1, ComputeStreak(recordsOn("2025-01-12"), mustDate(t, "2025-01-12")))

	// 重复日期和乱序输入
	messy := recordsOn("2025-01-12", "2025-01-10", "2025-01-12", "2025-01-11", "bad-date")
	assert.Equal(t, 3, ComputeStreak(messy, mustDate(t, "2025-01-12")))
}

// 测试跨月、跨年的连续天数按日历计算
func TestComputeStreakCalendarBoundaries(t *testing.T) {
	newYear := recordsOn("2024-12-30", "2024-12-31", "2025-01-01")
	assert.Equal(t, 3, ComputeStreak(newYear, mustDate(t, "2025-01-02")))

	march := recordsOn("2025-02-27", "2025-02-28", "2025-03-01")
	assert.Equal(t, 3, ComputeStreak(march, mustDate(t, "2025-03-01")))

	leap := recordsOn("2024-02-28", "2024-03-01")
	assert.Equal(t, 1, ComputeStreak(leap, mustDate(t, "2024-03-01")), "2024 年有 2 月 29 日")
}

// 测试统计汇总
func TestAggregate(t *testing.T) {
	records := recordsOn("2025-01-01", "2025-01-01", "2025-01-02")
	now := time.Date(2025, 1, 2, 21, 0, 0, 0, time.UTC)

	stats := Aggregate(records, now)
	assert.Equal(t, 3, stats.CheckInCount)
	assert.Equal(t, 9.0, stats.TotalPoints)
	assert.Equal(t, 3.0, stats.TotalStudyHours)
	assert.Equal(t, 2, stats.Streak)

	// 幂等
	assert.Equal(t, stats, Aggregate(records, now))
}

// 测试全勤奖励每次汇总只加一次
func TestAggregateWeeklyBonus(t *testing.T) {
	records := recordsOn("2025-01-13", "2025-01-14", "2025-01-15", "2025-01-16", "2025-01-17", "2025-01-18", "2025-01-19")
	now := time.Date(2025, 1, 19, 22, 0, 0, 0, time.UTC)

	stats := Aggregate(records, now)
	assert.Equal(t, 7*3.0+7.0, stats.TotalPoints)
	assert.Equal(t, 7, stats.Streak)

	again := Aggregate(records, now)
	assert.Equal(t, stats.TotalPoints, again.TotalPoints)

	nextWeek := Aggregate(records, now.AddDate(0, 0, 1))
	assert.Equal(t, 7*3.0, nextWeek.TotalPoints)
	assert.Equal(t, 7, nextWeek.Streak)
}

// 测试本周进度
func TestWeeklyProgress(t *testing.T) {
	records := recordsOn("2025-01-13", "2025-01-13", "2025-01-15", "2025-01-12")
	progress := WeeklyProgress(records, mustDate(t, "2025-01-16"))

	require.Len(t, progress, 7)
	assert.Equal(t, "周一", progress[0].Day)
	assert.Equal(t, "2025-01-13", progress[0].Date)
	assert.Equal(t, 6.0, progress[0].Points)
	assert.True(t, progress[0].Completed)
	assert.False(t, progress[1].Completed)
	assert.True(t, progress[2].Completed)
	assert.Equal(t, "周日", progress[6].Day)
	assert.Equal(t, "2025-01-19", progress[6].Date)
}

// 测试排行榜排序
func TestRank(t *testing.T) {
	entries := []RankEntry{
		{OwnerID: "a", DisplayName: "王同学", TotalPoints: 12.5, Streak: 1},
		{OwnerID: "b", DisplayName: "李同学", TotalPoints: 30, Streak: 2},
		{OwnerID: "c", DisplayName: "赵同学", TotalPoints: 12.5, Streak: 4},
	}
	ranked := Rank(entries, "a")

	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].OwnerID)
	assert.Equal(t, "c", ranked[1].OwnerID)
	assert.Equal(t, "a", ranked[2].OwnerID)
	assert.Equal(t, 3, ranked[2].Rank)
	assert.True(t, ranked[2].IsSelf)
	assert.False(t, ranked[0].IsSelf)
	assert.Equal(t, 0, entries[0].Rank, "输入不应被修改")

	// 完全相同时按昵称排序，名次依次递增
	tied := Rank([]RankEntry{
		{OwnerID: "y", DisplayName: "乙", TotalPoints: 5, Streak: 1},
		{OwnerID: "x", DisplayName: "甲", TotalPoints: 5, Streak: 1},
	}, "")
	assert.Equal(t, []int{1, 2}, []int{tied[0].Rank, tied[1].Rank})
	assert.Equal(t, "乙", tied[0].DisplayName)
}

// 测试日期格式验证
func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-01-15", "2024-12-31", "2024-02-29"} {
		_, ok := ParseDate(s)
		assert.True(t, ok, "日期格式应该有效: %s", s)
	}
	for _, s := range []string{"2024-13-01", "2024-01-32", "2024/01/15", "2024-1-5", ""} {
		_, ok := ParseDate(s)
		assert.False(t, ok, "日期格式应该无效: %s", s)
	}
}
