package points

import (
	"errors"
	"math"
)

// ErrInvalidHours 学习时长不在 [0, 24] 区间
var ErrInvalidHours = errors.New("study hours must be between 0 and 24")

// MaxStudyHours 单次打卡允许的最大时长
const MaxStudyHours = 24.0

// Rules 积分规则
type Rules struct {
	BaseCheckIn       float64 `json:"baseCheckIn"`
	PointsPerHalfHour float64 `json:"pointsPerHalfHour"`
	DailyCap          float64 `json:"dailyCap"`
	WeeklyBonus       float64 `json:"weeklyBonus"`
}

// DefaultRules 基础分1.0，每0.5小时1.0分，每日上限17.0，每周全勤奖励7.0
func DefaultRules() Rules {
	return Rules{
		BaseCheckIn:       1.0,
		PointsPerHalfHour: 1.0,
		DailyCap:          17.0,
		WeeklyBonus:       7.0,
	}
}

// HourlyRate 每小时积分
func (r Rules) HourlyRate() float64 {
	return r.PointsPerHalfHour * 2
}

// CapHours 达到每日上限所需的学习时长
func (r Rules) CapHours() float64 {
	rate := r.HourlyRate()
	if rate <= 0 {
		return 0
	}
	return (r.DailyCap - r.BaseCheckIn) / rate
}

// CalculatePoints 单次打卡积分 = min(基础分 + 时长 * 每小时积分, 每日上限)
// 负数时长按 0 处理，调用方应先用 ValidateHours 校验
func (r Rules) CalculatePoints(hours float64) float64 {
	if hours < 0 || math.IsNaN(hours) {
		hours = 0
	}
	return math.Min(r.BaseCheckIn+hours*r.HourlyRate(), r.DailyCap)
}

// CalculatePoints 使用默认规则计算积分
func CalculatePoints(hours float64) float64 {
	return DefaultRules().CalculatePoints(hours)
}

// ValidateHours 校验学习时长
func ValidateHours(hours float64) error {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 || hours > MaxStudyHours {
		return ErrInvalidHours
	}
	return nil
}
