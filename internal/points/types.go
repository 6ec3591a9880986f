package points

// RecordSchemaVersion 当前打卡记录的结构版本
const RecordSchemaVersion = 1

// CheckInRecord 一次学习打卡
// date: 打卡归属的本地日期 yyyy-mm-dd
// points: 创建时由 CalculatePoints 计算并保存，之后不再重算
type CheckInRecord struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	Content    string   `json:"content"`
	Images     []string `json:"images"`
	StudyHours float64  `json:"studyHours"`
	Points     float64  `json:"points"`
	IsHoliday  bool     `json:"isHoliday,omitempty"`

	// 广场版本新增的社交字段，积分计算不使用
	OwnerID     string `json:"ownerId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`

	SchemaVersion int `json:"schemaVersion,omitempty"`
}

// UserStats 由全部打卡记录推导出的统计，不单独存储
type UserStats struct {
	TotalPoints     float64 `json:"totalPoints"`
	Streak          int     `json:"streak"`
	CheckInCount    int     `json:"checkInCount"`
	TotalStudyHours float64 `json:"totalStudyHours"`
}

// DayProgress 本周某一天的完成情况
type DayProgress struct {
	Day       string  `json:"day"`
	Date      string  `json:"date"`
	Points    float64 `json:"points"`
	Completed bool    `json:"completed"`
}

// RankEntry 排行榜条目
type RankEntry struct {
	OwnerID      string  `json:"ownerId"`
	DisplayName  string  `json:"displayName"`
	Avatar       string  `json:"avatar,omitempty"`
	TotalPoints  float64 `json:"totalPoints"`
	Streak       int     `json:"streak"`
	CheckInCount int     `json:"checkInCount"`
	Rank         int     `json:"rank"`
	IsSelf       bool    `json:"isSelf"`
}
