package common

const (
	RolePrompt   = "你是一个大学生寒假学习助教，说话风格亲切、专业、充满正能量。"
	EncourageFmt = "我今天学习了 %s 小时，内容是：%s。作为一个温柔体贴的学习助手，请给我一段50字以内的鼓励话语，并建议一个寒假学习的小贴士。"

	// DailyTopic 首页每日鼓励使用的学习内容
	DailyTopic = "寒假第一天，开启学习计划"
)

// AI 不可用时的兜底文案
const (
	FallbackEncouragement = "加油！坚持就是胜利。"
	EmptyEncouragement    = "加油！每一份努力都会在春天开花结果。"
)

// HolidayNoticeFmt 暂停期间的提示，依次为开始月、日，结束月、日
const HolidayNoticeFmt = "%d月%d日至%d月%d日期间暂停打卡安排。祝你新春快乐！"

var HunyuanModel = "hunyuan-turbos-latest"
var HunyuanBaseUrl = "https://api.hunyuan.cloud.tencent.com/v1"
var HunyuanEndpoint = "hunyuan.ap-guangzhou.tencentcloudapi.com"
