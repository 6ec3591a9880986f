package logic

import (
	"context"
	"time"

	"winterstudy-backend/internal/common"
)

// CheckReminders 统计今天尚未打卡的用户，并刷新排行榜缓存
func CheckReminders(ctx context.Context, svc *Service) {
	common.Sugar.Info("开始检查用户打卡状态...")

	if svc.Holiday().Suspended {
		common.Sugar.Info("春节暂停期间，跳过打卡提醒检查")
		return
	}

	pending, err := svc.PendingOwners(ctx)
	if err != nil {
		common.Sugar.Errorf("获取未打卡用户失败: %v", err)
		return
	}
	for _, owner := range pending {
		common.Sugar.Infow("今日尚未打卡", "openid", owner)
	}

	ranked, err := svc.RefreshLeaderboard(ctx)
	if err != nil {
		common.Sugar.Errorf("刷新排行榜失败: %v", err)
		return
	}
	common.Sugar.Infof("打卡提醒检查完成: 未打卡 %d 人，排行榜 %d 人", len(pending), len(ranked))
}

// nextRun 下一次执行时间，今天已过则顺延到明天
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// StartScheduler 启动定时任务，ctx 取消后退出
func StartScheduler(ctx context.Context, svc *Service, hour, minute int) {
	common.Sugar.Info("启动定时任务调度器...")

	go func() {
		for {
			now := svc.now()
			next := nextRun(now, hour, minute)
			wait := next.Sub(now)
			common.Sugar.Infof("下次打卡提醒检查时间: %s (等待 %v)", next.Format("2006-01-02 15:04:05"), wait)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				common.Sugar.Info("定时任务调度器已停止")
				return
			case <-timer.C:
			}
			CheckReminders(ctx, svc)
		}
	}()
}
