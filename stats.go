package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"winterstudy-backend/internal/common"
	"winterstudy-backend/internal/db"
	"winterstudy-backend/internal/points"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "查看某个客户端的积分统计",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsOpenID, "openid", "", "client openid")
	_ = cmd.MarkFlagRequired("openid")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer common.SyncLogger()

	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	profile, err := svc.Profile(ctx, statsOpenID)
	if err != nil {
		return err
	}
	stats, err := svc.Stats(ctx, statsOpenID)
	if err != nil {
		return err
	}
	weekly, err := svc.Weekly(ctx, statsOpenID)
	if err != nil {
		return err
	}
	renderStats(cmd.OutOrStdout(), statsOpenID, profile, stats, weekly)
	return nil
}

// renderStats 终端展示统计卡片和本周进度
func renderStats(w io.Writer, owner string, profile db.Profile, stats points.UserStats, weekly []points.DayProgress) {
	name := profile.Name
	if name == "" {
		name = owner
	}

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("总积分", formatNumber(stats.TotalPoints)),
		card("连续打卡", strconv.Itoa(stats.Streak)+" 天"),
		card("打卡次数", strconv.Itoa(stats.CheckInCount)),
		card("学习时长", formatNumber(stats.TotalStudyHours)+" 小时"),
	)

	days := make([]string, 0, len(weekly))
	for _, d := range weekly {
		if d.Completed {
			days = append(days, doneStyle.Render(fmt.Sprintf("%s ✓ %s", d.Day, formatNumber(d.Points))))
		} else {
			days = append(days, mutedStyle.Render(d.Day+" ·"))
		}
	}

	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(name),
		cards,
		strings.Join(days, "  "),
	))
}

func card(title, value string) string {
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		cardTitleStyle.Render(title),
		cardValueStyle.Render(value),
	))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
