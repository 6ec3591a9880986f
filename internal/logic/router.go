package logic

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"winterstudy-backend/internal/common"
	"winterstudy-backend/internal/db"
	"winterstudy-backend/internal/points"
)

// Handlers HTTP 接口
type Handlers struct {
	svc *Service
}

// SetupRouter 路由入口
func SetupRouter(svc *Service, cfg common.ServerConfig) *gin.Engine {
	h := &Handlers{svc: svc}

	r := gin.New()
	r.Use(RequestLogger(), gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	limiter := NewRateLimiter(cfg.RateLimitPerMinute)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.GET("/api/rules", h.RulesHandler)
	r.GET("/api/holiday", h.HolidayHandler)
	r.POST("/api/checkin", limiter.Middleware(), h.CheckInHandler)
	r.GET("/api/records", h.RecordsHandler)
	r.GET("/api/stats", h.StatsHandler)
	r.GET("/api/weekly", h.WeeklyHandler)
	r.GET("/api/rank", h.RankHandler)
	r.GET("/api/square", h.SquareHandler)
	r.GET("/api/profile", h.ProfileHandler)
	r.PUT("/api/profile", h.UpdateProfileHandler)
	r.GET("/api/encouragement/daily", limiter.Middleware(), h.DailyEncouragementHandler)

	return r
}

// writeError 业务错误映射为 HTTP 状态码
func (h *Handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOwnerRequired):
		c.JSON(400, gin.H{"error": "openid required"})
	case errors.Is(err, ErrSuspended):
		c.JSON(403, gin.H{"error": "check-in suspended", "notice": h.svc.Holiday().Notice})
	case errors.Is(err, ErrEmptyContent):
		c.JSON(400, gin.H{"error": "请输入学习内容"})
	case errors.Is(err, ErrContentTooLong):
		c.JSON(400, gin.H{"error": "学习内容过长"})
	case errors.Is(err, points.ErrInvalidHours):
		c.JSON(400, gin.H{"error": "时长输入不合法"})
	case errors.Is(err, ErrTooManyImages):
		c.JSON(400, gin.H{"error": "图片数量过多"})
	case errors.Is(err, ErrInvalidImage):
		c.JSON(400, gin.H{"error": "图片格式不合法"})
	case errors.Is(err, ErrInvalidProfile):
		c.JSON(400, gin.H{"error": "个人资料不合法"})
	default:
		common.Sugar.Errorw("request failed", "path", c.Request.URL.Path, "err", err)
		c.JSON(500, gin.H{"error": "保存失败，请稍后重试"})
	}
}

// RulesHandler 积分规则
func (h *Handlers) RulesHandler(c *gin.Context) {
	rules := h.svc.Rules()
	c.JSON(200, gin.H{
		"rules":      rules,
		"hourlyRate": rules.HourlyRate(),
		"capHours":   rules.CapHours(),
	})
}

// HolidayHandler 春节暂停状态
func (h *Handlers) HolidayHandler(c *gin.Context) {
	c.JSON(200, h.svc.Holiday())
}

// CheckInHandler 打卡接口
func (h *Handlers) CheckInHandler(c *gin.Context) {
	var req struct {
		OpenID   string   `json:"openid"`
		Nickname string   `json:"nickname"`
		Avatar   string   `json:"avatar"`
		Content  string   `json:"content"`
		Hours    float64  `json:"hours"`
		Images   []string `json:"images"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.OpenID) == "" {
		c.JSON(400, gin.H{"error": "openid required"})
		return
	}
	result, err := h.svc.CheckIn(c.Request.Context(), CheckInRequest{
		OwnerID:     req.OpenID,
		DisplayName: req.Nickname,
		Avatar:      req.Avatar,
		Content:     req.Content,
		Hours:       req.Hours,
		Images:      req.Images,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(200, result)
}

// RecordsHandler 打卡历史
func (h *Handlers) RecordsHandler(c *gin.Context) {
	records, err := h.svc.Records(c.Request.Context(), c.Query("openid"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"records": records})
}

// StatsHandler 统计汇总
func (h *Handlers) StatsHandler(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Query("openid"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(200, stats)
}

// WeeklyHandler 本周进度
func (h *Handlers) WeeklyHandler(c *gin.Context) {
	progress, err := h.svc.Weekly(c.Request.Context(), c.Query("openid"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"weekly": progress})
}

// RankHandler 积分排行榜
func (h *Handlers) RankHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	board, err := h.svc.Leaderboard(c.Request.Context(), c.Query("openid"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(200, board)
}

// SquareHandler 打卡广场
func (h *Handlers) SquareHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	feed, err := h.svc.Square(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"records": feed})
}

// ProfileHandler 个人资料
func (h *Handlers) ProfileHandler(c *gin.Context) {
	profile, err := h.svc.Profile(c.Request.Context(), c.Query("openid"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(200, profile)
}

// UpdateProfileHandler 修改个人资料
func (h *Handlers) UpdateProfileHandler(c *gin.Context) {
	var req struct {
		OpenID string `json:"openid"`
		Name   string `json:"name"`
		School string `json:"school"`
		Grade  string `json:"grade"`
		Avatar string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.OpenID) == "" {
		c.JSON(400, gin.H{"error": "openid required"})
		return
	}
	profile, err := h.svc.UpdateProfile(c.Request.Context(), req.OpenID, db.Profile{
		Name:   req.Name,
		School: req.School,
		Grade:  req.Grade,
		Avatar: req.Avatar,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(200, profile)
}

// DailyEncouragementHandler 首页每日鼓励
func (h *Handlers) DailyEncouragementHandler(c *gin.Context) {
	c.JSON(200, gin.H{"quote": h.svc.DailyEncouragement(c.Request.Context())})
}
