package main

import (
	"fmt"

	"winterstudy-backend/internal/cache"
	"winterstudy-backend/internal/common"
	"winterstudy-backend/internal/db"
	"winterstudy-backend/internal/logic"
)

// loadConfig 读取配置并初始化日志
func loadConfig() (*common.Config, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := common.InitLogger(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, nil
}

// newService 按配置组装存储、缓存、AI
func newService(cfg *common.Config) (*logic.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	holiday, err := cfg.HolidayRange()
	if err != nil {
		return nil, err
	}

	store, err := db.NewStateStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	provider, err := logic.NewProvider(cfg.AI)
	if err != nil {
		return nil, err
	}

	return logic.NewService(logic.Options{
		Store:         store,
		Encourager:    logic.NewEncourager(provider, cfg.AITimeout()),
		Leaderboard:   cache.NewLeaderboard(cache.NewRedisClient(cfg.Redis), cfg.LeaderboardTTL()),
		Clock:         common.RealClock{},
		IDs:           common.UUIDGenerator{},
		Location:      loc,
		Holiday:       holiday,
		MaxImages:     cfg.Server.MaxImages,
		MaxImageBytes: cfg.Server.MaxImageBytes,
	}), nil
}
