package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"winterstudy-backend/internal/points"
)

// DefaultConfigPath 未指定配置文件时尝试读取的路径
const DefaultConfigPath = "config.toml"

type Config struct {
	Timezone string         `toml:"timezone"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Log      LogConfig      `toml:"log"`
	AI       AIConfig       `toml:"ai"`
	Holiday  HolidayConfig  `toml:"holiday"`
	Reminder ReminderConfig `toml:"reminder"`
}

type ServerConfig struct {
	Addr               string   `toml:"addr"`
	GinMode            string   `toml:"gin_mode"`
	AllowedOrigins     []string `toml:"allowed_origins"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	MaxImages          int      `toml:"max_images"`
	MaxImageBytes      int      `toml:"max_image_bytes"`
}

// DatabaseConfig driver: mysql / sqlite / memory
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig Addr 为空时不启用缓存
type RedisConfig struct {
	Addr                  string `toml:"addr"`
	Password              string `toml:"password"`
	DB                    int    `toml:"db"`
	LeaderboardTTLSeconds int    `toml:"leaderboard_ttl_seconds"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// AIConfig provider: openai（OpenAI 兼容接口）/ hunyuan（腾讯云 SDK）/ none
type AIConfig struct {
	Provider       string  `toml:"provider"`
	Token          string  `toml:"token"`
	Model          string  `toml:"model"`
	BaseURL        string  `toml:"base_url"`
	SecretID       string  `toml:"secret_id"`
	SecretKey      string  `toml:"secret_key"`
	Region         string  `toml:"region"`
	Endpoint       string  `toml:"endpoint"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// HolidayConfig 格式 2006-01-02T15:04:05，按 Timezone 解释
type HolidayConfig struct {
	Start string `toml:"start"`
	End   string `toml:"end"`
}

// ReminderConfig At 格式 HH:MM
type ReminderConfig struct {
	Enabled bool   `toml:"enabled"`
	At      string `toml:"at"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Timezone: "Local",
		Server: ServerConfig{
			Addr:               ":8080",
			GinMode:            "release",
			AllowedOrigins:     []string{"*"},
			RateLimitPerMinute: 30,
			MaxImages:          9,
			MaxImageBytes:      2 << 20,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "study.db",
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			LeaderboardTTLSeconds: 300,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		AI: AIConfig{
			Provider:       "openai",
			Model:          HunyuanModel,
			BaseURL:        HunyuanBaseUrl,
			Endpoint:       HunyuanEndpoint,
			Temperature:    0.7,
			MaxTokens:      200,
			TimeoutSeconds: 10,
		},
		Holiday: HolidayConfig{
			Start: "2025-02-16T00:00:00",
			End:   "2025-02-22T23:59:59",
		},
		Reminder: ReminderConfig{
			Enabled: true,
			At:      "20:30",
		},
	}
}

// LoadConfig 优先级：默认值 -> TOML 文件 -> .env -> 环境变量
// path 为空时依次尝试 STUDY_CONFIG 和 config.toml，文件不存在不算错误
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("STUDY_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	// .env 不会覆盖已存在的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Addr, "LISTEN_ADDR")
	setString(&cfg.Server.GinMode, "GIN_MODE")
	setString(&cfg.Timezone, "STUDY_TZ")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "MYSQL_DSN")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Path, "LOG_PATH")
	setString(&cfg.AI.Provider, "AI_PROVIDER")
	setString(&cfg.AI.Token, "HUNYUAN_TOKEN")
	setString(&cfg.AI.Model, "AI_MODEL")
	setString(&cfg.AI.BaseURL, "AI_BASE_URL")
	setString(&cfg.AI.SecretID, "TENCENTCLOUD_SECRETID")
	setString(&cfg.AI.SecretKey, "TENCENTCLOUD_SECRETKEY")
	setInt(&cfg.Server.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")

	// MYSQL_DSN 沿用旧的部署方式，设置后默认使用 mysql
	if os.Getenv("MYSQL_DSN") != "" && os.Getenv("DB_DRIVER") == "" {
		cfg.Database.Driver = "mysql"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.HolidayRange(); err != nil {
		return err
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case "mysql", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("database dsn is empty for driver %q", c.Database.Driver)
	}
	if _, _, err := c.Reminder.Clock(); err != nil {
		return err
	}
	return nil
}

// Location 配置的时区，用于确定打卡归属日期
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// HolidayRange 暂停打卡区间
func (c *Config) HolidayRange() (points.HolidayRange, error) {
	loc, err := c.Location()
	if err != nil {
		return points.HolidayRange{}, err
	}
	if c.Holiday.Start == "" && c.Holiday.End == "" {
		return points.HolidayRange{}, nil
	}
	return points.ParseHolidayRange(c.Holiday.Start, c.Holiday.End, loc)
}

// Clock 解析提醒时间
func (r ReminderConfig) Clock() (int, int, error) {
	if r.At == "" {
		return 20, 30, nil
	}
	t, err := time.Parse("15:04", r.At)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid reminder time %q: %w", r.At, err)
	}
	return t.Hour(), t.Minute(), nil
}

// AITimeout AI 请求超时
func (c *Config) AITimeout() time.Duration {
	if c.AI.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// LeaderboardTTL 排行榜缓存时间
func (c *Config) LeaderboardTTL() time.Duration {
	if c.Redis.LeaderboardTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.LeaderboardTTLSeconds) * time.Second
}

func (c *Config) Print() {
	Sugar.Infow("config loaded",
		"addr", c.Server.Addr,
		"timezone", c.Timezone,
		"db_driver", c.Database.Driver,
		"redis", c.Redis.Addr != "",
		"ai_provider", c.AI.Provider,
		"holiday", c.Holiday.Start+" ~ "+c.Holiday.End,
	)
}
