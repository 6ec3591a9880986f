package common

import (
	"time"

	"github.com/google/uuid"
)

// Clock 抽象当前时间，便于测试
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator 生成打卡记录 ID
type IDGenerator interface {
	New() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
