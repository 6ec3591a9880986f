package db

import (
	"time"
)

// StorageEntry 每个客户端一份的键值存储，对应前端 localStorage
// owner_id: 客户端 openid
// storage_key: study_records / user_profile / user_profile_v2
// value: JSON 文本
type StorageEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   string    `gorm:"size:64;not null;uniqueIndex:idx_owner_key" json:"owner_id"`
	Key       string    `gorm:"column:storage_key;size:32;not null;uniqueIndex:idx_owner_key;index" json:"key"`
	Value     string    `gorm:"type:longtext" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
