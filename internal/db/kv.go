package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormBackend 基于 storage_entries 表
type gormBackend struct {
	db *gorm.DB
}

// NewKVStore 数据库状态存储
func NewKVStore(conn *gorm.DB) StateStore {
	return &stateStore{b: &gormBackend{db: conn}}
}

func (g *gormBackend) get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	var entry StorageEntry
	err := g.db.WithContext(ctx).Where("owner_id = ? AND storage_key = ?", owner, key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(entry.Value), true, nil
}

// put 同一事务内写入多个键
func (g *gormBackend) put(ctx context.Context, owner string, values map[string][]byte) error {
	now := time.Now()
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			entry := StorageEntry{
				OwnerID:   owner,
				Key:       key,
				Value:     string(value),
				CreatedAt: now,
				UpdatedAt: now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "owner_id"}, {Name: "storage_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&entry).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *gormBackend) owners(ctx context.Context) ([]string, error) {
	var owners []string
	err := g.db.WithContext(ctx).Model(&StorageEntry{}).
		Distinct().
		Order("owner_id asc").
		Pluck("owner_id", &owners).Error
	return owners, err
}
