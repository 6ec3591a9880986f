package db

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"winterstudy-backend/internal/common"
	"winterstudy-backend/internal/points"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := Open(common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

// 两种存储实现跑同一组用例
func storeFactories(t *testing.T) map[string]func() StateStore {
	return map[string]func() StateStore{
		"memory": NewMemoryStore,
		"sqlite": func() StateStore { return NewKVStore(openTestDB(t)) },
	}
}

func sampleRecord(id, date string, hours float64) points.CheckInRecord {
	return points.CheckInRecord{
		ID:            id,
		Date:          date,
		Content:       "背单词",
		Images:        []string{},
		StudyHours:    hours,
		Points:        points.CalculatePoints(hours),
		OwnerID:       "test_openid_123",
		SchemaVersion: points.RecordSchemaVersion,
	}
}

// 测试数据库连接
func TestDatabaseConnection(t *testing.T) {
	conn := openTestDB(t)
	assert.True(t, conn.Migrator().HasTable(&StorageEntry{}))
}

// 测试不支持的驱动
func TestUnsupportedDriver(t *testing.T) {
	_, err := Open(common.DatabaseConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

// 测试 memory 驱动不连接数据库
func TestNewStateStoreMemory(t *testing.T) {
	store, err := NewStateStore(common.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, store)
}

// 测试空状态
func TestLoadEmptyState(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st, err := factory().Load(context.Background(), "nobody")
			require.NoError(t, err)
			assert.NotNil(t, st.Records)
			assert.Empty(t, st.Records)
			assert.Equal(t, ProfileSchemaVersion, st.Profile.SchemaVersion)
		})
	}
}

// 测试保存后读取
func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			st := &State{
				Records: []points.CheckInRecord{sampleRecord("1", "2025-01-10", 2)},
				Profile: Profile{Name: "小明", School: "清华大学", Grade: "大一", Avatar: "https://example.com/a.png"},
			}
			require.NoError(t, store.Save(ctx, "test_openid_123", st))

			// 覆盖写入
			st.Records = append(st.Records, sampleRecord("2", "2025-01-11", 8.5))
			require.NoError(t, store.Save(ctx, "test_openid_123", st))

			got, err := store.Load(ctx, "test_openid_123")
			require.NoError(t, err)
			require.Len(t, got.Records, 2)
			assert.Equal(t, 17.0, got.Records[1].Points)
			assert.Equal(t, "小明", got.Profile.Name)
			assert.Equal(t, ProfileSchemaVersion, got.Profile.SchemaVersion)

			other, err := store.Load(ctx, "wx_openid_456")
			require.NoError(t, err)
			assert.Empty(t, other.Records)
		})
	}
}

// 测试列出客户端
func TestOwners(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			for _, owner := range []string{"user_b", "user_a", "user_c"} {
				require.NoError(t, store.Save(ctx, owner, &State{}))
			}
			owners, err := store.Owners(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"user_a", "user_b", "user_c"}, owners)
		})
	}
}

// 测试 upsert 不产生重复行
func TestKVUpsert(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	store := NewKVStore(conn)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, "test_openid_123", &State{}))
	}
	var count int64
	require.NoError(t, conn.Model(&StorageEntry{}).Where("owner_id = ?", "test_openid_123").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

const (
	legacyRecords = `[{"id":"1736500000000","date":"2025-01-10","content":"刷题","images":null,"studyHours":3,"points":7}]`
	legacyProfile = `{"name":"小红","school":"北京大学","grade":"大二"}`
)

// pausingBackend 第一次读取记录后暂停，等待放行
type pausingBackend struct {
	backend
	once    sync.Once
	read    chan struct{}
	release chan struct{}
	puts    atomic.Int32
}

func (p *pausingBackend) get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	v, ok, err := p.backend.get(ctx, owner, key)
	if key == KeyRecords {
		p.once.Do(func() {
			close(p.read)
			<-p.release
		})
	}
	return v, ok, err
}

func (p *pausingBackend) put(ctx context.Context, owner string, values map[string][]byte) error {
	p.puts.Add(1)
	return p.backend.put(ctx, owner, values)
}

// 测试旧版本数据迁移
func TestLoadMigratesLegacyState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStoreWith(map[string]map[string]string{
		"legacy_openid": {
			KeyRecords:   legacyRecords,
			KeyProfileV1: legacyProfile,
		},
	})

	st, err := store.Load(ctx, "legacy_openid")
	require.NoError(t, err)
	require.Len(t, st.Records, 1)
	rec := st.Records[0]
	assert.Equal(t, []string{}, rec.Images)
	assert.Equal(t, "legacy_openid", rec.OwnerID)
	assert.Equal(t, points.RecordSchemaVersion, rec.SchemaVersion)
	assert.Equal(t, 7.0, rec.Points, "已保存的积分不重新计算")

	assert.Equal(t, "小红", st.Profile.Name)
	assert.Equal(t, "大二", st.Profile.Grade)
	assert.Equal(t, ProfileSchemaVersion, st.Profile.SchemaVersion)

	// 读取不写回
	b := store.(*stateStore).b
	_, ok, err := b.get(ctx, "legacy_openid", KeyProfileV2)
	require.NoError(t, err)
	assert.False(t, ok, "Load 不应写入 v2")

	changed, err := store.Migrate(ctx, "legacy_openid")
	require.NoError(t, err)
	assert.True(t, changed)

	raw, ok, err := b.get(ctx, "legacy_openid", KeyProfileV2)
	require.NoError(t, err)
	require.True(t, ok)
	var p Profile
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, "北京大学", p.School)

	changed, err = store.Migrate(ctx, "legacy_openid")
	require.NoError(t, err)
	assert.False(t, changed, "已迁移的数据不再写入")
}

// 测试读取旧数据期间的并发写入不会被覆盖
func TestLoadDoesNotOverwriteConcurrentSave(t *testing.T) {
	ctx := context.Background()
	inner := &memoryBackend{data: map[string]map[string][]byte{
		"legacy_openid": {
			KeyRecords:   []byte(legacyRecords),
			KeyProfileV1: []byte(legacyProfile),
		},
	}}
	pb := &pausingBackend{backend: inner, read: make(chan struct{}), release: make(chan struct{})}
	reader := &stateStore{b: pb}
	writer := &stateStore{b: inner}

	done := make(chan error, 1)
	go func() {
		_, err := reader.Load(ctx, "legacy_openid")
		done <- err
	}()
	<-pb.read

	st, err := writer.Load(ctx, "legacy_openid")
	require.NoError(t, err)
	st.Records = append(st.Records, sampleRecord("2", "2025-01-11", 1))
	require.NoError(t, writer.Save(ctx, "legacy_openid", st))

	close(pb.release)
	require.NoError(t, <-done)

	got, err := writer.Load(ctx, "legacy_openid")
	require.NoError(t, err)
	assert.Len(t, got.Records, 2, "新打卡不能被读取覆盖")
	assert.Zero(t, pb.puts.Load())
}

// 测试 v2 优先于 v1
func TestLoadPrefersProfileV2(t *testing.T) {
	store := NewMemoryStoreWith(map[string]map[string]string{
		"test_openid_123": {
			KeyProfileV1: `{"name":"旧名字"}`,
			KeyProfileV2: `{"schemaVersion":2,"name":"新名字","avatar":"a.png"}`,
		},
	})
	st, err := store.Load(context.Background(), "test_openid_123")
	require.NoError(t, err)
	assert.Equal(t, "新名字", st.Profile.Name)
	assert.Equal(t, "a.png", st.Profile.Avatar)
}

// 测试损坏的数据
func TestLoadCorruptRecords(t *testing.T) {
	store := NewMemoryStoreWith(map[string]map[string]string{
		"broken": {KeyRecords: `{not json`},
	})
	_, err := store.Load(context.Background(), "broken")
	assert.Error(t, err)
}

// 测试记录迁移只处理旧记录
func TestMigrateRecords(t *testing.T) {
	records := []points.CheckInRecord{
		sampleRecord("1", "2025-01-10", 1),
		{ID: "2", Date: "2025-01-11"},
	}
	assert.True(t, MigrateRecords("owner", records))
	assert.Equal(t, "test_openid_123", records[0].OwnerID)
	assert.Equal(t, "owner", records[1].OwnerID)
	assert.False(t, MigrateRecords("owner", records))
}
