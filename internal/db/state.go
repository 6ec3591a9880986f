package db

import (
	"context"
	"encoding/json"
	"fmt"

	"winterstudy-backend/internal/points"
)

// 与前端 localStorage 保持一致的键
const (
	KeyRecords   = "study_records"
	KeyProfileV1 = "user_profile"
	KeyProfileV2 = "user_profile_v2"
)

// ProfileSchemaVersion 当前个人资料版本
const ProfileSchemaVersion = 2

// Profile 个人资料（v2 增加了头像）
type Profile struct {
	SchemaVersion int    `json:"schemaVersion"`
	Name          string `json:"name"`
	School        string `json:"school"`
	Grade         string `json:"grade"`
	Avatar        string `json:"avatar"`
}

// profileV1 旧版个人资料
type profileV1 struct {
	Name   string `json:"name"`
	School string `json:"school"`
	Grade  string `json:"grade"`
}

// State 单个客户端的全部持久化数据
type State struct {
	Records []points.CheckInRecord `json:"records"`
	Profile Profile                `json:"profile"`
}

// StateStore 状态读写能力，计算逻辑不依赖具体存储
type StateStore interface {
	Load(ctx context.Context, owner string) (*State, error)
	Save(ctx context.Context, owner string, st *State) error
	Migrate(ctx context.Context, owner string) (bool, error)
	Owners(ctx context.Context) ([]string, error)
}

// backend 原始键值读写
type backend interface {
	get(ctx context.Context, owner, key string) ([]byte, bool, error)
	put(ctx context.Context, owner string, values map[string][]byte) error
	owners(ctx context.Context) ([]string, error)
}

// stateStore 在键值之上做 JSON 编解码和版本迁移
type stateStore struct {
	b backend
}

// Load 只读：旧版本数据在内存中升级，不写回
func (s *stateStore) Load(ctx context.Context, owner string) (*State, error) {
	st, _, err := s.load(ctx, owner)
	return st, err
}

// Migrate 把升级后的数据写回，返回是否有改动
// 与 Save 一样需要调用方串行化同一客户端的写入
func (s *stateStore) Migrate(ctx context.Context, owner string) (bool, error) {
	st, dirty, err := s.load(ctx, owner)
	if err != nil || !dirty {
		return false, err
	}
	if err := s.Save(ctx, owner, st); err != nil {
		return false, fmt.Errorf("persist migrated state of %s: %w", owner, err)
	}
	return true, nil
}

func (s *stateStore) load(ctx context.Context, owner string) (*State, bool, error) {
	st := &State{Records: []points.CheckInRecord{}, Profile: Profile{SchemaVersion: ProfileSchemaVersion}}
	dirty := false

	raw, ok, err := s.b.get(ctx, owner, KeyRecords)
	if err != nil {
		return nil, false, fmt.Errorf("load records of %s: %w", owner, err)
	}
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &st.Records); err != nil {
			return nil, false, fmt.Errorf("decode records of %s: %w", owner, err)
		}
		if st.Records == nil {
			st.Records = []points.CheckInRecord{}
		}
		dirty = MigrateRecords(owner, st.Records)
	}

	profile, migrated, err := s.loadProfile(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	st.Profile = profile
	return st, dirty || migrated, nil
}

func (s *stateStore) loadProfile(ctx context.Context, owner string) (Profile, bool, error) {
	raw, ok, err := s.b.get(ctx, owner, KeyProfileV2)
	if err != nil {
		return Profile{}, false, fmt.Errorf("load profile of %s: %w", owner, err)
	}
	if ok && len(raw) > 0 {
		var p Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			return Profile{}, false, fmt.Errorf("decode profile of %s: %w", owner, err)
		}
		migrated := p.SchemaVersion != ProfileSchemaVersion
		p.SchemaVersion = ProfileSchemaVersion
		return p, migrated, nil
	}

	raw, ok, err = s.b.get(ctx, owner, KeyProfileV1)
	if err != nil {
		return Profile{}, false, fmt.Errorf("load legacy profile of %s: %w", owner, err)
	}
	if !ok || len(raw) == 0 {
		return Profile{SchemaVersion: ProfileSchemaVersion}, false, nil
	}
	p, err := MigrateProfileV1(raw)
	if err != nil {
		return Profile{}, false, fmt.Errorf("migrate legacy profile of %s: %w", owner, err)
	}
	return p, true, nil
}

func (s *stateStore) Save(ctx context.Context, owner string, st *State) error {
	records := st.Records
	if records == nil {
		records = []points.CheckInRecord{}
	}
	rb, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	profile := st.Profile
	profile.SchemaVersion = ProfileSchemaVersion
	pb, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.b.put(ctx, owner, map[string][]byte{
		KeyRecords:   rb,
		KeyProfileV2: pb,
	})
}

func (s *stateStore) Owners(ctx context.Context) ([]string, error) {
	return s.b.owners(ctx)
}

// MigrateProfileV1 把 user_profile 升级为 v2
func MigrateProfileV1(raw []byte) (Profile, error) {
	var old profileV1
	if err := json.Unmarshal(raw, &old); err != nil {
		return Profile{}, err
	}
	return Profile{
		SchemaVersion: ProfileSchemaVersion,
		Name:          old.Name,
		School:        old.School,
		Grade:         old.Grade,
	}, nil
}

// MigrateRecords 补齐旧记录缺失的字段，返回是否有改动
func MigrateRecords(owner string, records []points.CheckInRecord) bool {
	changed := false
	for i := range records {
		r := &records[i]
		if r.SchemaVersion >= points.RecordSchemaVersion {
			continue
		}
		if r.Images == nil {
			r.Images = []string{}
		}
		if r.OwnerID == "" {
			r.OwnerID = owner
		}
		r.SchemaVersion = points.RecordSchemaVersion
		changed = true
	}
	return changed
}
