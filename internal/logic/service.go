package logic

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"winterstudy-backend/internal/cache"
	"winterstudy-backend/internal/common"
	"winterstudy-backend/internal/db"
	"winterstudy-backend/internal/points"
)

const (
	MaxContentRunes = 1000
	MaxProfileRunes = 32
	DefaultRankSize = 10
	MaxListSize     = 100
)

var (
	ErrOwnerRequired  = errors.New("openid required")
	ErrSuspended      = errors.New("check-in is suspended during the holiday")
	ErrEmptyContent   = errors.New("content required")
	ErrContentTooLong = errors.New("content too long")
	ErrTooManyImages  = errors.New("too many images")
	ErrInvalidImage   = errors.New("invalid image")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrPersist        = errors.New("failed to save state")
)

// CheckInRequest 提交打卡
type CheckInRequest struct {
	OwnerID     string
	DisplayName string
	Avatar      string
	Content     string
	Hours       float64
	Images      []string
}

// CheckInResult 打卡结果，记录保存成功后才会返回
type CheckInResult struct {
	Record        points.CheckInRecord `json:"record"`
	Encouragement string               `json:"encouragement"`
	Stats         points.UserStats     `json:"stats"`
}

// HolidayStatus 暂停打卡状态
type HolidayStatus struct {
	Suspended bool      `json:"suspended"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Notice    string    `json:"notice"`
}

// Leaderboard 排行榜及自己的名次
type Leaderboard struct {
	Rank []points.RankEntry `json:"rank"`
	Self *points.RankEntry  `json:"self,omitempty"`
}

type Options struct {
	Store         db.StateStore
	Encourager    *Encourager
	Leaderboard   cache.Leaderboard
	Clock         common.Clock
	IDs           common.IDGenerator
	Location      *time.Location
	Holiday       points.HolidayRange
	Rules         points.Rules
	MaxImages     int
	MaxImageBytes int
}

// Service 打卡业务，存储、时钟、AI 均由外部注入
type Service struct {
	store         db.StateStore
	encourager    *Encourager
	leaderboard   cache.Leaderboard
	clock         common.Clock
	ids           common.IDGenerator
	loc           *time.Location
	holiday       points.HolidayRange
	rules         points.Rules
	maxImages     int
	maxImageBytes int
	policy        *bluemonday.Policy

	// 同一客户端的读-改-写需要串行
	mu sync.Mutex
	// 排行榜缓存失效次数，计算期间有写入时不回填缓存
	rankGen atomic.Uint64
}

func NewService(opts Options) *Service {
	s := &Service{
		store:         opts.Store,
		encourager:    opts.Encourager,
		leaderboard:   opts.Leaderboard,
		clock:         opts.Clock,
		ids:           opts.IDs,
		loc:           opts.Location,
		holiday:       opts.Holiday,
		rules:         opts.Rules,
		maxImages:     opts.MaxImages,
		maxImageBytes: opts.MaxImageBytes,
		policy:        bluemonday.StrictPolicy(),
	}
	if s.encourager == nil {
		s.encourager = NewEncourager(nil, 0)
	}
	if s.leaderboard == nil {
		s.leaderboard = cache.NopLeaderboard{}
	}
	if s.clock == nil {
		s.clock = common.RealClock{}
	}
	if s.ids == nil {
		s.ids = common.UUIDGenerator{}
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.rules == (points.Rules{}) {
		s.rules = points.DefaultRules()
	}
	if s.maxImages <= 0 {
		s.maxImages = 9
	}
	if s.maxImageBytes <= 0 {
		s.maxImageBytes = 2 << 20
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.loc)
}

// Rules 积分规则
func (s *Service) Rules() points.Rules {
	return s.rules
}

// Holiday 当前是否暂停打卡
func (s *Service) Holiday() HolidayStatus {
	status := HolidayStatus{
		Suspended: s.holiday.IsSuspended(s.now()),
		Start:     s.holiday.Start,
		End:       s.holiday.End,
	}
	if !s.holiday.Start.IsZero() {
		status.Notice = fmt.Sprintf(common.HolidayNoticeFmt,
			s.holiday.Start.Month(), s.holiday.Start.Day(), s.holiday.End.Month(), s.holiday.End.Day())
	}
	return status
}

// plainText 昵称、学校等短字段不允许包含 HTML 标签
func (s *Service) plainText(input string) (string, error) {
	input = strings.TrimSpace(input)
	if html.UnescapeString(s.policy.Sanitize(input)) != input {
		return "", ErrInvalidProfile
	}
	return input, nil
}

func (s *Service) validateImages(images []string) ([]string, error) {
	if len(images) > s.maxImages {
		return nil, ErrTooManyImages
	}
	out := make([]string, 0, len(images))
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" || len(img) > s.maxImageBytes {
			return nil, ErrInvalidImage
		}
		if strings.HasPrefix(img, "data:image/") {
			if !strings.Contains(img, ";base64,") {
				return nil, ErrInvalidImage
			}
		} else {
			u, err := url.Parse(img)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, ErrInvalidImage
			}
		}
		out = append(out, img)
	}
	return out, nil
}

// CheckIn 提交打卡：校验、计算积分、保存，然后获取鼓励语
// 鼓励语失败不影响记录保存
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, ErrOwnerRequired
	}
	now := s.now()
	if s.holiday.IsSuspended(now) {
		return nil, ErrSuspended
	}

	// 学习内容按原样保存，展示时再转义
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentRunes {
		return nil, ErrContentTooLong
	}
	if err := points.ValidateHours(req.Hours); err != nil {
		return nil, err
	}
	images, err := s.validateImages(req.Images)
	if err != nil {
		return nil, err
	}
	nickname, err := s.plainText(req.DisplayName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	st, err := s.store.Load(ctx, req.OwnerID)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	record := points.CheckInRecord{
		ID:            s.ids.New(),
		Date:          points.FormatDate(now),
		Content:       content,
		Images:        images,
		StudyHours:    req.Hours,
		Points:        s.rules.CalculatePoints(req.Hours),
		OwnerID:       req.OwnerID,
		DisplayName:   firstNonEmpty(nickname, st.Profile.Name),
		Avatar:        firstNonEmpty(strings.TrimSpace(req.Avatar), st.Profile.Avatar),
		SchemaVersion: points.RecordSchemaVersion,
	}
	st.Records = append(st.Records, record)
	err = s.store.Save(ctx, req.OwnerID, st)
	s.mu.Unlock()
	if err != nil {
		common.Sugar.Errorw("save check-in failed", "openid", req.OwnerID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	s.invalidateLeaderboard(ctx)
	common.Sugar.Infow("check-in saved", "openid", req.OwnerID, "date", record.Date, "hours", record.StudyHours, "points", record.Points)

	return &CheckInResult{
		Record:        record,
		Encouragement: s.encourager.Encourage(ctx, record.Content, record.StudyHours),
		Stats:         s.rules.Aggregate(st.Records, now),
	}, nil
}

func (s *Service) load(ctx context.Context, owner string) (*db.State, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, ErrOwnerRequired
	}
	st, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return st, nil
}

// Records 打卡历史，最新的在前
func (s *Service) Records(ctx context.Context, owner string) ([]points.CheckInRecord, error) {
	st, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return newestFirst(st.Records), nil
}

// Stats 统计汇总，每次从全部记录重新计算
func (s *Service) Stats(ctx context.Context, owner string) (points.UserStats, error) {
	st, err := s.load(ctx, owner)
	if err != nil {
		return points.UserStats{}, err
	}
	return s.rules.Aggregate(st.Records, s.now()), nil
}

// Weekly 本周进度
func (s *Service) Weekly(ctx context.Context, owner string) ([]points.DayProgress, error) {
	st, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return points.WeeklyProgress(st.Records, points.DateOf(s.now())), nil
}

// Profile 个人资料
func (s *Service) Profile(ctx context.Context, owner string) (db.Profile, error) {
	st, err := s.load(ctx, owner)
	if err != nil {
		return db.Profile{}, err
	}
	return st.Profile, nil
}

// UpdateProfile 更新个人资料
func (s *Service) UpdateProfile(ctx context.Context, owner string, p db.Profile) (db.Profile, error) {
	for _, field := range []*string{&p.Name, &p.School, &p.Grade} {
		v, err := s.plainText(*field)
		if err != nil || utf8.RuneCountInString(v) > MaxProfileRunes {
			return db.Profile{}, ErrInvalidProfile
		}
		*field = v
	}
	p.Avatar = strings.TrimSpace(p.Avatar)
	if p.Avatar != "" {
		if _, err := s.validateImages([]string{p.Avatar}); err != nil {
			return db.Profile{}, ErrInvalidProfile
		}
	}
	p.SchemaVersion = db.ProfileSchemaVersion

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load(ctx, owner)
	if err != nil {
		return db.Profile{}, err
	}
	st.Profile = p
	if err := s.store.Save(ctx, owner, st); err != nil {
		return db.Profile{}, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	s.invalidateLeaderboard(ctx)
	return p, nil
}

// Leaderboard 排行榜，按天缓存
func (s *Service) Leaderboard(ctx context.Context, self string, limit int) (*Leaderboard, error) {
	ranked, err := s.rankAll(ctx)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit, DefaultRankSize)

	board := &Leaderboard{Rank: []points.RankEntry{}}
	for i := range ranked {
		entry := ranked[i]
		entry.IsSelf = self != "" && entry.OwnerID == self
		if entry.IsSelf {
			me := entry
			board.Self = &me
		}
		if i < limit {
			board.Rank = append(board.Rank, entry)
		}
	}
	return board, nil
}

// RefreshLeaderboard 重新计算并写入缓存
func (s *Service) RefreshLeaderboard(ctx context.Context) ([]points.RankEntry, error) {
	s.invalidateLeaderboard(ctx)
	return s.rankAll(ctx)
}

func (s *Service) invalidateLeaderboard(ctx context.Context) {
	s.rankGen.Add(1)
	s.leaderboard.Invalidate(ctx)
}

func (s *Service) rankAll(ctx context.Context) ([]points.RankEntry, error) {
	now := s.now()
	day := points.FormatDate(now)
	if cached, ok := s.leaderboard.Get(ctx, day); ok {
		return cached, nil
	}
	gen := s.rankGen.Load()

	owners, err := s.store.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	entries := make([]points.RankEntry, 0, len(owners))
	for _, owner := range owners {
		st, err := s.store.Load(ctx, owner)
		if err != nil {
			common.Sugar.Warnw("skip owner in leaderboard", "openid", owner, "err", err)
			continue
		}
		if len(st.Records) == 0 {
			continue
		}
		stats := s.rules.Aggregate(st.Records, now)
		entries = append(entries, points.RankEntry{
			OwnerID:      owner,
			DisplayName:  displayName(owner, st),
			Avatar:       firstNonEmpty(st.Profile.Avatar, st.Records[len(st.Records)-1].Avatar),
			TotalPoints:  stats.TotalPoints,
			Streak:       stats.Streak,
			CheckInCount: stats.CheckInCount,
		})
	}
	ranked := points.Rank(entries, "")
	s.leaderboard.Set(ctx, day, ranked)
	// 计算期间有新的打卡或资料修改，刚写入的排名已过期
	if s.rankGen.Load() != gen {
		s.leaderboard.Invalidate(ctx)
	}
	return ranked, nil
}

// Square 广场：所有人最新的打卡
func (s *Service) Square(ctx context.Context, limit int) ([]points.CheckInRecord, error) {
	owners, err := s.store.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	var feed []points.CheckInRecord
	for _, owner := range owners {
		st, err := s.store.Load(ctx, owner)
		if err != nil {
			common.Sugar.Warnw("skip owner in square", "openid", owner, "err", err)
			continue
		}
		name := displayName(owner, st)
		for _, r := range st.Records {
			if r.DisplayName == "" {
				r.DisplayName = name
			}
			if r.Avatar == "" {
				r.Avatar = st.Profile.Avatar
			}
			feed = append(feed, r)
		}
	}
	feed = newestFirst(feed)
	limit = clampLimit(limit, 20)
	if len(feed) > limit {
		feed = feed[:limit]
	}
	if feed == nil {
		feed = []points.CheckInRecord{}
	}
	return feed, nil
}

// DailyEncouragement 首页每日鼓励
func (s *Service) DailyEncouragement(ctx context.Context) string {
	return s.encourager.Encourage(ctx, common.DailyTopic, 0)
}

// PendingOwners 今天还没有打卡的客户端
func (s *Service) PendingOwners(ctx context.Context) ([]string, error) {
	owners, err := s.store.Owners(ctx)
	if err != nil {
		return nil, err
	}
	today := points.FormatDate(s.now())
	var pending []string
	for _, owner := range owners {
		st, err := s.store.Load(ctx, owner)
		if err != nil {
			common.Sugar.Warnw("skip owner in reminder", "openid", owner, "err", err)
			continue
		}
		done := false
		for _, r := range st.Records {
			if r.Date == today {
				done = true
				break
			}
		}
		if !done {
			pending = append(pending, owner)
		}
	}
	return pending, nil
}

// MigrateAll 把每个客户端的旧版本数据升级后写回，返回写回的客户端数
func (s *Service) MigrateAll(ctx context.Context) (int, error) {
	owners, err := s.store.Owners(ctx)
	if err != nil {
		return 0, err
	}
	migrated := 0
	for _, owner := range owners {
		s.mu.Lock()
		changed, err := s.store.Migrate(ctx, owner)
		s.mu.Unlock()
		if err != nil {
			return migrated, fmt.Errorf("migrate %s: %w", owner, err)
		}
		if changed {
			migrated++
		}
	}
	return migrated, nil
}

// newestFirst 日期倒序，同一天后提交的在前
func newestFirst(records []points.CheckInRecord) []points.CheckInRecord {
	out := make([]points.CheckInRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func displayName(owner string, st *db.State) string {
	if st.Profile.Name != "" {
		return st.Profile.Name
	}
	for i := len(st.Records) - 1; i >= 0; i-- {
		if st.Records[i].DisplayName != "" {
			return st.Records[i].DisplayName
		}
	}
	suffix := owner
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "同学" + suffix
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxListSize {
		return MaxListSize
	}
	return limit
}
