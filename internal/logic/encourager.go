package logic

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	langopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"winterstudy-backend/internal/common"
)

// EncourageProvider 调用大模型生成鼓励语
type EncourageProvider interface {
	Generate(ctx context.Context, content string, hours float64) (string, error)
}

// Encourager 对外永不返回错误：超时、报错、未配置凭证都使用兜底文案
type Encourager struct {
	provider EncourageProvider
	timeout  time.Duration
}

func NewEncourager(provider EncourageProvider, timeout time.Duration) *Encourager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Encourager{provider: provider, timeout: timeout}
}

// Encourage 生成鼓励语
func (e *Encourager) Encourage(ctx context.Context, content string, hours float64) string {
	if e == nil || e.provider == nil {
		return common.FallbackEncouragement
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.provider.Generate(ctx, content, hours)
	if err != nil {
		common.Sugar.Warnw("encouragement failed, using fallback", "err", err)
		return common.FallbackEncouragement
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return common.EmptyEncouragement
	}
	return text
}

// NewProvider 按配置选择模型提供方，未配置凭证时返回 nil
func NewProvider(cfg common.AIConfig) (EncourageProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.Token == "" {
			common.Sugar.Warn("ai token is empty, encouragement uses fallback text")
			return nil, nil
		}
		return newOpenAIProvider(cfg)
	case "hunyuan":
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			common.Sugar.Warn("tencentcloud secret is empty, encouragement uses fallback text")
			return nil, nil
		}
		return newHunyuanProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// EncouragePrompt 用户提示词
func EncouragePrompt(content string, hours float64) string {
	return fmt.Sprintf(common.EncourageFmt, strconv.FormatFloat(hours, 'f', -1, 64), content)
}

// openAIProvider OpenAI 兼容接口（默认混元的兼容地址）
type openAIProvider struct {
	llm         *langopenai.LLM
	temperature float64
	maxTokens   int
}

func newOpenAIProvider(cfg common.AIConfig) (*openAIProvider, error) {
	opts := []langopenai.Option{
		langopenai.WithToken(cfg.Token),
		langopenai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, langopenai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := langopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	return &openAIProvider{llm: llm, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
}

func (p *openAIProvider) Generate(ctx context.Context, content string, hours float64) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, common.RolePrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, EncouragePrompt(content, hours)),
	}
	opts := []llms.CallOption{llms.WithTemperature(p.temperature)}
	if p.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(p.maxTokens))
	}
	resp, err := p.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Content, nil
}
