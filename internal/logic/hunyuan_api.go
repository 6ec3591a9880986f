package logic

import (
	"context"
	"errors"
	"fmt"

	tccommon "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	v20230901 "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/hunyuan/v20230901"

	"winterstudy-backend/internal/common"
)

// hunyuanProvider 使用腾讯云官方Go SDK（非流式）
type hunyuanProvider struct {
	client      *v20230901.Client
	model       string
	temperature float64
}

func newHunyuanProvider(cfg common.AIConfig) (*hunyuanProvider, error) {
	credential := tccommon.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = cfg.Endpoint
	if cpf.HttpProfile.Endpoint == "" {
		cpf.HttpProfile.Endpoint = common.HunyuanEndpoint
	}
	client, err := v20230901.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("init hunyuan client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = common.HunyuanModel
	}
	return &hunyuanProvider{client: client, model: model, temperature: cfg.Temperature}, nil
}

func (p *hunyuanProvider) Generate(ctx context.Context, content string, hours float64) (string, error) {
	req := v20230901.NewChatCompletionsRequest()
	req.Model = tccommon.StringPtr(p.model)
	req.Messages = []*v20230901.Message{
		{Role: tccommon.StringPtr("system"), Content: tccommon.StringPtr(common.RolePrompt)},
		{Role: tccommon.StringPtr("user"), Content: tccommon.StringPtr(EncouragePrompt(content, hours))},
	}
	req.Stream = tccommon.BoolPtr(false)
	req.Temperature = tccommon.Float64Ptr(p.temperature)

	resp, err := p.client.ChatCompletionsWithContext(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Response == nil {
		return "", errors.New("empty hunyuan response")
	}
	for _, choice := range resp.Response.Choices {
		if choice.Message != nil && choice.Message.Content != nil {
			return *choice.Message.Content, nil
		}
	}
	return "", errors.New("hunyuan response has no content")
}
