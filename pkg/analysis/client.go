package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/salesbrain-ai/salesbrain/pkg/core"
	"github.com/salesbrain-ai/salesbrain/pkg/gemini"
)

const (
	// DefaultModel is the model used for structured analysis.
	DefaultModel = "gemini-2.5-flash"

	// textTemplate wraps the agent-submitted transcript.
	textTemplate = "分析这段聊天记录:\n%s"

	imageMIMEType = "image/jpeg"
)

// Client performs structured transcript analysis against the hosted model.
type Client struct {
	gemini *gemini.Client
	model  string
}

// NewClient creates an analysis client. model may be empty to use the default.
func NewClient(g *gemini.Client, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{gemini: g, model: model}
}

// Analyze sends the transcript text and/or screenshot to the hosted model and
// returns the validated structured result. At least one of text/imageData must
// be non-empty. imageData is base64, optionally a full data URL; the payload
// after the comma is used.
//
// No retry is performed here; the caller decides.
func (c *Client) Analyze(ctx context.Context, text, imageData string) (*Result, error) {
	var parts []gemini.Part

	if imageData != "" {
		parts = append(parts, gemini.Part{
			InlineData: &gemini.Blob{
				MIMEType: imageMIMEType,
				Data:     stripDataURL(imageData),
			},
		})
	}
	if text != "" {
		parts = append(parts, gemini.Part{Text: fmt.Sprintf(textTemplate, text)})
	}
	if len(parts) == 0 {
		return nil, core.NewInvalidInputError("请提供聊天文字或截图。")
	}

	req := &gemini.Request{
		Contents:          []gemini.Content{{Role: "user", Parts: parts}},
		SystemInstruction: gemini.SystemText(systemInstruction),
		GenerationConfig: &gemini.GenConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   json.RawMessage(responseSchema),
		},
		SafetySettings: gemini.RelaxedSafetySettings(),
	}

	resp, err := c.gemini.GenerateContent(ctx, c.model, req)
	if err != nil {
		var ce *core.Error
		if errors.As(err, &ce) && ce.Message != "" {
			return nil, core.NewAnalysisRequestError(ce.Message)
		}
		return nil, core.NewAnalysisRequestError(err.Error())
	}

	raw := resp.Text()
	if raw == "" {
		return nil, core.NewAnalysisRequestError("未能生成分析结果。")
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, core.NewAnalysisParseError("分析结果格式错误。", err)
	}
	if err := result.Validate(); err != nil {
		return nil, core.NewAnalysisParseError("分析结果不符合约定结构。", err)
	}
	return &result, nil
}

// stripDataURL drops a "data:image/...;base64," prefix when present.
func stripDataURL(data string) string {
	if idx := strings.Index(data, ","); idx != -1 {
		return data[idx+1:]
	}
	return data
}
