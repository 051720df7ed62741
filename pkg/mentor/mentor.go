// Package mentor implements the free-form follow-up chat with the Neo
// persona. Two independent lanes share this client: the per-analysis combat
// chat and the general mentoring partner chat.
package mentor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/salesbrain-ai/salesbrain/pkg/analysis"
	"github.com/salesbrain-ai/salesbrain/pkg/core"
	"github.com/salesbrain-ai/salesbrain/pkg/gemini"
)

const (
	// DefaultModel is the model used for follow-up chat.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTemperature keeps answers creative rather than deterministic.
	// Output is not reproducible byte-for-byte across calls with identical
	// input.
	DefaultTemperature = 0.8

	// OverloadFallback is returned instead of an error when the upstream
	// reports transient overload. This is the only place an error is
	// deliberately converted into a successful-looking result.
	OverloadFallback = "师父现在咨询的人太多了，稍等片刻再问我。"

	registerDirective = "保持师父带徒弟的口吻，直接、犀利、可执行。"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleNeo  Role = "neo"
)

// ChatMessage is one turn in a chat lane.
type ChatMessage struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client asks the hosted model follow-up questions.
type Client struct {
	gemini *gemini.Client
	model  string
}

// NewClient creates a mentor client. model may be empty to use the default.
func NewClient(g *gemini.Client, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{gemini: g, model: model}
}

// Ask sends the question with the running history and optional analysis
// context, returning the assistant's free-text answer.
//
// When the upstream error indicates transient overload the canned
// OverloadFallback string is returned with a nil error; every other failure
// propagates as an ask_request_error.
func (c *Client) Ask(ctx context.Context, question string, history []ChatMessage, caseResult *analysis.Result) (string, error) {
	contents := make([]gemini.Content, 0, len(history)+1)
	for _, msg := range history {
		role := "user"
		if msg.Role == RoleNeo {
			role = "model"
		}
		contents = append(contents, gemini.Content{
			Role:  role,
			Parts: []gemini.Part{{Text: msg.Content}},
		})
	}
	contents = append(contents, gemini.UserText(buildPreamble(caseResult)+question))

	temp := DefaultTemperature
	req := &gemini.Request{
		Contents:          contents,
		SystemInstruction: gemini.SystemText(analysis.SystemInstruction() + "\n" + registerDirective),
		GenerationConfig:  &gemini.GenConfig{Temperature: &temp},
		SafetySettings:    gemini.RelaxedSafetySettings(),
	}

	resp, err := c.gemini.GenerateContent(ctx, c.model, req)
	if err != nil {
		if isOverloaded(err) {
			return OverloadFallback, nil
		}
		var ce *core.Error
		if errors.As(err, &ce) && ce.Message != "" {
			return "", core.NewAskRequestError(ce.Message)
		}
		return "", core.NewAskRequestError(err.Error())
	}

	answer := resp.Text()
	if answer == "" {
		return "", core.NewAskRequestError("未能生成回复。")
	}
	return answer, nil
}

// buildPreamble summarizes the active analysis when present, else falls back
// to the generic mentoring preamble.
func buildPreamble(result *analysis.Result) string {
	if result == nil {
		return "作为展业伙伴，回答代理人的问题。\n问题："
	}

	deeps := make([]string, 0, len(result.Decoding))
	for _, d := range result.Decoding {
		deeps = append(deeps, d.Deep)
	}
	return fmt.Sprintf(
		"当前案例背景：信任分 %d，成交概率 %s，客户潜台词：%s。已给出的金牌话术：%s。\n基于这个案例回答代理人的追问。\n问题：",
		result.Trust.Score,
		result.Trust.Probability,
		strings.Join(deeps, "；"),
		result.Advice.Script,
	)
}

// isOverloaded matches both the typed overloaded error from the transport and
// raw upstream text mentioning overload.
func isOverloaded(err error) bool {
	if core.IsType(err, core.ErrOverloaded) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "overloaded")
}
