package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salesbrain-ai/salesbrain/pkg/analysis"
	"github.com/salesbrain-ai/salesbrain/pkg/core"
	"github.com/salesbrain-ai/salesbrain/pkg/mentor"
)

// Canned UI strings. The UI never shows raw upstream error text except for
// analysis failures, which surface their message inline.
const (
	partnerWelcome = "嫂夫人好，我是 Neo。今天在外面跑业务辛苦了，请问我有什么可以帮您，随时为您效劳。"
	askOffline     = "伙伴 Neo 掉线了，稍后再试。"
	historyWelcome = "这是之前的案例，有什么新动态吗？"
	defaultPreview = "案例分析"

	liveIDPrefix = "live-"
)

// Analyzer produces a structured result from a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, text, imageData string) (*analysis.Result, error)
}

// Asker answers follow-up questions.
type Asker interface {
	Ask(ctx context.Context, question string, history []mentor.ChatMessage, caseResult *analysis.Result) (string, error)
}

// ErrSuperseded is returned to a caller whose in-flight request was replaced
// by a newer one on the same lane. The newer request wins; the superseded
// result is discarded, never appended.
var ErrSuperseded = errors.New("request superseded by a newer one")

// laneFlight tracks the in-flight request of one chat lane for
// cancel-and-replace supersession.
type laneFlight struct {
	gen    uint64
	cancel context.CancelFunc
}

// begin cancels any outstanding request and registers a new generation.
func (f *laneFlight) begin(ctx context.Context) (context.Context, uint64) {
	if f.cancel != nil {
		f.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.gen++
	return fctx, f.gen
}

// current reports whether gen is still the latest request.
func (f *laneFlight) current(gen uint64) bool {
	return f.gen == gen
}

// Controller owns the application state and serializes every mutation.
type Controller struct {
	analyzer   Analyzer
	asker      Asker
	store      Store
	passphrase string

	mu      sync.Mutex
	state   State
	analyze laneFlight
	asks    map[Lane]*laneFlight
}

// NewController loads persisted state (unlock flag, history) and returns a
// ready controller. A corrupt history blob is dropped, not fatal.
func NewController(analyzer Analyzer, asker Asker, store Store, passphrase string) *Controller {
	c := &Controller{
		analyzer:   analyzer,
		asker:      asker,
		store:      store,
		passphrase: passphrase,
		state: State{
			Loading: LoadingIdle,
			PartnerMessages: []mentor.ChatMessage{{
				ID:      "partner-welcome",
				Role:    mentor.RoleNeo,
				Content: partnerWelcome,
			}},
		},
		asks: map[Lane]*laneFlight{
			LaneCombat:  {},
			LanePartner: {},
		},
	}

	if v, ok, err := store.Get(KeyUnlocked); err == nil && ok && v == "true" {
		c.state.Authenticated = true
	}
	if raw, ok, err := store.Get(KeyHistory); err == nil && ok {
		var history []HistoryItem
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			slog.Warn("dropping unreadable history blob", "error", err)
		} else {
			c.state.History = history
		}
	}
	return c
}

// Snapshot returns a copy of the current state for rendering.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.CombatMessages = append([]mentor.ChatMessage(nil), c.state.CombatMessages...)
	s.PartnerMessages = append([]mentor.ChatMessage(nil), c.state.PartnerMessages...)
	s.History = append([]HistoryItem(nil), c.state.History...)
	return s
}

// Login compares the passphrase by exact string equality and persists the
// unlock flag on success. A soft gate, not a security boundary.
func (c *Controller) Login(passphrase string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if passphrase != c.passphrase {
		return false
	}
	c.state.Authenticated = true
	if err := c.store.Set(KeyUnlocked, "true"); err != nil {
		slog.Warn("persist unlock flag failed", "error", err)
	}
	return true
}

// Logout clears the unlock flag.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Authenticated = false
	if err := c.store.Delete(KeyUnlocked); err != nil {
		slog.Warn("clear unlock flag failed", "error", err)
	}
}

// Authenticated reports the unlock state.
func (c *Controller) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Authenticated
}

// Analyze runs one structured analysis. A new call cancels and replaces an
// outstanding one (newest wins). On success the result becomes active, a
// combat welcome seeds the lane and a history entry is persisted. On failure
// the prior result stays on screen and the error surfaces inline.
func (c *Controller) Analyze(ctx context.Context, text, imageData string) (*analysis.Result, error) {
	if strings.TrimSpace(text) == "" && imageData == "" {
		return nil, core.NewInvalidInputError("请提供聊天文字或截图。")
	}

	c.mu.Lock()
	actx, gen := c.analyze.begin(ctx)
	c.state.Loading = LoadingAnalyzing
	c.state.ErrorMessage = ""
	c.mu.Unlock()

	result, err := c.analyzer.Analyze(actx, text, imageData)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.analyze.current(gen) {
		return nil, ErrSuperseded
	}

	if err != nil {
		c.state.Loading = LoadingError
		c.state.ErrorMessage = userMessage(err)
		return nil, err
	}

	c.state.Loading = LoadingSuccess
	c.state.Result = result
	c.state.CombatMessages = []mentor.ChatMessage{{
		ID:      "welcome",
		Role:    mentor.RoleNeo,
		Content: combatWelcome(result),
	}}
	c.saveToHistoryLocked(result, text)
	return result, nil
}

// Ask appends the question to the lane, asks the mentor and appends the
// answer. Per-lane cancel-and-replace: a rapid double-submit discards the
// older request's answer instead of duplicating or reordering appends.
func (c *Controller) Ask(ctx context.Context, lane Lane, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", core.NewInvalidInputError("问题不能为空。")
	}

	c.mu.Lock()
	flight, ok := c.asks[lane]
	if !ok {
		c.mu.Unlock()
		return "", core.NewInvalidInputError("unknown chat lane")
	}
	actx, gen := flight.begin(ctx)

	history := c.laneMessagesLocked(lane)
	var analysisCtx *analysis.Result
	if lane == LaneCombat {
		analysisCtx = c.state.Result
	}
	c.appendLocked(lane, mentor.ChatMessage{
		ID:      uuid.NewString(),
		Role:    mentor.RoleUser,
		Content: question,
	})
	c.state.AskNotice = ""
	c.mu.Unlock()

	answer, err := c.asker.Ask(actx, question, history, analysisCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !flight.current(gen) {
		return "", ErrSuperseded
	}

	if err != nil {
		// Chat history is kept; only a generic notice is shown.
		c.state.AskNotice = askOffline
		return "", err
	}

	c.appendLocked(lane, mentor.ChatMessage{
		ID:      uuid.NewString(),
		Role:    mentor.RoleNeo,
		Content: answer,
	})
	return answer, nil
}

// AppendLiveTranscript merges assistant transcript fragments into the
// partner lane. Fragments of one utterance concatenate onto the trailing
// live message; a new utterance starts a new message.
func (c *Controller) AppendLiveTranscript(text string, utteranceStart bool) {
	if text == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.state.PartnerMessages
	if !utteranceStart && len(msgs) > 0 {
		last := &msgs[len(msgs)-1]
		if last.Role == mentor.RoleNeo && strings.HasPrefix(last.ID, liveIDPrefix) {
			last.Content += text
			return
		}
	}
	c.state.PartnerMessages = append(msgs, mentor.ChatMessage{
		ID:      liveIDPrefix + uuid.NewString(),
		Role:    mentor.RoleNeo,
		Content: text,
	})
}

// SetVoiceActive records the live call state for rendering.
func (c *Controller) SetVoiceActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.VoiceActive = active
	if !active {
		c.state.Muted = false
	}
}

// SetMuted records the mute state for rendering.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Muted = muted
}

// History returns the archived analyses, most recent first.
func (c *Controller) History() []HistoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]HistoryItem(nil), c.state.History...)
}

// LoadHistoryItem re-activates an archived result and seeds the combat lane.
func (c *Controller) LoadHistoryItem(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.state.History {
		if item.ID == id {
			c.state.Result = item.Result
			c.state.Loading = LoadingSuccess
			c.state.ErrorMessage = ""
			c.state.CombatMessages = []mentor.ChatMessage{{
				ID:      "history-welcome",
				Role:    mentor.RoleNeo,
				Content: historyWelcome,
			}}
			return true
		}
	}
	return false
}

// DeleteHistoryItem removes exactly one entry, preserving the order of the
// rest, and persists the new list.
func (c *Controller) DeleteHistoryItem(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.state.History {
		if item.ID == id {
			c.state.History = append(c.state.History[:i], c.state.History[i+1:]...)
			c.persistHistoryLocked()
			return true
		}
	}
	return false
}

// ClearHistory wipes the archive.
func (c *Controller) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.History = nil
	if err := c.store.Delete(KeyHistory); err != nil {
		slog.Warn("clear history failed", "error", err)
	}
}

// Reset returns the loading state to Idle and dismisses the inline error.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = LoadingIdle
	c.state.ErrorMessage = ""
}

// saveToHistoryLocked prepends a new entry, trims to MaxHistory and
// persists. Trimming always happens before persistence.
func (c *Controller) saveToHistoryLocked(result *analysis.Result, text string) {
	item := HistoryItem{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Preview:   preview(text),
		Result:    result,
	}
	history := append([]HistoryItem{item}, c.state.History...)
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}
	c.state.History = history
	c.persistHistoryLocked()
}

func (c *Controller) persistHistoryLocked() {
	raw, err := json.Marshal(c.state.History)
	if err != nil {
		slog.Warn("marshal history failed", "error", err)
		return
	}
	if err := c.store.Set(KeyHistory, string(raw)); err != nil {
		slog.Warn("persist history failed", "error", err)
	}
}

func (c *Controller) laneMessagesLocked(lane Lane) []mentor.ChatMessage {
	switch lane {
	case LaneCombat:
		return append([]mentor.ChatMessage(nil), c.state.CombatMessages...)
	default:
		return append([]mentor.ChatMessage(nil), c.state.PartnerMessages...)
	}
}

func (c *Controller) appendLocked(lane Lane, msg mentor.ChatMessage) {
	if lane == LaneCombat {
		c.state.CombatMessages = append(c.state.CombatMessages, msg)
		return
	}
	c.state.PartnerMessages = append(c.state.PartnerMessages, msg)
}

// combatWelcome seeds the combat lane from a fresh analysis.
func combatWelcome(result *analysis.Result) string {
	deep := ""
	if len(result.Decoding) > 0 {
		deep = result.Decoding[0].Deep
	}
	return "分析完了。阻力：" + string(result.Trust.Resistance) + "，潜台词：" + deep + "。试试我的话术。"
}

// preview takes the first PreviewRunes runes of the input text; rune-counted
// because the input is Chinese.
func preview(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultPreview
	}
	runes := []rune(text)
	if len(runes) > PreviewRunes {
		runes = runes[:PreviewRunes]
	}
	return string(runes)
}

// userMessage picks the text shown inline for an analysis failure.
func userMessage(err error) string {
	var ce *core.Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return "分析失败"
}
