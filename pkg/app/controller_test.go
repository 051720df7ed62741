package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/salesbrain-ai/salesbrain/pkg/analysis"
	"github.com/salesbrain-ai/salesbrain/pkg/core"
	"github.com/salesbrain-ai/salesbrain/pkg/mentor"
)

// memStore is an in-memory Store.
type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeAnalyzer struct {
	fn func(ctx context.Context, text, imageData string) (*analysis.Result, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text, imageData string) (*analysis.Result, error) {
	return f.fn(ctx, text, imageData)
}

type fakeAsker struct {
	fn func(ctx context.Context, question string, history []mentor.ChatMessage, caseResult *analysis.Result) (string, error)
}

func (f *fakeAsker) Ask(ctx context.Context, question string, history []mentor.ChatMessage, caseResult *analysis.Result) (string, error) {
	return f.fn(ctx, question, history, caseResult)
}

func sampleResult(score int) *analysis.Result {
	return &analysis.Result{
		Trust: analysis.TrustMetrics{Score: score, Probability: analysis.ProbabilityMedium, Resistance: analysis.ResistanceYellow},
		Decoding: []analysis.DecodingItem{
			{Surface: "太贵了", Deep: "担心流动性风险"},
		},
		Emotions: analysis.Emotions{Start: "好奇", Middle: "犹豫", End: "退缩", TurningPoint: "报价"},
		Advice:   analysis.Advice{Script: "姐，我懂您的顾虑……", Materials: "理赔年报", Timing: "明早10点"},
	}
}

func newTestController(analyzer Analyzer, asker Asker) (*Controller, *memStore) {
	store := newMemStore()
	if analyzer == nil {
		analyzer = &fakeAnalyzer{fn: func(ctx context.Context, text, imageData string) (*analysis.Result, error) {
			return sampleResult(50), nil
		}}
	}
	if asker == nil {
		asker = &fakeAsker{fn: func(ctx context.Context, q string, h []mentor.ChatMessage, r *analysis.Result) (string, error) {
			return "答复", nil
		}}
	}
	return NewController(analyzer, asker, store, "xiuxiu"), store
}

func TestLogin(t *testing.T) {
	c, store := newTestController(nil, nil)

	if c.Authenticated() {
		t.Fatal("fresh controller should be locked")
	}
	if c.Login("wrong") {
		t.Fatal("wrong passphrase accepted")
	}
	if !c.Login("xiuxiu") {
		t.Fatal("correct passphrase rejected")
	}
	if v, ok, _ := store.Get(KeyUnlocked); !ok || v != "true" {
		t.Fatalf("unlock flag = %q %v, want persisted true", v, ok)
	}

	// A new controller on the same store resumes unlocked.
	c2 := NewController(&fakeAnalyzer{fn: nil}, &fakeAsker{fn: nil}, store, "xiuxiu")
	if !c2.Authenticated() {
		t.Fatal("unlock flag not honored on load")
	}

	c.Logout()
	if c.Authenticated() {
		t.Fatal("still unlocked after logout")
	}
	if _, ok, _ := store.Get(KeyUnlocked); ok {
		t.Fatal("unlock flag not cleared")
	}
}

func TestAnalyze_SuccessSeedsCombatAndHistory(t *testing.T) {
	c, store := newTestController(nil, nil)

	result, err := c.Analyze(context.Background(), "客户说太贵了", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Trust.Score != 50 {
		t.Fatalf("score = %d", result.Trust.Score)
	}

	state := c.Snapshot()
	if state.Loading != LoadingSuccess {
		t.Fatalf("loading = %q", state.Loading)
	}
	if state.Result == nil {
		t.Fatal("result not active")
	}
	if len(state.CombatMessages) != 1 || state.CombatMessages[0].Role != mentor.RoleNeo {
		t.Fatalf("combat lane = %+v", state.CombatMessages)
	}
	welcome := state.CombatMessages[0].Content
	for _, want := range []string{"Yellow", "担心流动性风险"} {
		if !strings.Contains(welcome, want) {
			t.Fatalf("welcome %q missing %q", welcome, want)
		}
	}

	if len(state.History) != 1 {
		t.Fatalf("history = %d, want 1", len(state.History))
	}
	if state.History[0].Preview != "客户说太贵了" {
		t.Fatalf("preview = %q", state.History[0].Preview)
	}

	raw, ok, _ := store.Get(KeyHistory)
	if !ok {
		t.Fatal("history not persisted")
	}
	var persisted []HistoryItem
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil || len(persisted) != 1 {
		t.Fatalf("persisted history = %q, err %v", raw, err)
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	called := false
	analyzer := &fakeAnalyzer{fn: func(ctx context.Context, text, imageData string) (*analysis.Result, error) {
		called = true
		return nil, nil
	}}
	c, _ := newTestController(analyzer, nil)

	_, err := c.Analyze(context.Background(), "   ", "")
	if !core.IsType(err, core.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid_input", err)
	}
	if called {
		t.Fatal("analyzer called on empty input")
	}
}

func TestAnalyze_ErrorKeepsPriorResult(t *testing.T) {
	fail := false
	analyzer := &fakeAnalyzer{fn: func(ctx context.Context, text, imageData string) (*analysis.Result, error) {
		if fail {
			return nil, core.NewAnalysisRequestError("上游失败")
		}
		return sampleResult(80), nil
	}}
	c, _ := newTestController(analyzer, nil)

	if _, err := c.Analyze(context.Background(), "第一次", ""); err != nil {
		t.Fatalf("first Analyze: %v", err)
	}

	fail = true
	if _, err := c.Analyze(context.Background(), "第二次", ""); err == nil {
		t.Fatal("second Analyze should fail")
	}

	state := c.Snapshot()
	if state.Loading != LoadingError {
		t.Fatalf("loading = %q", state.Loading)
	}
	if state.ErrorMessage != "上游失败" {
		t.Fatalf("error message = %q", state.ErrorMessage)
	}
	if state.Result == nil || state.Result.Trust.Score != 80 {
		t.Fatal("prior result discarded on failure")
	}
	if len(state.History) != 1 {
		t.Fatalf("history = %d, failed analysis must not be archived", len(state.History))
	}
}

func TestAnalyze_SupersededCallDoesNotCommit(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	analyzer := &fakeAnalyzer{fn: func(ctx context.Context, text, imageData string) (*analysis.Result, error) {
		started <- struct{}{}
		if text == "慢" {
			<-release
			return sampleResult(10), nil
		}
		return sampleResult(90), nil
	}}
	c, _ := newTestController(analyzer, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Analyze(context.Background(), "慢", "")
		done <- err
	}()
	<-started

	if _, err := c.Analyze(context.Background(), "快", ""); err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale call err = %v, want superseded", err)
	}

	state := c.Snapshot()
	if state.Result.Trust.Score != 90 {
		t.Fatalf("active score = %d, stale result must not win", state.Result.Trust.Score)
	}
	if len(state.History) != 1 {
		t.Fatalf("history = %d, want 1 (stale result not archived)", len(state.History))
	}
}

func TestHistory_TrimTo20(t *testing.T) {
	c, _ := newTestController(nil, nil)

	for i := 0; i < 25; i++ {
		if _, err := c.Analyze(context.Background(), fmt.Sprintf("案例 %d", i), ""); err != nil {
			t.Fatalf("Analyze %d: %v", i, err)
		}
	}

	history := c.History()
	if len(history) != MaxHistory {
		t.Fatalf("history = %d, want %d", len(history), MaxHistory)
	}
	// Most recent first: entry 0 is case 24, last kept entry is case 5.
	if history[0].Preview != "案例 24" {
		t.Fatalf("newest = %q", history[0].Preview)
	}
	if history[MaxHistory-1].Preview != "案例 5" {
		t.Fatalf("oldest kept = %q", history[MaxHistory-1].Preview)
	}
}

func TestHistory_DeletePreservesOrder(t *testing.T) {
	c, _ := newTestController(nil, nil)
	for i := 0; i < 3; i++ {
		if _, err := c.Analyze(context.Background(), fmt.Sprintf("案例 %d", i), ""); err != nil {
			t.Fatalf("Analyze: %v", err)
		}
	}

	history := c.History() // [案例2, 案例1, 案例0]
	if !c.DeleteHistoryItem(history[1].ID) {
		t.Fatal("delete failed")
	}
	if c.DeleteHistoryItem("no-such-id") {
		t.Fatal("delete of unknown id reported success")
	}

	got := c.History()
	if len(got) != 2 || got[0].Preview != "案例 2" || got[1].Preview != "案例 0" {
		t.Fatalf("history after delete = %+v", got)
	}
}

func TestHistory_LoadReactivates(t *testing.T) {
	c, _ := newTestController(nil, nil)
	if _, err := c.Analyze(context.Background(), "旧案例", ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	id := c.History()[0].ID

	c.Reset()
	if !c.LoadHistoryItem(id) {
		t.Fatal("load failed")
	}

	state := c.Snapshot()
	if state.Loading != LoadingSuccess || state.Result == nil {
		t.Fatalf("state = %q result=%v", state.Loading, state.Result)
	}
	if len(state.CombatMessages) != 1 || state.CombatMessages[0].Content != historyWelcome {
		t.Fatalf("combat lane = %+v", state.CombatMessages)
	}
}

func TestHistory_CorruptBlobDropped(t *testing.T) {
	store := newMemStore()
	_ = store.Set(KeyHistory, "{not json")
	c := NewController(&fakeAnalyzer{fn: nil}, &fakeAsker{fn: nil}, store, "xiuxiu")
	if len(c.History()) != 0 {
		t.Fatal("corrupt history should load as empty")
	}
}

func TestAsk_AppendsBothTurns(t *testing.T) {
	var gotHistory []mentor.ChatMessage
	var gotResult *analysis.Result
	asker := &fakeAsker{fn: func(ctx context.Context, q string, h []mentor.ChatMessage, r *analysis.Result) (string, error) {
		gotHistory = h
		gotResult = r
		return "用3F法回应。", nil
	}}
	c, _ := newTestController(nil, asker)
	if _, err := c.Analyze(context.Background(), "客户说太贵了", ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	answer, err := c.Ask(context.Background(), LaneCombat, "怎么回？")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "用3F法回应。" {
		t.Fatalf("answer = %q", answer)
	}
	if gotResult == nil {
		t.Fatal("combat lane should pass the active analysis")
	}
	// The history snapshot passed upstream excludes the new question.
	if len(gotHistory) != 1 {
		t.Fatalf("history len = %d, want 1 (welcome only)", len(gotHistory))
	}

	state := c.Snapshot()
	if len(state.CombatMessages) != 3 {
		t.Fatalf("combat messages = %d, want welcome+question+answer", len(state.CombatMessages))
	}
	if state.CombatMessages[1].Role != mentor.RoleUser || state.CombatMessages[2].Role != mentor.RoleNeo {
		t.Fatalf("roles = %q %q", state.CombatMessages[1].Role, state.CombatMessages[2].Role)
	}
}

func TestAsk_PartnerLaneHasNoAnalysisContext(t *testing.T) {
	var gotResult *analysis.Result
	asker := &fakeAsker{fn: func(ctx context.Context, q string, h []mentor.ChatMessage, r *analysis.Result) (string, error) {
		gotResult = r
		return "答", nil
	}}
	c, _ := newTestController(nil, asker)
	if _, err := c.Analyze(context.Background(), "某案例", ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if _, err := c.Ask(context.Background(), LanePartner, "今天跑哪个小区？"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if gotResult != nil {
		t.Fatal("partner lane must not carry the analysis")
	}
}

func TestAsk_ErrorKeepsHistoryAndSetsNotice(t *testing.T) {
	asker := &fakeAsker{fn: func(ctx context.Context, q string, h []mentor.ChatMessage, r *analysis.Result) (string, error) {
		return "", core.NewAskRequestError("上游失败")
	}}
	c, _ := newTestController(nil, asker)

	if _, err := c.Ask(context.Background(), LanePartner, "在吗"); err == nil {
		t.Fatal("Ask should fail")
	}

	state := c.Snapshot()
	if state.AskNotice != askOffline {
		t.Fatalf("notice = %q", state.AskNotice)
	}
	// Welcome + the user's question survive the failure.
	if len(state.PartnerMessages) != 2 {
		t.Fatalf("partner messages = %d, want 2", len(state.PartnerMessages))
	}
	if state.PartnerMessages[1].Content != "在吗" {
		t.Fatalf("question lost: %+v", state.PartnerMessages)
	}
}

func TestAsk_DoubleSubmitDiscardsStaleAnswer(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	asker := &fakeAsker{fn: func(ctx context.Context, q string, h []mentor.ChatMessage, r *analysis.Result) (string, error) {
		started <- struct{}{}
		if q == "慢问题" {
			<-release
			return "迟到的答案", nil
		}
		return "快答案", nil
	}}
	c, _ := newTestController(nil, asker)

	done := make(chan error, 1)
	go func() {
		_, err := c.Ask(context.Background(), LanePartner, "慢问题")
		done <- err
	}()
	<-started

	if _, err := c.Ask(context.Background(), LanePartner, "快问题"); err != nil {
		t.Fatalf("second Ask: %v", err)
	}
	close(release)
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale Ask err = %v, want superseded", err)
	}

	for _, msg := range c.Snapshot().PartnerMessages {
		if msg.Content == "迟到的答案" {
			t.Fatal("stale answer appended")
		}
	}
}

func TestAppendLiveTranscript_Coalesces(t *testing.T) {
	c, _ := newTestController(nil, nil)

	c.AppendLiveTranscript("今天", true)
	c.AppendLiveTranscript("辛苦了", false)
	c.AppendLiveTranscript("新的一句", true)

	msgs := c.Snapshot().PartnerMessages
	// Welcome + two live messages.
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if msgs[1].Content != "今天辛苦了" {
		t.Fatalf("coalesced = %q", msgs[1].Content)
	}
	if msgs[2].Content != "新的一句" {
		t.Fatalf("new utterance = %q", msgs[2].Content)
	}
	for _, m := range msgs[1:] {
		if !strings.HasPrefix(m.ID, liveIDPrefix) {
			t.Fatalf("live message id = %q", m.ID)
		}
		if m.Role != mentor.RoleNeo {
			t.Fatalf("live message role = %q", m.Role)
		}
	}
}

func TestAppendLiveTranscript_DoesNotMergeIntoTypedMessage(t *testing.T) {
	c, _ := newTestController(nil, nil)
	if _, err := c.Ask(context.Background(), LanePartner, "问题"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	// Continuation arrives but the trailing message is a typed reply, not a
	// live one; a fresh live message is started.
	c.AppendLiveTranscript("语音内容", false)

	msgs := c.Snapshot().PartnerMessages
	last := msgs[len(msgs)-1]
	if last.Content != "语音内容" || !strings.HasPrefix(last.ID, liveIDPrefix) {
		t.Fatalf("last = %+v, want separate live message", last)
	}
}

func TestPreviewRuneCount(t *testing.T) {
	long := strings.Repeat("客", 40)
	if got := preview(long); len([]rune(got)) != PreviewRunes {
		t.Fatalf("preview runes = %d, want %d", len([]rune(got)), PreviewRunes)
	}
	if got := preview("短"); got != "短" {
		t.Fatalf("short preview = %q", got)
	}
	if got := preview("  "); got != defaultPreview {
		t.Fatalf("blank preview = %q", got)
	}
}

func TestEndToEnd_ExpensiveObjectionFlow(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(ctx context.Context, text, imageData string) (*analysis.Result, error) {
		if !strings.Contains(text, "太贵了") {
			return nil, core.NewInvalidInputError("unexpected transcript")
		}
		return sampleResult(55), nil
	}}
	asker := &fakeAsker{fn: func(ctx context.Context, q string, h []mentor.ChatMessage, r *analysis.Result) (string, error) {
		if r == nil {
			return "", core.NewAskRequestError("missing case context")
		}
		return "姐，您说贵，其实是在担心钱取不出来，对吧？", nil
	}}
	c, _ := newTestController(analyzer, asker)

	if !c.Login("xiuxiu") {
		t.Fatal("login failed")
	}
	result, err := c.Analyze(context.Background(), "客户：太贵了，我再想想。", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Decoding[0].Deep != "担心流动性风险" {
		t.Fatalf("deep = %q", result.Decoding[0].Deep)
	}

	answer, err := c.Ask(context.Background(), LaneCombat, "那我现在怎么回她？")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(answer, "担心钱取不出来") {
		t.Fatalf("answer = %q", answer)
	}

	if len(c.History()) != 1 {
		t.Fatalf("history = %d, want 1", len(c.History()))
	}
}
