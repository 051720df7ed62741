// Package app holds the application state machine and wires user actions to
// the analysis, mentor and live-session clients. One controller owns all
// state; every mutation goes through its methods.
package app

import (
	"github.com/salesbrain-ai/salesbrain/pkg/analysis"
	"github.com/salesbrain-ai/salesbrain/pkg/mentor"
)

// LoadingState tracks one analysis invocation. Strictly sequential:
// Idle → Analyzing → (Success | Error) → Idle on reset/clear.
type LoadingState string

const (
	LoadingIdle      LoadingState = "IDLE"
	LoadingAnalyzing LoadingState = "ANALYZING"
	LoadingSuccess   LoadingState = "SUCCESS"
	LoadingError     LoadingState = "ERROR"
)

// Lane selects one of the two independent chat threads.
type Lane string

const (
	// LaneCombat is the chat thread scoped to one analysis result.
	LaneCombat Lane = "COMBAT"
	// LanePartner is the general mentoring thread.
	LanePartner Lane = "PARTNER"
)

// HistoryItem is one archived analysis. Immutable once created; the list
// only ever sees whole-list replace or delete-by-id.
type HistoryItem struct {
	ID        string           `json:"id"`
	Timestamp int64            `json:"timestamp"`
	Preview   string           `json:"preview"`
	Result    *analysis.Result `json:"result"`
}

// State is the serializable application state snapshot.
type State struct {
	Authenticated bool `json:"authenticated"`

	Loading      LoadingState     `json:"loading"`
	Result       *analysis.Result `json:"result,omitempty"`
	ErrorMessage string           `json:"error,omitempty"`
	AskNotice    string           `json:"askNotice,omitempty"`

	CombatMessages  []mentor.ChatMessage `json:"combatMessages"`
	PartnerMessages []mentor.ChatMessage `json:"partnerMessages"`

	History []HistoryItem `json:"history"`

	VoiceActive bool `json:"voiceActive"`
	Muted       bool `json:"muted"`
}

// Store is the opaque string key-value persistence boundary (the
// per-profile local storage analog). Implementations are single-writer per
// process; concurrent processes race with last-writer-wins.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Storage keys.
const (
	KeyUnlocked = "neo_app_unlocked"
	KeyHistory  = "sales_history"
)

// MaxHistory bounds the persisted history list.
const MaxHistory = 20

// PreviewRunes is the preview length in runes taken from the input text.
const PreviewRunes = 30
