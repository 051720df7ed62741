package live

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/salesbrain-ai/salesbrain/pkg/core"
)

// LivePersona is the fixed voice persona for live calls.
const LivePersona = "你是 Neo，一位非常敬重、绅士且专业的展业伙伴。你正在和嫂夫人（保险业务员）进行通话。语气要极其得体、恭敬且专业，直接给出实用的建议和鼓励。你是她的得力助手，随时听候调遣。"

// captureFrameBytes is the fixed outbound block size: 4096 samples at the
// capture rate.
const captureFrameBytes = 4096 * pcmBytesPerSample

// State is the manager lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateClosing    State = "closing"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	APIKey  string
	Model   string
	Voice   string
	Persona string

	// OpenMic acquires the audio source. Nil selects the local ffmpeg
	// microphone. Browser-bridge callers supply their own source.
	OpenMic func() (MicCapture, error)

	// NewPlayer builds the playback sink. Nil selects the local ffplay
	// speaker; NopPlayer suits clients that play audio themselves.
	NewPlayer func() (Player, error)

	// Connect dials the live endpoint. Nil uses the real endpoint.
	Connect func(ctx context.Context, cfg SessionConfig) (*Session, error)

	// OnTranscript receives assistant transcript fragments. utteranceStart
	// is true for the first fragment of a new utterance.
	OnTranscript func(text string, utteranceStart bool)

	// OnAudio receives each inbound PCM chunk with its scheduled start
	// offset on the playback clock. Optional.
	OnAudio func(pcm []byte, start time.Duration)

	// OnInterrupted fires on barge-in, after local playback is flushed.
	OnInterrupted func()

	// OnStateChange observes lifecycle transitions. Optional.
	OnStateChange func(from, to State)
}

// Manager owns one live voice call end to end: Idle → Connecting → Active →
// Closing → Idle. Mute affects only outbound capture, never session liveness.
type Manager struct {
	cfg ManagerConfig

	mu        sync.Mutex
	state     State
	muted     bool
	session   *Session
	mic       MicCapture
	player    Player
	scheduler *Scheduler
	started   time.Time
	turnOpen  bool
	stopWG    sync.WaitGroup
}

// NewManager creates an idle manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Persona == "" {
		cfg.Persona = LivePersona
	}
	if cfg.OpenMic == nil {
		cfg.OpenMic = NewMicCapture
	}
	if cfg.NewPlayer == nil {
		cfg.NewPlayer = NewSpeaker
	}
	if cfg.Connect == nil {
		cfg.Connect = Connect
	}
	return &Manager{cfg: cfg, state: StateIdle, scheduler: NewScheduler()}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Muted reports whether outbound capture is muted.
func (m *Manager) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// SetMuted toggles outbound capture. Frames are dropped, not sent, while
// muted; the session stays live.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
}

// Start opens the microphone and the live session and begins streaming both
// directions. It fails with missing_credential when no API key is configured
// and microphone_unavailable when capture cannot be acquired.
func (m *Manager) Start(ctx context.Context) error {
	if strings.TrimSpace(m.cfg.APIKey) == "" {
		return core.NewMissingCredentialError("API Key 未配置")
	}

	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return core.NewLiveSessionError("live session already active")
	}
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	mic, err := m.cfg.OpenMic()
	if err != nil {
		m.toIdle()
		return err
	}

	player, err := m.cfg.NewPlayer()
	if err != nil {
		_ = mic.Close()
		m.toIdle()
		return core.NewLiveSessionError(err.Error())
	}

	session, err := m.cfg.Connect(ctx, SessionConfig{
		APIKey:            m.cfg.APIKey,
		Model:             m.cfg.Model,
		Voice:             m.cfg.Voice,
		SystemInstruction: m.cfg.Persona,
	})
	if err != nil {
		_ = mic.Close()
		_ = player.Close()
		m.toIdle()
		return core.NewLiveSessionError(err.Error())
	}

	m.mu.Lock()
	m.session = session
	m.mic = mic
	m.player = player
	m.started = time.Now()
	m.turnOpen = false
	m.scheduler.Reset()
	m.setStateLocked(StateActive)
	m.mu.Unlock()

	m.stopWG.Add(2)
	go m.captureLoop(session, mic)
	go m.eventLoop(session)
	return nil
}

// Stop closes the session and releases audio resources, returning the
// manager to Idle regardless of prior sub-state. Idempotent; teardown errors
// are logged, never returned.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == StateIdle || m.state == StateClosing {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateClosing)
	session := m.session
	mic := m.mic
	m.mu.Unlock()

	if session != nil {
		_ = session.Close()
	}
	// Closing the mic unblocks the capture loop's pending read.
	if mic != nil {
		_ = mic.Close()
	}
	m.stopWG.Wait()
	m.cleanup()
}

// captureLoop reads fixed-size microphone frames and forwards them in
// capture order. Frames are dropped while muted.
func (m *Manager) captureLoop(session *Session, mic MicCapture) {
	defer m.stopWG.Done()
	buf := make([]byte, captureFrameBytes)
	for {
		n, readErr := io.ReadFull(mic, buf)
		if n > 0 && !m.Muted() {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			if sendErr := session.SendAudioFrame(frame); sendErr != nil {
				return
			}
		}
		if readErr != nil {
			return
		}
	}
}

// eventLoop dispatches inbound events until the session closes, then tears
// the call down so the UI never shows an active call against a dead session.
func (m *Manager) eventLoop(session *Session) {
	defer m.stopWG.Done()
	for event := range session.Events() {
		switch e := event.(type) {
		case TranscriptFragmentEvent:
			m.handleTranscript(e.Text)
		case AudioChunkEvent:
			m.handleAudioChunk(e.PCM)
		case InterruptedEvent:
			m.handleInterrupted()
		case TurnCompleteEvent:
			m.mu.Lock()
			m.turnOpen = false
			m.mu.Unlock()
		case ErrorEvent:
			slog.Error("live session error", "message", e.Message)
		case ClosedEvent:
			if e.Reason != "" {
				slog.Warn("live session closed", "reason", e.Reason)
			}
		}
	}

	// Unexpected close (network drop, upstream error) lands here too; run
	// the same cleanup path as Stop.
	m.mu.Lock()
	alreadyClosing := m.state == StateClosing || m.state == StateIdle
	if !alreadyClosing {
		m.setStateLocked(StateClosing)
	}
	m.mu.Unlock()
	if !alreadyClosing {
		go func() {
			_ = session.Close()
			m.cleanup()
		}()
	}
}

func (m *Manager) handleTranscript(text string) {
	m.mu.Lock()
	utteranceStart := !m.turnOpen
	m.turnOpen = true
	cb := m.cfg.OnTranscript
	m.mu.Unlock()
	if cb != nil {
		cb(text, utteranceStart)
	}
}

func (m *Manager) handleAudioChunk(pcm []byte) {
	m.mu.Lock()
	player := m.player
	started := m.started
	cb := m.cfg.OnAudio
	m.mu.Unlock()
	if player == nil {
		return
	}

	dur := PlaybackConfig().Duration(len(pcm))
	start := m.scheduler.Schedule(time.Since(started), dur)
	if err := player.Play(pcm); err != nil {
		slog.Warn("playback write failed", "error", err)
	}
	if cb != nil {
		cb(pcm, start)
	}
}

func (m *Manager) handleInterrupted() {
	m.mu.Lock()
	player := m.player
	cb := m.cfg.OnInterrupted
	m.mu.Unlock()
	if player != nil {
		if err := player.Flush(); err != nil {
			slog.Warn("playback flush failed", "error", err)
		}
	}
	m.scheduler.Reset()
	if cb != nil {
		cb()
	}
}

// cleanup releases mic and player and returns to Idle. Best effort: close
// failures are logged and swallowed so teardown never throws.
func (m *Manager) cleanup() {
	m.mu.Lock()
	mic := m.mic
	player := m.player
	m.mic = nil
	m.player = nil
	m.session = nil
	m.setStateLocked(StateIdle)
	m.mu.Unlock()

	if mic != nil {
		if err := mic.Close(); err != nil {
			slog.Warn("mic close failed", "error", err)
		}
	}
	if player != nil {
		if err := player.Close(); err != nil {
			slog.Warn("player close failed", "error", err)
		}
	}
}

func (m *Manager) toIdle() {
	m.mu.Lock()
	m.setStateLocked(StateIdle)
	m.mu.Unlock()
}

func (m *Manager) setStateLocked(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	if m.cfg.OnStateChange != nil {
		go m.cfg.OnStateChange(from, to)
	}
}
