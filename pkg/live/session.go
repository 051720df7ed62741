// Package live implements the bidirectional voice session with the hosted
// model: microphone PCM out, transcript fragments and synthesized audio in,
// with gapless playback scheduling and barge-in handling.
package live

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/salesbrain-ai/salesbrain/pkg/gemini"
)

const (
	// DefaultModel is the native-audio live model.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	// DefaultVoice is the fixed synthesized-voice identity.
	DefaultVoice = "Zephyr"

	// DefaultEndpoint is the live websocket endpoint.
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	defaultConnectTimeout = 15 * time.Second
)

// SessionConfig configures a live session dial.
type SessionConfig struct {
	APIKey            string
	Model             string
	Voice             string
	SystemInstruction string
	Endpoint          string // override for tests
}

// Session is one open bidirectional stream. Outbound frames and inbound
// events are independent producer paths multiplexed onto the one websocket;
// ordering holds within each direction only.
type Session struct {
	conn *websocket.Conn

	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Connect dials the live endpoint, sends the setup frame and waits for the
// server's setup acknowledgement before returning an active session.
func Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = DefaultVoice
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	wsURL := endpoint + "?key=" + url.QueryEscape(cfg.APIKey)

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, _, err := dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("live dial: %w", err)
	}

	setup := clientSetup{
		Setup: setupPayload{
			Model: "models/" + cfg.Model,
			GenerationConfig: &liveGenConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &speechConfig{
					VoiceConfig: &voiceConfig{
						PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.Voice},
					},
				},
			},
			OutputAudioTranscription: &struct{}{},
		},
	}
	if cfg.SystemInstruction != "" {
		setup.Setup.SystemInstruction = gemini.SystemText(cfg.SystemInstruction)
	}
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send live setup: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	var ack serverFrame
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read setup ack: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if ack.SetupComplete == nil {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first live frame")
	}

	s := &Session{
		conn:   conn,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Events yields inbound session events. The channel closes after ClosedEvent.
func (s *Session) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.events
}

// SendAudioFrame encodes one PCM frame (16 kHz mono s16le) and forwards it as
// a realtime-media message tagged with its rate.
func (s *Session) SendAudioFrame(pcm []byte) error {
	if s == nil {
		return fmt.Errorf("session must not be nil")
	}
	msg := clientRealtimeInput{
		RealtimeInput: realtimeInputPayload{
			MediaChunks: []mediaChunk{{
				MIMEType: CaptureConfig().MIMEType(),
				Data:     base64.StdEncoding.EncodeToString(pcm),
			}},
		},
	}
	return s.sendJSON(msg)
}

// SendSamples converts floating-point samples to PCM and sends them.
func (s *Session) SendSamples(samples []float32) error {
	return s.SendAudioFrame(Float32ToPCM16(samples))
}

func (s *Session) sendJSON(v any) error {
	if s.closed.Load() {
		return fmt.Errorf("live session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close closes the websocket session. Safe to call repeatedly and after the
// peer has already gone away; close errors are swallowed by design and the
// caller observes shutdown through the Events channel draining.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal session error (if any) once the session has ended.
func (s *Session) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	reason := ""
	for {
		var frame serverFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if !s.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.setErr(err)
				s.emit(ErrorEvent{Message: err.Error()})
				reason = err.Error()
			}
			s.emit(ClosedEvent{Reason: reason})
			return
		}

		sc := frame.ServerContent
		if sc == nil {
			if frame.GoAway != nil {
				reason = "server go_away"
			}
			continue
		}

		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			s.emit(TranscriptFragmentEvent{Text: sc.OutputTranscription.Text})
		}

		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					s.emit(ErrorEvent{Message: fmt.Sprintf("decode audio chunk: %v", err)})
					continue
				}
				s.emit(AudioChunkEvent{PCM: pcm})
			}
		}

		if sc.Interrupted {
			s.emit(InterruptedEvent{})
		}
		if sc.TurnComplete {
			s.emit(TurnCompleteEvent{})
		}
	}
}

// emit never blocks the read loop; if the consumer stops draining, events
// are dropped rather than stalling the websocket.
func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	default:
	}
}
