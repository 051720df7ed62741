package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/salesbrain-ai/salesbrain/pkg/app"
	"github.com/salesbrain-ai/salesbrain/pkg/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	// Same-origin app; the passphrase gate sits in front of this handler.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// VoiceBridge relays one browser voice call onto a live session. The browser
// sends binary 16 kHz mono s16le frames and JSON control messages; it
// receives binary 24 kHz PCM plus JSON transcript and barge-in events.
type VoiceBridge struct {
	controller *app.Controller

	APIKey string
	Model  string
	Voice  string
}

// NewVoiceBridge builds the bridge for a controller.
func NewVoiceBridge(controller *app.Controller, apiKey, model, voice string) *VoiceBridge {
	return &VoiceBridge{controller: controller, APIKey: apiKey, Model: model, Voice: voice}
}

// clientControl is the JSON control frame from the browser.
type clientControl struct {
	Type  string `json:"type"` // "mute" | "stop"
	Muted bool   `json:"muted"`
}

// serverEvent is the JSON event frame to the browser.
type serverEvent struct {
	Type  string `json:"type"` // "transcript" | "interrupted" | "closed"
	Text  string `json:"text,omitempty"`
	Start bool   `json:"start,omitempty"`
}

// Handle upgrades the connection and runs the call until either side hangs
// up. One call per connection; a second connection gets its own manager and
// the live backend rejects the overlap.
func (b *VoiceBridge) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("voice upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	peer := &voicePeer{conn: conn}
	mic := newWSMic()

	manager := live.NewManager(live.ManagerConfig{
		APIKey:    b.APIKey,
		Model:     b.Model,
		Voice:     b.Voice,
		OpenMic:   func() (live.MicCapture, error) { return mic, nil },
		NewPlayer: func() (live.Player, error) { return peer, nil },
		OnTranscript: func(text string, utteranceStart bool) {
			b.controller.AppendLiveTranscript(text, utteranceStart)
			peer.sendEvent(serverEvent{Type: "transcript", Text: text, Start: utteranceStart})
		},
		OnInterrupted: func() {
			peer.sendEvent(serverEvent{Type: "interrupted"})
		},
	})

	if err := manager.Start(r.Context()); err != nil {
		peer.sendEvent(serverEvent{Type: "closed", Text: err.Error()})
		return
	}
	b.controller.SetVoiceActive(true)
	defer func() {
		manager.Stop()
		b.controller.SetVoiceActive(false)
		b.controller.SetMuted(false)
	}()

	// Pump browser frames into the session until the socket dies or the
	// browser says stop.
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.BinaryMessage:
			mic.push(data)
		case websocket.TextMessage:
			var ctl clientControl
			if err := json.Unmarshal(data, &ctl); err != nil {
				continue
			}
			switch ctl.Type {
			case "mute":
				manager.SetMuted(ctl.Muted)
				b.controller.SetMuted(ctl.Muted)
			case "stop":
				return
			}
		}
	}
}

// voicePeer is the browser side of the call: a Player that forwards PCM as
// binary frames and a JSON event sink, sharing one write lock.
type voicePeer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *voicePeer) Play(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

// Flush tells the browser to drop its buffered audio on barge-in; the server
// keeps nothing queued itself.
func (p *voicePeer) Flush() error {
	p.sendEvent(serverEvent{Type: "interrupted"})
	return nil
}

func (p *voicePeer) Close() error { return nil }

func (p *voicePeer) sendEvent(event serverEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.WriteJSON(event); err != nil {
		slog.Debug("voice event write failed", "error", err)
	}
}

// wsMic adapts inbound websocket binary frames to the MicCapture stream the
// manager reads fixed-size blocks from.
type wsMic struct {
	pr *io.PipeReader
	pw *io.PipeWriter

	closeOnce sync.Once
}

func newWSMic() *wsMic {
	pr, pw := io.Pipe()
	return &wsMic{pr: pr, pw: pw}
}

func (m *wsMic) push(frame []byte) {
	if _, err := m.pw.Write(frame); err != nil {
		// Pipe closed; the call is over and the frame is dropped.
		return
	}
}

func (m *wsMic) Read(p []byte) (int, error) { return m.pr.Read(p) }

func (m *wsMic) Close() error {
	m.closeOnce.Do(func() {
		_ = m.pw.Close()
		_ = m.pr.Close()
	})
	return nil
}

var _ live.MicCapture = (*wsMic)(nil)
var _ live.Player = (*voicePeer)(nil)
