package live

import "github.com/salesbrain-ai/salesbrain/pkg/gemini"

// Wire format of the bidirectional live endpoint
// (BidiGenerateContent). The first client frame is clientSetup; the server
// acknowledges with setupComplete before any media flows.

type clientSetup struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model                    string          `json:"model"`
	GenerationConfig         *liveGenConfig  `json:"generationConfig,omitempty"`
	SystemInstruction        *gemini.Content `json:"systemInstruction,omitempty"`
	OutputAudioTranscription *struct{}       `json:"outputAudioTranscription,omitempty"`
}

type liveGenConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig *voiceConfig `json:"voiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// clientRealtimeInput carries one outbound media frame.
type clientRealtimeInput struct {
	RealtimeInput realtimeInputPayload `json:"realtimeInput"`
}

type realtimeInputPayload struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 PCM
}

// serverFrame is the envelope of every inbound text frame.
type serverFrame struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	GoAway        *goAway        `json:"goAway,omitempty"`
}

type serverContent struct {
	ModelTurn           *gemini.Content `json:"modelTurn,omitempty"`
	OutputTranscription *transcription  `json:"outputTranscription,omitempty"`
	Interrupted         bool            `json:"interrupted,omitempty"`
	TurnComplete        bool            `json:"turnComplete,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}
