package live

// Event is the interface for all inbound live session events. Inbound
// traffic is decoded into exactly one of the variants below; consumers
// dispatch with a type switch.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// TranscriptFragmentEvent carries a fragment of the assistant's speech
// transcript. Consecutive fragments belong to the same utterance until a
// TurnCompleteEvent arrives.
type TranscriptFragmentEvent struct {
	Text string `json:"text"`
}

func (e TranscriptFragmentEvent) EventType() string { return "transcript.fragment" }

// AudioChunkEvent carries one decoded PCM chunk of synthesized speech at the
// playback rate.
type AudioChunkEvent struct {
	PCM []byte `json:"pcm"`
}

func (e AudioChunkEvent) EventType() string { return "audio.chunk" }

// InterruptedEvent signals user barge-in: all scheduled playback must stop
// immediately and the scheduling clock resets to zero.
type InterruptedEvent struct{}

func (e InterruptedEvent) EventType() string { return "interrupted" }

// TurnCompleteEvent marks the end of one assistant utterance.
type TurnCompleteEvent struct{}

func (e TurnCompleteEvent) EventType() string { return "turn.complete" }

// ClosedEvent is the terminal event; emitted exactly once when the session
// ends, cleanly or not.
type ClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e ClosedEvent) EventType() string { return "closed" }

// ErrorEvent reports a session-level failure. The session still emits
// ClosedEvent afterwards.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (e ErrorEvent) EventType() string { return "error" }
