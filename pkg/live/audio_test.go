package live

import (
	"testing"
	"time"
)

func TestAudioConfig_Duration(t *testing.T) {
	// 24kHz mono PCM16 => 48000 bytes/s.
	cfg := PlaybackConfig()
	if got := cfg.BytesPerSecond(); got != 48000 {
		t.Fatalf("BytesPerSecond = %d, want 48000", got)
	}
	if got := cfg.Duration(0); got != 0 {
		t.Fatalf("Duration(0) = %v, want 0", got)
	}
	// 20ms of audio => 960 bytes.
	if got := cfg.Duration(960); got != 20*time.Millisecond {
		t.Fatalf("Duration(960) = %v, want 20ms", got)
	}
	if got := cfg.Duration(48000); got != time.Second {
		t.Fatalf("Duration(48000) = %v, want 1s", got)
	}
}

func TestAudioConfig_MIMEType(t *testing.T) {
	if got := CaptureConfig().MIMEType(); got != "audio/pcm;rate=16000" {
		t.Fatalf("capture MIME = %q", got)
	}
	if got := PlaybackConfig().MIMEType(); got != "audio/pcm;rate=24000" {
		t.Fatalf("playback MIME = %q", got)
	}
}

func TestFloat32ToPCM16_Clamps(t *testing.T) {
	pcm := Float32ToPCM16([]float32{0, 1.5, -1.5})
	if len(pcm) != 6 {
		t.Fatalf("len = %d, want 6", len(pcm))
	}
	read := func(i int) int16 {
		return int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	if v := read(0); v != 0 {
		t.Fatalf("sample 0 = %d, want 0", v)
	}
	if v := read(1); v != 32767 {
		t.Fatalf("over-range sample = %d, want 32767", v)
	}
	if v := read(2); v != -32768 {
		t.Fatalf("under-range sample = %d, want -32768", v)
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.25}
	out := PCM16ToFloat32(Float32ToPCM16(in))
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		diff := out[i] - in[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > 1.0/32768 {
			t.Fatalf("sample %d = %v, want ~%v", i, out[i], in[i])
		}
	}
}
