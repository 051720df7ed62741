package live

import (
	"fmt"
	"math"
	"time"
)

// Fixed session rates: microphone capture is framed at 16 kHz, assistant
// playback arrives at 24 kHz. Both are mono 16-bit signed little-endian PCM.
const (
	CaptureSampleRateHz  = 16000
	PlaybackSampleRateHz = 24000
	pcmBytesPerSample    = 2
)

// AudioConfig describes one direction of the PCM pipeline.
type AudioConfig struct {
	SampleRateHz int
	Channels     int
}

// CaptureConfig returns the fixed outbound (microphone) configuration.
func CaptureConfig() AudioConfig {
	return AudioConfig{SampleRateHz: CaptureSampleRateHz, Channels: 1}
}

// PlaybackConfig returns the fixed inbound (assistant audio) configuration.
func PlaybackConfig() AudioConfig {
	return AudioConfig{SampleRateHz: PlaybackSampleRateHz, Channels: 1}
}

// BytesPerSecond returns the PCM byte rate of this configuration.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRateHz * c.Channels * pcmBytesPerSample
}

// Duration returns the playback duration of a PCM payload of the given size.
func (c AudioConfig) Duration(bytes int) time.Duration {
	bps := c.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(bps)
}

// MIMEType returns the realtime-media tag for this configuration, for
// example "audio/pcm;rate=16000".
func (c AudioConfig) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", c.SampleRateHz)
}

// Float32ToPCM16 converts floating-point samples in [-1, 1] to 16-bit signed
// little-endian PCM bytes. Out-of-range samples are clamped.
func Float32ToPCM16(samples []float32) []byte {
	pcm := make([]byte, len(samples)*pcmBytesPerSample)
	for i, s := range samples {
		v := int32(math.Round(float64(s) * 32768))
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		if v < math.MinInt16 {
			v = math.MinInt16
		}
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}
	return pcm
}

// PCM16ToFloat32 converts 16-bit signed little-endian PCM bytes to
// floating-point samples in [-1, 1). A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/pcmBytesPerSample)
	for i := range samples {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		samples[i] = float32(v) / 32768.0
	}
	return samples
}
