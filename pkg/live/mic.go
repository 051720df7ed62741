package live

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/salesbrain-ai/salesbrain/pkg/core"
)

// MicCapture is a stream of raw 16 kHz mono s16le PCM from the local
// microphone.
type MicCapture interface {
	io.Reader
	Close() error
}

// ffmpegMicCapture shells out to ffmpeg for platform audio capture.
type ffmpegMicCapture struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// NewMicCapture opens the default microphone at the capture rate. Failures
// surface as microphone_unavailable so the UI can explain them.
func NewMicCapture() (MicCapture, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, core.NewMicrophoneUnavailableError("ffmpeg is required for mic capture (install ffmpeg and ensure it is in PATH)", err)
	}
	args, err := micFFmpegArgs(runtime.GOOS)
	if err != nil {
		return nil, core.NewMicrophoneUnavailableError(err.Error(), err)
	}
	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, core.NewMicrophoneUnavailableError("open ffmpeg stdout", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, core.NewMicrophoneUnavailableError("start ffmpeg mic capture", err)
	}
	return &ffmpegMicCapture{cmd: cmd, stdout: stdout}, nil
}

func micFFmpegArgs(goos string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", CaptureSampleRateHz),
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", CaptureSampleRateHz),
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

func (m *ffmpegMicCapture) Read(p []byte) (int, error) {
	if m == nil || m.stdout == nil {
		return 0, io.EOF
	}
	return m.stdout.Read(p)
}

func (m *ffmpegMicCapture) Close() error {
	if m == nil {
		return nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
	}
	return nil
}

var _ MicCapture = (*ffmpegMicCapture)(nil)
