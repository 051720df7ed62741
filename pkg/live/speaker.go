package live

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// ffplaySpeaker plays 24 kHz mono PCM through a piped ffplay process.
// Flush kills and restarts the process, which is the only reliable way to
// drop audio ffplay has already buffered.
type ffplaySpeaker struct {
	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// NewSpeaker starts an ffplay-backed Player for the playback configuration.
func NewSpeaker() (Player, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for local playback (install ffmpeg/ffplay and ensure it is in PATH)")
	}
	s := &ffplaySpeaker{}
	if err := s.startLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ffplaySpeaker) startLocked() error {
	s.cmd = exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", PlaybackSampleRateHz),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	s.cmd.Stdout = io.Discard
	s.cmd.Stderr = io.Discard
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	s.stdin = stdin
	return nil
}

func (s *ffplaySpeaker) Play(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return errors.New("ffplay stdin is not initialized")
	}
	_, err := s.stdin.Write(pcm)
	return err
}

func (s *ffplaySpeaker) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	return s.startLocked()
}

func (s *ffplaySpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	return nil
}

func (s *ffplaySpeaker) killLocked() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.stdin = nil
}
