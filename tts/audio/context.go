package audio

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process, so every DevicePlayer shares it.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func sharedContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
		}
		switch runtime.GOOS {
		case "darwin":
			// CoreAudio stutters with small buffers.
			op.BufferSize = 100 * time.Millisecond
		case "windows":
			op.BufferSize = 80 * time.Millisecond
		default:
			op.BufferSize = 50 * time.Millisecond
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = err
			return
		}
		select {
		case <-ready:
			otoCtx = ctx
			otoRate = sampleRate
		case <-time.After(5 * time.Second):
			otoErr = errors.New("audio device initialization timed out")
		}
	})

	if otoErr != nil {
		return nil, otoErr
	}
	if sampleRate != otoRate {
		return nil, fmt.Errorf("audio device already open at %d Hz, cannot reopen at %d Hz", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// MockAudio reports whether playback should use the in-memory player:
// requested explicitly via HUM_MOCK_AUDIO, or running under CI where no
// audio device exists.
func MockAudio() bool {
	if v := os.Getenv("HUM_MOCK_AUDIO"); v == "true" || v == "1" {
		return true
	}
	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE"} {
		if v := os.Getenv(name); v != "" && v != "false" {
			log.Debug("CI environment detected, using mock audio", "variable", name)
			return true
		}
	}
	return false
}

// NewPlayer returns the output sink for the current environment: the system
// audio device when one is available, otherwise the mock player.
func NewPlayer(cfg Config) (Player, error) {
	cfg.fill()
	if MockAudio() {
		cfg.Logger.Debug("using mock audio playback")
		return NewMockPlayer(cfg), nil
	}
	p, err := NewDevicePlayer(cfg)
	if err != nil {
		cfg.Logger.Warn("audio device unavailable, falling back to mock playback", "error", err)
		return NewMockPlayer(cfg), nil
	}
	return p, nil
}
