package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer simulates clip playback against the wall clock without touching
// an audio device. It implements the same Player contract as DevicePlayer and
// is used in tests and on machines with no audio output.
type MockPlayer struct {
	state atomic.Int32

	mu         sync.Mutex
	clip       *Clip
	startTime  time.Time
	pausedAt   time.Duration
	totalPause time.Duration

	// timeScale compresses simulated time: at 100, a one-second clip
	// finishes in 10ms of wall time.
	timeScale float64
	volume    float64

	callbacks Callbacks

	playCount   atomic.Int64
	pauseCount  atomic.Int64
	resumeCount atomic.Int64
	stopCount   atomic.Int64
}

// Callbacks are test hooks invoked on player transitions.
type Callbacks struct {
	OnPlay   func(clip *Clip)
	OnPause  func()
	OnResume func()
	OnStop   func()
}

// NewMockPlayer returns a mock player for the given configuration.
func NewMockPlayer(cfg Config) *MockPlayer {
	cfg.fill()
	p := &MockPlayer{
		timeScale: 1.0,
		volume:    cfg.Volume,
	}
	p.state.Store(int32(StateStopped))
	return p
}

// SetCallbacks installs test hooks. Not safe to call during playback.
func (p *MockPlayer) SetCallbacks(cb Callbacks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = cb
}

// SetTimeScale adjusts how fast simulated playback runs relative to wall time.
func (p *MockPlayer) SetTimeScale(scale float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if scale > 0 {
		p.timeScale = scale
	}
}

// Play begins simulated playback of a clip.
func (p *MockPlayer) Play(clip *Clip) error {
	if clip == nil || len(clip.Samples) == 0 {
		return ErrEmptyPCM
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) == StateClosed {
		return ErrPlayerClosed
	}

	p.clip = clip
	p.startTime = time.Now()
	p.pausedAt = 0
	p.totalPause = 0
	p.state.Store(int32(StatePlaying))
	p.playCount.Add(1)

	if p.callbacks.OnPlay != nil {
		p.callbacks.OnPlay(clip)
	}
	return nil
}

// Pause suspends simulated playback.
func (p *MockPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) != StatePlaying {
		return fmt.Errorf("%w: player is %s", ErrNotPlaying, State(p.state.Load()))
	}
	p.pausedAt = p.positionLocked()
	p.state.Store(int32(StatePaused))
	p.pauseCount.Add(1)

	if p.callbacks.OnPause != nil {
		p.callbacks.OnPause()
	}
	return nil
}

// Resume continues simulated playback from the paused position.
func (p *MockPlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) != StatePaused {
		return fmt.Errorf("%w: player is %s", ErrNotPaused, State(p.state.Load()))
	}
	p.totalPause = time.Since(p.startTime) - time.Duration(float64(p.pausedAt)/p.timeScale)
	p.state.Store(int32(StatePlaying))
	p.resumeCount.Add(1)

	if p.callbacks.OnResume != nil {
		p.callbacks.OnResume()
	}
	return nil
}

// Stop halts simulated playback and drops the clip.
func (p *MockPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := State(p.state.Load())
	if st == StateStopped || st == StateClosed {
		return nil
	}
	p.clip = nil
	p.pausedAt = 0
	p.totalPause = 0
	p.state.Store(int32(StateStopped))
	p.stopCount.Add(1)

	if p.callbacks.OnStop != nil {
		p.callbacks.OnStop()
	}
	return nil
}

// IsPlaying reports whether simulated playback is active and unfinished.
func (p *MockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) != StatePlaying {
		return false
	}
	if p.clip != nil && p.positionLocked() >= p.clip.Duration() {
		// Natural completion: flip to stopped the first time it is observed.
		p.state.Store(int32(StateStopped))
		return false
	}
	return true
}

// Position returns the simulated elapsed time of the current clip.
func (p *MockPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *MockPlayer) positionLocked() time.Duration {
	switch State(p.state.Load()) {
	case StatePlaying:
		elapsed := time.Since(p.startTime) - p.totalPause
		elapsed = time.Duration(float64(elapsed) * p.timeScale)
		if p.clip != nil && elapsed > p.clip.Duration() {
			elapsed = p.clip.Duration()
		}
		return elapsed
	case StatePaused:
		return p.pausedAt
	default:
		return 0
	}
}

// Close marks the player closed; further Play calls fail.
func (p *MockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clip = nil
	p.state.Store(int32(StateClosed))
	return nil
}

// State returns the current simulated state.
func (p *MockPlayer) State() State {
	return State(p.state.Load())
}

// Metrics reports how many times each transition was driven, for tests.
func (p *MockPlayer) Metrics() MockMetrics {
	return MockMetrics{
		PlayCount:   p.playCount.Load(),
		PauseCount:  p.pauseCount.Load(),
		ResumeCount: p.resumeCount.Load(),
		StopCount:   p.stopCount.Load(),
	}
}

// MockMetrics holds transition counts recorded by a MockPlayer.
type MockMetrics struct {
	PlayCount   int64
	PauseCount  int64
	ResumeCount int64
	StopCount   int64
}

// WaitForCompletion blocks until the current clip finishes naturally or the
// timeout elapses, reporting whether playback completed.
func (p *MockPlayer) WaitForCompletion(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		clip := p.clip
		p.mu.Unlock()
		if clip == nil {
			return false
		}
		if !p.IsPlaying() && p.State() == StateStopped {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

var _ Player = (*MockPlayer)(nil)
