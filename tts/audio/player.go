package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// Player is the audio output sink driven by the playback sequencer. The
// sequencer is the only component that starts or stops it; everything else
// observes playback through the sequencer.
type Player interface {
	// Play starts playback of a clip, replacing any clip already playing.
	Play(clip *Clip) error

	// Pause suspends the current clip.
	Pause() error

	// Resume continues a paused clip.
	Resume() error

	// Stop halts playback and discards the current clip.
	Stop() error

	// IsPlaying reports whether a clip is actively playing.
	IsPlaying() bool

	// Position returns elapsed playback time of the current clip, clamped
	// to its duration.
	Position() time.Duration

	// Close releases the underlying device.
	Close() error
}

// State describes the lifecycle of a player.
type State int32

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrPlayerClosed is returned by operations on a closed player.
	ErrPlayerClosed = errors.New("audio: player is closed")

	// ErrNotPlaying is returned when pausing a player with no active clip.
	ErrNotPlaying = errors.New("audio: nothing is playing")

	// ErrNotPaused is returned when resuming a player that is not paused.
	ErrNotPaused = errors.New("audio: player is not paused")
)

// Config holds playback parameters shared by all player implementations.
type Config struct {
	SampleRate int
	Volume     float64
	Logger     *log.Logger
}

// DefaultConfig returns the playback configuration for API audio.
func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		Volume:     1.0,
		Logger:     log.Default(),
	}
}

func (c *Config) fill() {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Volume <= 0 {
		c.Volume = 1.0
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}

// DevicePlayer plays clips through the system audio device.
//
// Position is tracked as wall-clock time since playback started, minus time
// spent paused, clamped to the clip duration. The encoded sample data is held
// on the player until Stop so the device never reads freed memory.
type DevicePlayer struct {
	ctx    *oto.Context
	player *oto.Player
	stream *clipStream

	state atomic.Int32

	mu         sync.Mutex
	startTime  time.Time
	pausedAt   time.Duration
	totalPause time.Duration

	sampleRate int
	volume     float64
	logger     *log.Logger
}

// clipStream keeps the encoded clip alive while the device consumes it.
type clipStream struct {
	data     []byte
	reader   *bytes.Reader
	duration time.Duration
}

// NewDevicePlayer opens the shared audio device and returns a player for it.
func NewDevicePlayer(cfg Config) (*DevicePlayer, error) {
	cfg.fill()

	ctx, err := sharedContext(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}

	p := &DevicePlayer{
		ctx:        ctx,
		sampleRate: cfg.SampleRate,
		volume:     cfg.Volume,
		logger:     cfg.Logger,
	}
	p.state.Store(int32(StateStopped))
	return p, nil
}

// Play starts playback of a clip, stopping any clip in progress first.
func (p *DevicePlayer) Play(clip *Clip) error {
	if clip == nil || len(clip.Samples) == 0 {
		return ErrEmptyPCM
	}
	if clip.SampleRate != p.sampleRate {
		return fmt.Errorf("audio: clip rate %d does not match device rate %d", clip.SampleRate, p.sampleRate)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) == StateClosed {
		return ErrPlayerClosed
	}
	p.stopLocked()

	data := clip.encode()
	stream := &clipStream{
		data:     data,
		reader:   bytes.NewReader(data),
		duration: clip.Duration(),
	}

	player := p.ctx.NewPlayer(stream.reader)
	player.SetVolume(p.volume)

	p.player = player
	p.stream = stream
	p.startTime = time.Now()
	p.pausedAt = 0
	p.totalPause = 0

	player.Play()
	p.state.Store(int32(StatePlaying))

	p.logger.Debug("playback started",
		"samples", len(clip.Samples),
		"duration", stream.duration)
	return nil
}

// Pause suspends the current clip, retaining its position.
func (p *DevicePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) != StatePlaying {
		return fmt.Errorf("%w: player is %s", ErrNotPlaying, State(p.state.Load()))
	}
	if p.player != nil {
		p.player.Pause()
	}
	p.pausedAt = p.positionLocked()
	p.state.Store(int32(StatePaused))
	return nil
}

// Resume continues a paused clip.
func (p *DevicePlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) != StatePaused {
		return fmt.Errorf("%w: player is %s", ErrNotPaused, State(p.state.Load()))
	}
	if p.player != nil {
		p.player.Play()
	}
	// After resuming, position must pick up exactly where the pause left it.
	p.totalPause = time.Since(p.startTime) - p.pausedAt
	p.state.Store(int32(StatePlaying))
	return nil
}

// Stop halts playback and releases the device player for the current clip.
func (p *DevicePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *DevicePlayer) stopLocked() {
	st := State(p.state.Load())
	if st == StateStopped || st == StateClosed {
		return
	}
	if p.player != nil {
		p.player.Pause()
		_ = p.player.Close()
		p.player = nil
	}
	if p.stream != nil {
		p.stream.data = nil
		p.stream.reader = nil
		p.stream = nil
	}
	p.pausedAt = 0
	p.totalPause = 0
	if st != StateClosed {
		p.state.Store(int32(StateStopped))
	}
}

// IsPlaying reports whether a clip is actively playing (not paused).
func (p *DevicePlayer) IsPlaying() bool {
	if State(p.state.Load()) != StatePlaying {
		return false
	}
	// A clip that has run past its duration is finished even if the device
	// has not been torn down yet.
	return p.Position() < p.duration()
}

// Position returns the elapsed playback time of the current clip.
func (p *DevicePlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *DevicePlayer) positionLocked() time.Duration {
	switch State(p.state.Load()) {
	case StatePlaying:
		elapsed := time.Since(p.startTime) - p.totalPause
		if d := p.durationLocked(); elapsed > d {
			elapsed = d
		}
		return elapsed
	case StatePaused:
		return p.pausedAt
	default:
		return 0
	}
}

func (p *DevicePlayer) duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.durationLocked()
}

func (p *DevicePlayer) durationLocked() time.Duration {
	if p.stream == nil {
		return 0
	}
	return p.stream.duration
}

// SetVolume adjusts playback volume in [0, 1] for the current and future clips.
func (p *DevicePlayer) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("audio: volume %.2f out of range [0, 1]", volume)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	if p.player != nil {
		p.player.SetVolume(volume)
	}
	return nil
}

// State returns the current player state.
func (p *DevicePlayer) State() State {
	return State(p.state.Load())
}

// Close stops playback and releases the device.
func (p *DevicePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	// The shared oto context has no Close in v3; dropping the reference is
	// all the cleanup available.
	p.state.Store(int32(StateClosed))
	return nil
}

var _ Player = (*DevicePlayer)(nil)
