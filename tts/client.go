package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/hum/internal/cache"
	"github.com/dgnsrekt/hum/tts/audio"
	"github.com/dgnsrekt/hum/tts/hume"
)

// Client is the speech pipeline: it synthesizes utterances through the
// Octave API and plays the resulting clips in submission order, one at a
// time. All methods are safe for concurrent use.
//
// A failure anywhere resolves the affected utterance and leaves the client
// fully usable; nothing is retried and nothing is fatal.
type Client struct {
	cfg    Config
	api    *hume.Client
	player audio.Player
	seq    *sequencer
	events *hub
	hist   *history
	store  *cache.Store
	logger *log.Logger

	voicesMu  sync.RWMutex
	voiceList []hume.CustomVoice

	// stopGen is bumped by Stop. Synthesis replies from before the bump
	// are discarded instead of enqueued.
	stopGen atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// Option overrides a client dependency, mainly for tests.
type Option func(*Client)

// WithPlayer substitutes the audio player.
func WithPlayer(p audio.Player) Option {
	return func(c *Client) { c.player = p }
}

// WithAPIClient substitutes the API client.
func WithAPIClient(api *hume.Client) Option {
	return func(c *Client) { c.api = api }
}

// WithLogger sets the logger used by the client and its subsystems.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithStore substitutes the generation cache.
func WithStore(s *cache.Store) Option {
	return func(c *Client) { c.store = s }
}

// New builds a client. The returned client owns its player and cache and
// releases them on Close.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:  cfg,
		hist: newHistory(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = log.Default()
	}
	c.events = newHub(c.logger)

	if c.api == nil {
		c.api = hume.NewClient(cfg.APIKey,
			hume.WithBaseURL(cfg.BaseURL),
			hume.WithTimeout(cfg.Timeout),
			hume.WithRequestsPerMinute(cfg.RequestsPerMinute),
			hume.WithLogger(c.logger))
	}

	if c.player == nil {
		player, err := audio.NewPlayer(audio.Config{
			SampleRate: cfg.SampleRate,
			Volume:     cfg.Volume,
			Logger:     c.logger,
		})
		if err != nil {
			return nil, err
		}
		c.player = player
	}

	if c.store == nil && cfg.CacheEnabled {
		store, err := cache.New(cache.DefaultConfig(cfg.CacheDir), c.logger)
		if err != nil {
			// Caching is an optimization; a broken cache directory should
			// not keep speech from working.
			c.logger.Warn("cache disabled", "err", err)
		} else {
			c.store = store
		}
	}
	if c.store != nil {
		c.voiceList = c.store.Voices()
	}

	c.seq = newSequencer(c.player, c.events, c.logger)
	return c, nil
}

// Speak synthesizes one utterance, queues it, and blocks until it finishes.
// It reports whether the utterance played to completion; interruption by
// Stop or FlushQueue yields false with a nil error. Cancelling ctx abandons
// the wait (and the synthesis request, if still in flight) but does not
// stop a clip that already reached the player.
func (c *Client) Speak(ctx context.Context, u Utterance) (bool, error) {
	pending, err := c.SpeakAsync(ctx, u)
	if err != nil {
		return false, err
	}
	select {
	case out := <-pending.Outcome():
		return out.Played, out.Err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// SpeakAsync submits one utterance and returns immediately. The returned
// Pending delivers exactly one Outcome when the utterance finishes, fails,
// or is discarded.
func (c *Client) SpeakAsync(ctx context.Context, u Utterance) (*Pending, error) {
	if c.closed.Load() {
		return nil, preconditionErr("speak", ErrClientClosed)
	}
	if err := u.validate(); err != nil {
		return nil, preconditionErr("speak", err)
	}

	// Both the stop generation and the context window are captured now, so
	// a Stop issued mid-flight is detected and the context reflects what had
	// been spoken when the request was made.
	gen := c.stopGen.Load()
	window := c.hist.window(c.cfg.ContextWindow)

	pending := newPending(u)
	c.events.publish(RequestStatusEvent{ID: pending.ID(), Status: StatusRequesting})

	go c.fetchAndEnqueue(ctx, pending, u, window, gen)
	return pending, nil
}

func (c *Client) fetchAndEnqueue(ctx context.Context, pending *Pending, u Utterance, window []Utterance, gen uint64) {
	clip, generationID, err := c.synthesize(ctx, u, window)
	if err != nil {
		c.logger.Error("synthesis failed", "id", pending.ID(), "err", err)
		c.events.publish(RequestStatusEvent{ID: pending.ID(), Status: StatusFailed, Err: err})
		c.events.publish(ErrorEvent{Err: err})
		pending.deliver(Outcome{Played: false, Err: err})
		return
	}

	if c.stopGen.Load() != gen {
		c.logger.Debug("synthesis finished after stop, discarding", "id", pending.ID())
		c.events.publish(RequestStatusEvent{ID: pending.ID(), Status: StatusDiscarded})
		pending.deliver(Outcome{Played: false})
		return
	}

	c.hist.add(u)
	t := newTask(pending.ID(), u, clip, generationID)
	c.events.publish(RequestStatusEvent{ID: pending.ID(), Status: StatusQueued})
	c.seq.enqueue(t)

	go func() {
		<-t.done
		pending.deliver(Outcome{Played: t.played})
	}()
}

// synthesize produces a clip for the utterance, consulting the cache before
// the network. The returned generation id names the result for SaveVoice.
func (c *Client) synthesize(ctx context.Context, u Utterance, window []Utterance) (*audio.Clip, string, error) {
	key := c.cacheKey(u, window)
	if c.store != nil {
		if cached, ok := c.store.GetGeneration(key); ok {
			clip, err := decodeGeneration(cached)
			if err == nil {
				c.logger.Debug("cache hit", "generation", cached.GenerationID)
				return clip, cached.GenerationID, nil
			}
			c.logger.Warn("cached generation undecodable, refetching", "err", err)
		}
	}

	req := hume.SynthesisRequest{
		Utterances:     []hume.Utterance{u.toWire()},
		Format:         hume.FormatPCM(),
		NumGenerations: 1,
	}
	if len(window) > 0 {
		req.Context = &hume.Context{Utterances: toWireSlice(window)}
	}

	resp, err := c.api.Synthesize(ctx, req)
	if err != nil {
		return nil, "", transportErr("synthesize", err)
	}
	if len(resp.Generations) == 0 {
		return nil, "", decodeErr("synthesize", ErrNoGenerations)
	}

	generation := resp.Generations[0]
	clip, err := decodeGeneration(generation)
	if err != nil {
		return nil, "", decodeErr("synthesize", err)
	}

	if c.store != nil {
		if err := c.store.PutGeneration(key, generation); err != nil {
			c.logger.Debug("cache write skipped", "err", err)
		}
	}
	return clip, generation.GenerationID, nil
}

func (c *Client) cacheKey(u Utterance, window []Utterance) string {
	voiceID := ""
	if u.Voice != nil {
		voiceID = u.Voice.ID
	}
	ctxTexts := make([]string, len(window))
	for i, w := range window {
		ctxTexts[i] = w.Text
	}
	return cache.Key(u.Text, u.Description, voiceID, ctxTexts)
}

// decodeGeneration turns a wire generation into a playable clip.
func decodeGeneration(g hume.Generation) (*audio.Clip, error) {
	raw, err := base64.StdEncoding.DecodeString(g.Audio)
	if err != nil {
		return nil, err
	}
	samples, err := audio.DecodePCM16(raw)
	if err != nil {
		return nil, err
	}
	return audio.NewClip(samples, audio.DefaultSampleRate)
}

// RefreshVoices fetches the complete custom voice listing and replaces the
// cached copy wholesale.
func (c *Client) RefreshVoices(ctx context.Context) ([]hume.CustomVoice, error) {
	if c.closed.Load() {
		return nil, preconditionErr("refresh voices", ErrClientClosed)
	}
	voices, err := c.api.AllCustomVoices(ctx)
	if err != nil {
		terr := transportErr("refresh voices", err)
		c.events.publish(ErrorEvent{Err: terr})
		return nil, terr
	}

	c.voicesMu.Lock()
	c.voiceList = voices
	c.voicesMu.Unlock()

	if c.store != nil {
		if err := c.store.PutVoices(voices); err != nil {
			c.logger.Debug("voice snapshot write skipped", "err", err)
		}
	}
	c.logger.Debug("voice list refreshed", "count", len(voices))
	return sliceCopy(voices), nil
}

// Voices returns the cached voice listing. It is empty until the first
// RefreshVoices of this or an earlier run.
func (c *Client) Voices() []hume.CustomVoice {
	c.voicesMu.RLock()
	defer c.voicesMu.RUnlock()
	return sliceCopy(c.voiceList)
}

// LookupVoice finds a cached voice by exact id or case-insensitive name.
func (c *Client) LookupVoice(query string) (hume.CustomVoice, bool) {
	c.voicesMu.RLock()
	defer c.voicesMu.RUnlock()
	for _, v := range c.voiceList {
		if v.ID == query {
			return v, true
		}
	}
	for _, v := range c.voiceList {
		if strings.EqualFold(v.Name, query) {
			return v, true
		}
	}
	return hume.CustomVoice{}, false
}

// SaveVoice names a previous generation, creating a reusable custom voice
// on the service.
func (c *Client) SaveVoice(ctx context.Context, generationID, name string) (*hume.SavedVoice, error) {
	if c.closed.Load() {
		return nil, preconditionErr("save voice", ErrClientClosed)
	}
	if strings.TrimSpace(generationID) == "" {
		return nil, preconditionErr("save voice", ErrMissingGenerationID)
	}
	if strings.TrimSpace(name) == "" {
		return nil, preconditionErr("save voice", ErrEmptyVoiceName)
	}

	saved, err := c.api.SaveVoice(ctx, generationID, name)
	if err != nil {
		terr := transportErr("save voice", err)
		c.events.publish(ErrorEvent{Err: terr})
		return nil, terr
	}
	c.logger.Info("voice saved", "id", saved.ID, "name", saved.Name)
	return saved, nil
}

// Pause suspends the active clip. Queued clips stay queued.
func (c *Client) Pause() error {
	return c.seq.pause()
}

// Resume continues a paused clip.
func (c *Client) Resume() error {
	return c.seq.resume()
}

// Stop halts the active clip, discards the queue, and arranges for any
// in-flight synthesis replies to be dropped on arrival. Every affected
// utterance resolves as not played.
func (c *Client) Stop() {
	c.stopGen.Add(1)
	c.seq.stop()
}

// FlushQueue discards queued clips while the active one keeps playing.
// It returns how many were dropped.
func (c *Client) FlushQueue() int {
	return c.seq.flush()
}

// Subscribe returns a new event stream. Callers must Close it when done.
func (c *Client) Subscribe() *Subscription {
	return c.events.subscribe()
}

// History returns every utterance spoken so far, oldest first.
func (c *Client) History() []Utterance {
	return c.hist.all()
}

// State returns the playback lifecycle state.
func (c *Client) State() State {
	return c.seq.state()
}

// QueueLen returns how many clips wait behind the active one.
func (c *Client) QueueLen() int {
	return c.seq.queueLen()
}

// Current returns the utterance whose clip is playing or paused; ok is
// false when nothing is active.
func (c *Client) Current() (u Utterance, ok bool) {
	t := c.seq.active()
	if t == nil {
		return Utterance{}, false
	}
	return t.utterance, true
}

// Position returns elapsed time and duration of the active clip; both are
// zero when nothing is active.
func (c *Client) Position() (elapsed, duration time.Duration) {
	return c.seq.position()
}

// Close stops playback, resolves everything in flight as not played, and
// releases the player and cache. The client is unusable afterwards.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.stopGen.Add(1)
		c.seq.close()

		errs := []error{c.player.Close()}
		if c.store != nil {
			errs = append(errs, c.store.Close())
		}
		c.events.close()
		err = errors.Join(errs...)
	})
	return err
}

func sliceCopy(voices []hume.CustomVoice) []hume.CustomVoice {
	out := make([]hume.CustomVoice, len(voices))
	copy(out, voices)
	return out
}
