package tts

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/hum/tts/audio"
)

// completionPollInterval is how often the run loop checks whether the
// active clip has finished.
const completionPollInterval = 10 * time.Millisecond

// sequencer plays synthesized clips strictly in the order they were
// enqueued, one at a time. A single goroutine owns playback; control calls
// (pause, resume, stop, flush) arrive from other goroutines and communicate
// through the task's interrupt channel and shared flags.
type sequencer struct {
	player  audio.Player
	events  *hub
	logger  *log.Logger
	machine *StateMachine

	mu       sync.Mutex
	queue    []*task
	current  *task
	paused   bool
	draining bool

	// transMu serializes state transitions with their change events.
	transMu sync.Mutex

	wake      chan struct{}
	quit      chan struct{}
	finished  chan struct{}
	closeOnce sync.Once
}

func newSequencer(player audio.Player, events *hub, logger *log.Logger) *sequencer {
	s := &sequencer{
		player:   player,
		events:   events,
		logger:   logger,
		machine:  NewStateMachine(),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go s.run()
	return s
}

// enqueue appends a task to the playback queue and wakes the run loop. A
// task arriving after shutdown resolves immediately as not played.
func (s *sequencer) enqueue(t *task) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		t.resolve(false)
		return
	}
	s.queue = append(s.queue, t)
	n := len(s.queue)
	s.mu.Unlock()

	s.logger.Debug("clip enqueued", "id", t.id, "queued", n)
	s.notify()
}

func (s *sequencer) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *sequencer) run() {
	defer close(s.finished)
	for {
		select {
		case <-s.quit:
			s.drain()
			return
		case <-s.wake:
			s.runQueue()
		}
	}
}

// runQueue plays tasks until the queue empties or the sequencer quits.
func (s *sequencer) runQueue() {
	for {
		select {
		case <-s.quit:
			return
		default:
		}
		t := s.pop()
		if t == nil {
			return
		}
		s.play(t)
	}
}

// pop activates the next task. When the queue is empty it clears the active
// clip, announces the drain, and returns nil.
func (s *sequencer) pop() *task {
	s.mu.Lock()
	if len(s.queue) == 0 {
		hadClip := s.current != nil
		s.current = nil
		s.paused = false
		s.mu.Unlock()
		if hadClip {
			s.events.publish(ClipChangedEvent{Clip: nil})
		}
		s.transition(StateIdle)
		return nil
	}
	t := s.queue[0]
	s.queue = s.queue[1:]
	s.current = t
	s.paused = false
	s.mu.Unlock()

	s.transition(StateRunning)
	return t
}

func (s *sequencer) play(t *task) {
	if err := s.player.Play(t.clip); err != nil {
		s.logger.Error("clip playback failed", "id", t.id, "err", err)
		t.resolve(false)
		s.events.publish(ErrorEvent{Err: err})
		return
	}

	s.events.publish(ClipChangedEvent{Clip: t.clip})
	s.events.publish(UtteranceStartedEvent{
		ID:       t.id,
		Text:     t.utterance.Text,
		Duration: t.clip.Duration(),
	})
	s.logger.Debug("clip started", "id", t.id, "duration", t.clip.Duration())

	played := s.await(t)
	t.resolve(played)
	s.events.publish(UtteranceStoppedEvent{
		ID:     t.id,
		Text:   t.utterance.Text,
		Played: played,
	})
}

// await blocks until the active clip finishes or is torn down, reporting
// whether it played to completion. Stops interrupt the task before touching
// the player, so an inactive player without an interrupt means the clip ran
// out naturally.
func (s *sequencer) await(t *task) bool {
	ticker := time.NewTicker(completionPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			_ = s.player.Stop()
			return false
		case <-t.interrupted:
			_ = s.player.Stop()
			return false
		case <-ticker.C:
			s.mu.Lock()
			if s.paused {
				s.mu.Unlock()
				continue
			}
			playing := s.player.IsPlaying()
			s.mu.Unlock()
			if playing {
				continue
			}
			select {
			case <-t.interrupted:
				return false
			default:
			}
			return true
		}
	}
}

// pause suspends the active clip. The queue keeps its contents.
func (s *sequencer) pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return audio.ErrNotPlaying
	}
	if err := s.player.Pause(); err != nil {
		return err
	}
	s.paused = true
	s.logger.Debug("playback paused", "id", s.current.id)
	return nil
}

// resume continues a paused clip.
func (s *sequencer) resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || !s.paused {
		return audio.ErrNotPaused
	}
	if err := s.player.Resume(); err != nil {
		return err
	}
	s.paused = false
	s.logger.Debug("playback resumed", "id", s.current.id)
	return nil
}

// stop tears down the active clip and discards every queued one. All
// affected tasks resolve as not played.
func (s *sequencer) stop() {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	cur := s.current
	s.paused = false
	s.mu.Unlock()

	for _, t := range pending {
		t.resolve(false)
	}
	if cur != nil {
		s.transition(StateStopped)
		cur.interrupt()
		_ = s.player.Stop()
	}
	if cur != nil || len(pending) > 0 {
		s.logger.Debug("playback stopped", "discarded", len(pending))
	}
}

// flush discards queued clips without touching the active one. It returns
// how many were dropped.
func (s *sequencer) flush() int {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, t := range pending {
		t.resolve(false)
	}
	if len(pending) > 0 {
		s.logger.Debug("queue flushed", "discarded", len(pending))
	}
	return len(pending)
}

// transition moves the state machine and publishes the change. Invalid or
// same-state transitions are ignored.
func (s *sequencer) transition(to State) {
	s.transMu.Lock()
	defer s.transMu.Unlock()
	from := s.machine.Current()
	if from == to {
		return
	}
	if !s.machine.Transition(to) {
		return
	}
	s.events.publish(StateChangedEvent{From: from, To: to})
}

// state returns the sequencer's lifecycle state.
func (s *sequencer) state() State {
	return s.machine.Current()
}

// queueLen returns how many clips wait behind the active one.
func (s *sequencer) queueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// active returns the task whose clip is playing or paused, nil when idle.
func (s *sequencer) active() *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// position returns elapsed time and duration of the active clip, both zero
// when nothing is active.
func (s *sequencer) position() (time.Duration, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0, 0
	}
	return s.player.Position(), s.current.clip.Duration()
}

// close shuts the run loop down and resolves everything still in flight as
// not played.
func (s *sequencer) close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.finished
}

// drain resolves leftover tasks when the run loop exits.
func (s *sequencer) drain() {
	_ = s.player.Stop()

	s.mu.Lock()
	s.draining = true
	pending := s.queue
	s.queue = nil
	cur := s.current
	s.current = nil
	s.mu.Unlock()

	if cur != nil {
		cur.resolve(false)
	}
	for _, t := range pending {
		t.resolve(false)
	}
}
