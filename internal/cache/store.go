package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/hum/tts/hume"
)

const voicesFile = "voices.json"

// Store coordinates the memory and disk tiers. Lookups try memory first,
// then disk with promotion back into memory.
type Store struct {
	memory *memoryCache
	disk   *diskCache
	cfg    Config
	logger *log.Logger

	closed atomic.Bool

	janitorStop chan struct{}
	janitorWg   sync.WaitGroup
}

// New opens a store rooted at cfg.Dir, creating the directory as needed.
func New(cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.Dir = filepath.Join(home, ".cache", "hum")
	}
	if logger == nil {
		logger = log.Default()
	}

	disk, err := newDiskCache(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}

	s := &Store{
		memory:      newMemoryCache(cfg.MemoryCapacity),
		disk:        disk,
		cfg:         cfg,
		logger:      logger,
		janitorStop: make(chan struct{}),
	}
	if cfg.TTL > 0 && cfg.CleanupInterval > 0 {
		s.janitorWg.Add(1)
		go s.janitor()
	}
	return s, nil
}

// Key derives the cache key for one synthesis request. Everything that
// changes the generated audio participates: the utterance itself, its voice,
// and the context window it was generated against.
func Key(text, description, voiceID string, context []string) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteByte('|')
	b.WriteString(description)
	b.WriteByte('|')
	b.WriteString(voiceID)
	for _, c := range context {
		b.WriteByte('|')
		b.WriteString(c)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:16])
}

// GetGeneration looks up a cached synthesis result.
func (s *Store) GetGeneration(key string) (hume.Generation, bool) {
	var gen hume.Generation
	if s.closed.Load() {
		return gen, false
	}

	data, ok := s.memory.get(key)
	if !ok {
		data, ok = s.disk.get(key)
		if !ok {
			return gen, false
		}
		// Promote so the next lookup skips the disk.
		if err := s.memory.put(key, data); err != nil {
			s.logger.Debug("cache promotion skipped", "key", key, "err", err)
		}
	}

	if err := json.Unmarshal(data, &gen); err != nil {
		s.logger.Warn("corrupt cache entry dropped", "key", key, "err", err)
		return gen, false
	}
	return gen, true
}

// PutGeneration stores a synthesis result in both tiers.
func (s *Store) PutGeneration(key string, gen hume.Generation) error {
	if s.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(gen)
	if err != nil {
		return fmt.Errorf("marshal generation: %w", err)
	}
	if err := s.memory.put(key, data); err != nil && err != ErrItemTooLarge {
		return err
	}
	return s.disk.put(key, data)
}

// Voices loads the persisted voice list snapshot. A missing or damaged
// snapshot is an empty list.
func (s *Store) Voices() []hume.CustomVoice {
	if s.closed.Load() {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(s.cfg.Dir, voicesFile))
	if err != nil {
		return nil
	}
	var voices []hume.CustomVoice
	if err := json.Unmarshal(data, &voices); err != nil {
		s.logger.Warn("corrupt voice snapshot ignored", "err", err)
		return nil
	}
	return voices
}

// PutVoices replaces the persisted voice list snapshot wholesale.
func (s *Store) PutVoices(voices []hume.CustomVoice) error {
	if s.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(voices)
	if err != nil {
		return fmt.Errorf("marshal voices: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.cfg.Dir, voicesFile), data)
}

// Clear empties both tiers. The voice snapshot survives; it is replaced on
// the next refresh rather than invalidated.
func (s *Store) Clear() error {
	s.memory.clear()
	return s.disk.clear()
}

// Stats reports combined counters of both tiers.
func (s *Store) Stats() Stats {
	memHits, _, memEvict, memSize := s.memory.stats()
	diskHits, diskMisses, diskEvict, diskSize, items := s.disk.stats()
	return Stats{
		MemoryHits:  memHits,
		DiskHits:    diskHits,
		Misses:      diskMisses,
		Evictions:   memEvict + diskEvict,
		MemoryBytes: memSize,
		DiskBytes:   diskSize,
		Items:       items,
	}
}

// Close flushes the disk index and stops the janitor. The store rejects
// further writes.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.janitorStop)
	s.janitorWg.Wait()
	return s.disk.close()
}

func (s *Store) janitor() {
	defer s.janitorWg.Done()
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.janitorStop:
			return
		case <-ticker.C:
			if removed := s.disk.removeOlderThan(time.Now().Add(-s.cfg.TTL)); removed > 0 {
				s.logger.Debug("expired cache entries removed", "count", removed)
			}
		}
	}
}
