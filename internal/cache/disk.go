package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "hum.index"

// diskCache is the persistent tier. Entries live as individual files named
// by key hash; a gob index carries their metadata across runs.
type diskCache struct {
	basePath string
	capacity int64

	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	mu    sync.Mutex
	size  int64
	index map[string]*diskEntry

	hits      int64
	misses    int64
	evictions int64
}

// diskEntry fields are exported for gob.
type diskEntry struct {
	Key        string
	FilePath   string
	Size       int64
	Timestamp  time.Time
	LastAccess time.Time
	Compressed bool
}

func newDiskCache(basePath string, capacity int64, compressionLevel int) (*diskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dc := &diskCache{
		basePath: basePath,
		capacity: capacity,
		compress: compressionLevel > 0,
		index:    make(map[string]*diskEntry),
	}

	if dc.compress {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		dc.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
	}

	// A damaged index is not fatal; the cache restarts empty.
	if err := dc.loadIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	for _, entry := range dc.index {
		dc.size += entry.Size
	}
	return dc, nil
}

func (dc *diskCache) get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		dc.dropLocked(key, entry)
		dc.misses++
		return nil, false
	}
	if entry.Compressed && dc.compress {
		decompressed, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			os.Remove(entry.FilePath)
			dc.dropLocked(key, entry)
			dc.misses++
			return nil, false
		}
		data = decompressed
	}

	entry.LastAccess = time.Now()
	dc.hits++
	return data, true
}

func (dc *diskCache) put(key string, value []byte) error {
	toWrite := value
	compressed := false
	// Tiny payloads are not worth the zstd frame overhead.
	if dc.compress && len(value) > 1024 {
		if c := dc.encoder.EncodeAll(value, nil); len(c) < len(value) {
			toWrite = c
			compressed = true
		}
	}
	diskSize := int64(len(toWrite))
	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if existing, ok := dc.index[key]; ok {
		os.Remove(existing.FilePath)
		dc.size -= existing.Size
		delete(dc.index, key)
	}
	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldestLocked()
	}

	path := dc.entryPath(key)
	if err := writeFileAtomic(path, toWrite); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:        key,
		FilePath:   path,
		Size:       diskSize,
		Timestamp:  now,
		LastAccess: now,
		Compressed: compressed,
	}
	dc.size += diskSize
	return nil
}

func (dc *diskCache) clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, entry := range dc.index {
		os.Remove(entry.FilePath)
	}
	dc.index = make(map[string]*diskEntry)
	dc.size = 0
	return dc.saveIndexLocked()
}

// removeOlderThan drops entries written before the cutoff and returns how
// many were removed.
func (dc *diskCache) removeOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, entry := range dc.index {
		if entry.Timestamp.Before(cutoff) {
			os.Remove(entry.FilePath)
			dc.dropLocked(key, entry)
			removed++
		}
	}
	return removed
}

func (dc *diskCache) stats() (hits, misses, evictions, size, items int64) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.hits, dc.misses, dc.evictions, dc.size, int64(len(dc.index))
}

func (dc *diskCache) close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.saveIndexLocked()
}

// dropLocked removes an entry from the index without touching its file.
func (dc *diskCache) dropLocked(key string, entry *diskEntry) {
	delete(dc.index, key)
	dc.size -= entry.Size
}

func (dc *diskCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range dc.index {
		if oldestKey == "" || entry.LastAccess.Before(oldest) {
			oldestKey = key
			oldest = entry.LastAccess
		}
	}
	if oldestKey == "" {
		return
	}
	entry := dc.index[oldestKey]
	os.Remove(entry.FilePath)
	dc.dropLocked(oldestKey, entry)
	dc.evictions++
}

func (dc *diskCache) entryPath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(dc.basePath, hex.EncodeToString(hash[:16])+".clip")
}

func (dc *diskCache) loadIndex() error {
	file, err := os.Open(filepath.Join(dc.basePath, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close() //nolint:errcheck
	return gob.NewDecoder(file).Decode(&dc.index)
}

func (dc *diskCache) saveIndexLocked() error {
	path := filepath.Join(dc.basePath, indexFile)
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(file).Encode(dc.index)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// writeFileAtomic writes through a temp file and renames into place so a
// crash never leaves a torn entry.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
