package failcache

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"github.com/matheus3301/buddytalk/internal/chat"
	"go.uber.org/zap"
)

// DefaultKey is the storage key of the persisted record.
const DefaultKey = "app-local-storage"

// ErrNotFound is returned by Storage.Load when nothing was stored under the key.
var ErrNotFound = errors.New("local record not found")

// Storage persists one opaque record per key.
type Storage interface {
	Load(key string) ([]byte, error)
	Save(key string, value []byte) error
}

// record is the persisted document.
type record struct {
	FailedSendRecords []chat.Message `json:"failedSendRecords"`
}

// Cache is the durable failure store. It is read once from storage at Init
// and written back after every merge that changes its content.
type Cache struct {
	mu       sync.RWMutex
	storage  Storage
	key      string
	records  []chat.Message
	loaded   bool
	degraded bool
	logger   *zap.Logger
}

// Init seeds a cache from storage. A storage failure does not prevent use:
// the cache starts empty and is marked degraded, and nothing is saved until
// a later Write manages to read the stored document and merge into it.
func Init(storage Storage, key string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = DefaultKey
	}
	c := &Cache{storage: storage, key: key, records: []chat.Message{}, logger: logger}

	recs, err := c.load()
	switch {
	case errors.Is(err, ErrNotFound):
		c.loaded = true
		logger.Debug("no failed-send records stored", zap.String("key", key))
	case err != nil:
		c.degraded = true
		c.loaded = !unreadable(err)
		logger.Warn("failed-send records unavailable, continuing in memory", zap.Error(err))
	default:
		c.loaded = true
		c.records = Merge(nil, recs)
		logger.Info("failed-send records loaded", zap.Int("count", len(c.records)))
	}
	return c
}

func (c *Cache) load() ([]chat.Message, error) {
	if c.storage == nil {
		return nil, ErrNotFound
	}
	data, err := c.storage.Load(c.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &chat.PersistenceError{Op: "read", Key: c.key, Err: err}
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &chat.PersistenceError{Op: "decode", Key: c.key, Err: err}
	}
	for i := range rec.FailedSendRecords {
		rec.FailedSendRecords[i].Status = chat.Failed
	}
	return rec.FailedSendRecords, nil
}

// unreadable reports whether err left the stored document unknown, as opposed
// to absent or undecodable.
func unreadable(err error) bool {
	var pe *chat.PersistenceError
	return errors.As(err, &pe) && pe.Op == "read"
}

// Read returns a copy of all records in insertion order.
func (c *Cache) Read() []chat.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.records)
}

// Len returns the number of stored records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Degraded reports whether a storage failure means durability is not guaranteed.
func (c *Cache) Degraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded
}

// Write merges incoming records into the cache and persists the result when
// it changed. The in-memory merge always takes effect; a *chat.PersistenceError
// reports that the write did not reach storage. While the stored document
// cannot be read, Write never saves, so records persisted earlier survive.
func (c *Cache) Write(incoming ...chat.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := false
	if !c.loaded {
		stored, err := c.load()
		switch {
		case err == nil || !unreadable(err):
			// Stored records keep precedence over ones added while degraded.
			merged := Merge(stored, c.records)
			pending = len(merged) != len(stored)
			c.records = merged
			c.loaded = true
			c.logger.Info("failed-send records recovered", zap.Int("stored", len(stored)), zap.Int("count", len(merged)))
		default:
			c.records = Merge(c.records, incoming)
			c.degraded = true
			c.logger.Warn("failed-send record kept in memory, stored records unreadable", zap.String("key", c.key), zap.Error(err))
			return err
		}
	}

	merged := Merge(c.records, incoming)
	if len(merged) == len(c.records) && !pending {
		return nil
	}
	c.records = merged

	if c.storage == nil {
		return nil
	}
	data, err := json.Marshal(record{FailedSendRecords: merged})
	if err != nil {
		return &chat.PersistenceError{Op: "encode", Key: c.key, Err: err}
	}
	if err := c.storage.Save(c.key, data); err != nil {
		c.degraded = true
		c.logger.Warn("failed-send record not persisted", zap.String("key", c.key), zap.Error(err))
		return &chat.PersistenceError{Op: "write", Key: c.key, Err: err}
	}
	c.degraded = false
	return nil
}
