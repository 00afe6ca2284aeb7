package job

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"autosubrt-server-go/internal/platform/errors"
)

type memoryStore struct {
	items       map[string]Record
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory 创建内存任务存储，过期记录由后台协程定期清理
func NewMemory(ttl time.Duration) Store {
	s := &memoryStore{
		items:       make(map[string]Record),
		ttl:         ttl,
		cleanupFreq: 5 * time.Minute,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) expired(rec Record, now time.Time) bool {
	return s.ttl > 0 && now.Sub(rec.CreatedAt) > s.ttl
}

func (s *memoryStore) Save(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New(errors.KindValidation, "job.save", "job id required")
	}
	touch(&rec, time.Now())
	s.mutex.Lock()
	s.items[rec.ID] = cloneRecord(rec)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mutex.RLock()
	rec, ok := s.items[id]
	s.mutex.RUnlock()
	if !ok || s.expired(rec, time.Now()) {
		return Record{}, errors.New(errors.KindNotFound, "job.get", fmt.Sprintf("job not found: %s", id))
	}
	return cloneRecord(rec), nil
}

func (s *memoryStore) List(_ context.Context, limit int) ([]Record, error) {
	now := time.Now()
	s.mutex.RLock()
	out := make([]Record, 0, len(s.items))
	for _, rec := range s.items {
		if !s.expired(rec, now) {
			out = append(out, cloneRecord(rec))
		}
	}
	s.mutex.RUnlock()
	return newestFirst(out, limit), nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for id, rec := range s.items {
		if s.expired(rec, now) {
			delete(s.items, id)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}

func cloneRecord(rec Record) Record {
	if rec.Timings != nil {
		timings := make(map[string]int64, len(rec.Timings))
		for k, v := range rec.Timings {
			timings[k] = v
		}
		rec.Timings = timings
	}
	return rec
}

func newestFirst(records []Record, limit int) []Record {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}
