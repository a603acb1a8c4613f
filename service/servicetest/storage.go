// Package servicetest provides in-memory stand-ins for the stores the
// service layer depends on.
package servicetest

import (
	"context"
	"io"
	"sync"

	"github.com/tnqbao/gau-catalog-service/infra"
	"github.com/tnqbao/gau-catalog-service/infra/produce"
	"github.com/tnqbao/gau-catalog-service/utils"
)

type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	urls    utils.PublicURLBuilder

	// PutHook runs before an object is stored; a non-nil error fails the put.
	PutHook func(ctx context.Context, key string) error
	// DeleteHook runs before an object is removed; a non-nil error fails the delete.
	DeleteHook func(ctx context.Context, key string) error

	Puts        []string
	Deletes     []string
	inFlight    int
	maxInFlight int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		urls:    utils.PublicURLBuilder{BaseURL: "http://storage.test", Bucket: "catalog-media"},
	}
}

func (s *MemoryStorage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.PutHook != nil {
		if err := s.PutHook(ctx, key); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.Puts = append(s.Puts, key)
	return nil
}

func (s *MemoryStorage) DeleteObject(ctx context.Context, key string) error {
	if s.DeleteHook != nil {
		if err := s.DeleteHook(ctx, key); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes = append(s.Deletes, key)
	if _, ok := s.objects[key]; !ok {
		return infra.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStorage) PublicURL(key string) string {
	return s.urls.Build(key)
}

func (s *MemoryStorage) KeyFromURL(url string) (string, bool) {
	return s.urls.KeyFromURL(url)
}

// Seed stores an object without recording a put.
func (s *MemoryStorage) Seed(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

func (s *MemoryStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *MemoryStorage) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

func (s *MemoryStorage) DeleteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Deletes)
}

type RecordingPublisher struct {
	mu       sync.Mutex
	Err      error
	Messages []produce.MediaCleanupMessage
}

func (p *RecordingPublisher) PublishMediaCleanup(ctx context.Context, msg produce.MediaCleanupMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Messages = append(p.Messages, msg)
	return nil
}

func (p *RecordingPublisher) Published() []produce.MediaCleanupMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]produce.MediaCleanupMessage(nil), p.Messages...)
}
