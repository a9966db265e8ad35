package blob

import (
	"context"
	"strings"
	"sync"

	"exam-room/internal/domain"
	"exam-room/internal/util"
)

// MemoryStore keeps blobs in process. URLs point at the blob route of the
// HTTP API.
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string]domain.Blob
	baseURL string
	newID   func() string
}

var _ domain.BlobStore = (*MemoryStore)(nil)

func NewMemoryStore(publicBaseURL string) *MemoryStore {
	return &MemoryStore{
		blobs:   make(map[string]domain.Blob),
		baseURL: publicBaseURL,
		newID:   util.NewULID,
	}
}

func (s *MemoryStore) Put(ctx context.Context, folder, name, contentType string, data []byte) (string, error) {
	id := s.newID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = domain.Blob{
		ID:          id,
		Name:        name,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
	}
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	b.Data = append([]byte(nil), b.Data...)
	return &b, nil
}

func (s *MemoryStore) URL(id string) string {
	return APIBlobURL(s.baseURL, id)
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// APIBlobURL builds the URL under which the HTTP API serves a blob.
func APIBlobURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/api/blobs/" + id
}
