package blob

import (
	"context"
	"fmt"

	"exam-room/internal/cache"
	"exam-room/internal/domain"
	"exam-room/internal/util"

	"github.com/redis/go-redis/v9"
)

const redisComponent = "store"

// RedisStore keeps each blob in one redis hash.
type RedisStore struct {
	client  redis.Cmdable
	baseURL string
	newID   func() string
}

var _ domain.BlobStore = (*RedisStore)(nil)

func NewRedisStore(client redis.Cmdable, publicBaseURL string) *RedisStore {
	return &RedisStore{client: client, baseURL: publicBaseURL, newID: util.NewULID}
}

func (s *RedisStore) Put(ctx context.Context, folder, name, contentType string, data []byte) (string, error) {
	id := s.newID()
	key := cache.GenerateKey(redisComponent, cache.ObjectBlob, id)
	err := s.client.HSet(ctx, key,
		"folder", folder,
		"name", name,
		"contentType", contentType,
		"data", data,
	).Err()
	if err != nil {
		return "", fmt.Errorf("redis HSET failed for key %s: %w", key, err)
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Blob, error) {
	key := cache.GenerateKey(redisComponent, cache.ObjectBlob, id)
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL failed for key %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrBlobNotFound
	}
	return &domain.Blob{
		ID:          id,
		Name:        fields["name"],
		ContentType: fields["contentType"],
		Data:        []byte(fields["data"]),
	}, nil
}

func (s *RedisStore) URL(id string) string {
	return APIBlobURL(s.baseURL, id)
}
