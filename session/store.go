package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps transport-level store failures so callers can
// distinguish "cannot confirm state" from a confirmed absence.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store is the external credential store contract. The keeper only ever
// reads the session through Load, replaces it whole through Save, and wipes
// it through Clear. MarkerPresent checks the durable marker written by Save;
// a missing marker while a session is still held in memory means the session
// was cleared by something outside the running application.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
	MarkerPresent(ctx context.Context) (bool, error)
}

// RedisStore persists the session blob and its marker under two separate
// keys. The marker is deliberately a distinct key rather than the blob
// itself: wiping either one externally is detectable, and the marker stays
// cheap to probe on every reconcile tick.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store rooted at the given key prefix. A zero ttl
// stores the session without expiration; otherwise both keys share the ttl.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "sk"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) sessionKey() string { return r.prefix + ":session" }
func (r *RedisStore) markerKey() string  { return r.prefix + ":marker" }

// Load returns the stored session, or (nil, nil) when none is stored.
func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	blob, err := r.client.Get(ctx, r.sessionKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return Decode(blob)
}

// Save replaces the session blob and refreshes the marker in one pipeline,
// so the credential and identity can never be observed half-written.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	blob, err := Encode(s)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(), blob, r.ttl)
	pipe.Set(ctx, r.markerKey(), "1", r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Clear removes both keys. Clearing an already-empty store is not an error.
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.sessionKey(), r.markerKey()).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// MarkerPresent reports whether the durable marker still exists.
func (r *RedisStore) MarkerPresent(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, r.markerKey()).Result()
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	return n > 0, nil
}
