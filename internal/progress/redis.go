package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/go-redis/redis/v8"
)

const keyPrefix = "bulkjob:"

// Redis is a Store shared by every server instance. Live snapshots expire
// after ttl so abandoned jobs never linger; terminal ones after grace.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	grace  time.Duration
}

var _ Store = (*Redis)(nil)

// NewRedis wraps a connected client
func NewRedis(client *redis.Client, ttl, grace time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, grace: grace}
}

// Connect opens a client and verifies it with PING
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Set(ctx context.Context, snap models.ProgressSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ttl := r.ttl
	if snap.Stage.Terminal() {
		ttl = r.grace
	}
	if err := r.client.Set(ctx, keyPrefix+snap.JobID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store progress for %s: %w", snap.JobID, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, jobID string) (models.ProgressSnapshot, error) {
	var snap models.ProgressSnapshot
	data, err := r.client.Get(ctx, keyPrefix+jobID).Bytes()
	if errors.Is(err, redis.Nil) {
		return snap, ErrNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("failed to load progress for %s: %w", jobID, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("corrupt progress for %s: %w", jobID, err)
	}
	return snap, nil
}

func (r *Redis) Delete(ctx context.Context, jobID string) error {
	return r.client.Del(ctx, keyPrefix+jobID).Err()
}
