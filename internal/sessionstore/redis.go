package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "tgflow:session:"
	redisIndexKey  = "tgflow:sessions"
)

// Redis stores each session as a hash under tgflow:session:<name> and keeps
// the names in the tgflow:sessions set.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

var _ Store = (*Redis)(nil)

// OpenRedis connects to url and verifies the server answers.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	if url == "" {
		return nil, errors.New("sessionstore: redis url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sessionstore: ping redis: %w", err)
	}
	return NewRedis(client), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

// Load implements Store.
func (r *Redis) Load(ctx context.Context, name string) (Entry, error) {
	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+name).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("sessionstore: load %s: %w", name, err)
	}
	if len(fields) == 0 {
		return Entry{}, ErrNotFound
	}
	e := entryFromHash(name, fields)
	e.Session = []byte(fields["session"])
	return e, nil
}

// Save implements Store.
func (r *Redis) Save(ctx context.Context, e Entry) error {
	if err := ValidateName(e.Name); err != nil {
		return err
	}
	if e.Session.Empty() {
		return errors.New("sessionstore: refusing to save an empty session")
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, redisKeyPrefix+e.Name,
			"session", []byte(e.Session),
			"user_id", e.UserID,
			"username", e.Username,
			"updated_at", r.now().UTC().Format(time.RFC3339Nano),
		)
		p.SAdd(ctx, redisIndexKey, e.Name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("sessionstore: save %s: %w", e.Name, err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, name string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, redisKeyPrefix+name)
		p.SRem(ctx, redisIndexKey, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("sessionstore: delete %s: %w", name, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements Store. Sessions are not loaded.
func (r *Redis) List(ctx context.Context) ([]Entry, error) {
	names, err := r.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("sessionstore: list: %w", err)
	}
	slices.Sort(names)

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		fields, err := r.client.HMGet(ctx, redisKeyPrefix+name, "user_id", "username", "updated_at").Result()
		if err != nil {
			return nil, fmt.Errorf("sessionstore: list %s: %w", name, err)
		}
		if fields[2] == nil {
			// Hash expired or removed behind our back.
			continue
		}
		out = append(out, entryFromHash(name, map[string]string{
			"user_id":    str(fields[0]),
			"username":   str(fields[1]),
			"updated_at": str(fields[2]),
		}))
	}
	return out, nil
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}

func entryFromHash(name string, fields map[string]string) Entry {
	updated, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])
	return Entry{
		Name:      name,
		UserID:    fields["user_id"],
		Username:  fields["username"],
		UpdatedAt: updated,
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
