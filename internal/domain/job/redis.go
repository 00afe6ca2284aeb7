package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/errors"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis 创建 redis 任务存储，过期交给 key 的 TTL
func NewRedis(cfg config.JobsRedisConf, ttl time.Duration) (Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "autosubrt:job:"
	}
	return &redisStore{client: client, ttl: ttl, prefix: prefix}, nil
}

func (s *redisStore) key(id string) string {
	return s.prefix + id
}

func (s *redisStore) Save(ctx context.Context, rec Record) error {
	const op = "job.save"
	if rec.ID == "" {
		return errors.New(errors.KindValidation, op, "job id required")
	}
	touch(&rec, time.Now())
	data, err := sonic.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.KindStorage, op, "encode job", err)
	}

	expiry := time.Duration(0)
	if s.ttl > 0 {
		expiry = s.ttl - time.Since(rec.CreatedAt)
		if expiry <= 0 {
			expiry = time.Second
		}
	}
	if err := s.client.Set(ctx, s.key(rec.ID), data, expiry).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, op, "set job "+rec.ID, err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, id string) (Record, error) {
	const op = "job.get"
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return Record{}, errors.New(errors.KindNotFound, op, fmt.Sprintf("job not found: %s", id))
	}
	if err != nil {
		return Record{}, errors.Wrap(errors.KindStorage, op, "get job "+id, err)
	}
	var rec Record
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return Record{}, errors.Wrap(errors.KindStorage, op, "decode job "+id, err)
	}
	return rec, nil
}

func (s *redisStore) List(ctx context.Context, limit int) ([]Record, error) {
	const op = "job.list"
	var cursor uint64
	keys := make([]string, 0)
	pattern := s.prefix + "*"
	for {
		res, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, errors.Wrap(errors.KindStorage, op, "scan jobs", err)
		}
		keys = append(keys, res...)
		if next == 0 {
			break
		}
		cursor = next
	}
	if len(keys) == 0 {
		return []Record{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "load jobs", err)
	}
	out := make([]Record, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := sonic.UnmarshalString(raw, &rec); err != nil {
			continue
		}
		if rec.ID == "" {
			rec.ID = strings.TrimPrefix(keys[i], s.prefix)
		}
		out = append(out, rec)
	}
	return newestFirst(out, limit), nil
}

func (s *redisStore) CleanupExpired(context.Context) error {
	// key 自带 TTL
	return nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
