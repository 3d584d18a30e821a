package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisProvider backs the blobstore with a Redis instance. It is used specifically for
// the `priter.job.inmem` fast path: when per-key state is memory-resident, snapshots
// are still durably published by pushing to Redis rather than a filesystem-backed blob
// store, which is cheaper for small, frequent snapshots than HDFS or S3 round-trips.
//
// Objects are stored as plain string values; List is backed by a Redis SET per prefix
// so that prefix membership can be queried without a KEYS scan.
type RedisProvider struct {
	*baseProvider

	addr     string
	password string
	db       int

	client *redis.Client
}

// NewRedisProvider returns a RedisProvider that will dial addr.
func NewRedisProvider(addr string) *RedisProvider {
	return &RedisProvider{
		baseProvider: newBaseProvider(addr, 0),
		addr:         addr,
	}
}

// SetPassword overrides the password used to authenticate to Redis. Has no effect once
// already connected; call before Connect.
func (p *RedisProvider) SetPassword(password string) {
	p.password = password
}

// SetDatabase overrides the logical database index. Has no effect once already
// connected; call before Connect.
func (p *RedisProvider) SetDatabase(db int) {
	p.db = db
}

func (p *RedisProvider) Connect(ctx context.Context) error {
	p.status = Connecting

	p.client = redis.NewClient(&redis.Options{
		Addr:     p.addr,
		Password: p.password,
		DB:       p.db,
	})

	if err := p.client.Ping(ctx).Err(); err != nil {
		p.status = Disconnected
		p.logger.Error("Failed to connect to Redis", zap.String("addr", p.addr), zap.Error(err))
		return err
	}

	p.status = Connected
	return nil
}

func (p *RedisProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *RedisProvider) Replication() int {
	return 1
}

func (p *RedisProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := p.client.Get(ctx, key).Bytes()
	if err != nil {
		p.logger.Error("Failed to read object from Redis", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (p *RedisProvider) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	return &redisWriter{ctx: ctx, provider: p, key: key}, nil
}

func (p *RedisProvider) List(ctx context.Context, prefix string) ([]string, error) {
	members, err := p.client.SMembers(ctx, prefixSetKey(prefix)).Result()
	if err != nil {
		p.logger.Error("Failed to list objects from Redis", zap.String("prefix", prefix), zap.Error(err))
		return nil, err
	}

	return members, nil
}

func prefixSetKey(prefix string) string {
	return fmt.Sprintf("__prefix__%s", prefix)
}

type redisWriter struct {
	ctx      context.Context
	provider *RedisProvider
	key      string
	buf      bytes.Buffer
}

func (w *redisWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *redisWriter) Close() error {
	pipe := w.provider.client.TxPipeline()
	pipe.Set(w.ctx, w.key, w.buf.Bytes(), 0)
	pipe.SAdd(w.ctx, prefixSetKey(keyPrefix(w.key)), w.key)

	_, err := pipe.Exec(w.ctx)
	if err != nil {
		w.provider.logger.Error("Failed to write object to Redis", zap.String("key", w.key), zap.Error(err))
	}
	return err
}

// keyPrefix returns the directory-like prefix of key, i.e. everything up to and
// including the final '/'.
func keyPrefix(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[:i+1]
		}
	}
	return ""
}
