package db

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/go-redis/redis/v8"
	pkgerrors "github.com/pkg/errors"
)

const (
	classesKey      = "attendance:classes" // Set: stores every saved class name
	classInfoPrefix = "attendance:class:"  // String prefix: attendance:class:{name} -> ClassRecord JSON
)

// KeyValueStore is the persistence boundary: one string value per class name
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Keys(ctx context.Context) ([]string, error)
}

// RedisOptions configures the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps class records in Redis
type RedisStore struct {
	Client *redis.Client
}

// NewRedisStore creates a new RedisStore instance
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

// Helper to generate class info key
func getClassInfoKey(className string) string {
	return classInfoPrefix + className
}

// Get reads the record stored for a class name
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.Client.Get(ctx, getClassInfoKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		slog.Error("redis get failed", "class", key, "error", err)
		return "", false, classifyRedisError(err)
	}
	return val, true, nil
}

// saveClassScript writes the record and indexes the class name atomically.
// Redis checks maxmemory before the first write, so an OOM refusal leaves both untouched.
var saveClassScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[2], ARGV[2])
return 1
`)

// Set writes the record and indexes the class name in one step
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	keys := []string{getClassInfoKey(key), classesKey}
	if err := saveClassScript.Run(ctx, s.Client, keys, value, key).Err(); err != nil {
		slog.Error("redis set failed", "class", key, "bytes", len(value), "error", err)
		return classifyRedisError(err)
	}
	return nil
}

// Keys lists every class name that has been saved
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	names, err := s.Client.SMembers(ctx, classesKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		slog.Error("redis smembers failed", "key", classesKey, "error", err)
		return nil, classifyRedisError(err)
	}
	sort.Strings(names)
	return names, nil
}

// InitializeRedisClient creates and tests a Redis client connection
func InitializeRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Ping Redis to check connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, pkgerrors.Wrapf(err, "could not connect to redis at %s", opts.Addr)
	}

	slog.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)
	return rdb, nil
}
