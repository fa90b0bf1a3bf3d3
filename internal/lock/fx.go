package lock

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/netbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Provide picks redis-backed locking when a redis address is configured,
// falling back to the in-process locker for single-instance deployments.
func Provide(client *redis.Client, log *zap.Logger) Locker {
	if client != nil {
		return NewRedisLocker(client)
	}
	log.Warn("redis not configured, using in-process locks; run a single instance")
	return NewMemoryLocker()
}

var Module = fx.Module("lock",
	fx.Provide(
		NewRedisClient,
		Provide,
	),
)
