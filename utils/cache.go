// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"snaplink/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionCacheClient stores wizard sessions and submit locks.
	SessionCacheClient *redis.Client
	// AuthCacheClient stores backend credentials per auth session.
	AuthCacheClient *redis.Client
	// QueueCacheClient watches the database the reminder queue runs on.
	QueueCacheClient *redis.Client
)

func newRedisClient(db int, name string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (%s): %v", name, err)
	}
	return client
}

// InitSessionCache initializes the Redis client used for wizard sessions.
func InitSessionCache() {
	SessionCacheClient = newRedisClient(config.AppConfig.RedisSessionDB, "Session Cache")
}

// GetSessionCacheClient returns the wizard session client.
func GetSessionCacheClient() *redis.Client {
	if SessionCacheClient == nil {
		InitSessionCache()
	}
	return SessionCacheClient
}

// InitAuthCache initializes the Redis client for stored backend credentials.
func InitAuthCache() {
	AuthCacheClient = newRedisClient(config.AppConfig.RedisAuthDB, "Auth Cache")
}

// GetAuthCacheClient returns the Redis client for stored backend credentials.
func GetAuthCacheClient() *redis.Client {
	if AuthCacheClient == nil {
		InitAuthCache()
	}
	return AuthCacheClient
}

// GetQueueCacheClient returns the Redis client of the reminder queue database.
func GetQueueCacheClient() *redis.Client {
	if QueueCacheClient == nil {
		QueueCacheClient = newRedisClient(config.AppConfig.RedisQueueDB, "Reminder Queue")
	}
	return QueueCacheClient
}

// InitRedis connects every Redis client the service uses.
func InitRedis() {
	GetSessionCacheClient()
	GetAuthCacheClient()
	GetQueueCacheClient()
}
