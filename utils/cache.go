package utils

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// NewSessionCacheClient builds the Redis client that backs booking-session
// persistence. Callers own the client and pass it to the session store.
func NewSessionCacheClient(addr, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Session Cache): %v", err)
	}
	return client
}
