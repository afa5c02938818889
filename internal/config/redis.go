package config

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

var (
	Ctx   = context.Background()
	Redis *redis.Client
)

// InitRedis connects the shared client. Redis backs rate-limit counters and the
// generation status counters shown on the monitoring endpoint.
func InitRedis() {
	Redis = redis.NewClient(&redis.Options{
		Addr:     GetEnv("REDIS_ADDR", "127.0.0.1:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       GetEnvInt("REDIS_DB", 0),
	})

	if err := Redis.Ping(Ctx).Err(); err != nil {
		log.Fatal("[redis] not reachable: ", err)
	}
	log.Println("[redis] connected")
}
