package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects and pings so a bad address fails at startup, not on
// the first room write.
func NewRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}
