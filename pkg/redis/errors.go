package redis

import (
	"errors"

	redis "github.com/redis/go-redis/v9"
)

// IsNil reports whether err is the go-redis "key does not exist" reply.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
