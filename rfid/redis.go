package rfid

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "kiosk:rfid:current"

// RedisReader shares the current scan between kiosk instances; the key's TTL
// is the scan window.
type RedisReader struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisReader(rdb *redis.Client, key string, ttl time.Duration) *RedisReader {
	if key == "" {
		key = DefaultRedisKey
	}
	if ttl <= 0 {
		ttl = DefaultScanTTL
	}
	return &RedisReader{rdb: rdb, key: key, ttl: ttl}
}

type scan struct {
	UID       string `json:"uid"`
	ScannedAt int64  `json:"at"`
}

func (r *RedisReader) Present(ctx context.Context, uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil
	}
	b, _ := json.Marshal(scan{UID: uid, ScannedAt: time.Now().Unix()})
	return r.rdb.Set(ctx, r.key, b, r.ttl).Err()
}

func (r *RedisReader) CurrentTag(ctx context.Context) (string, bool, error) {
	b, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var s scan
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false, err
	}
	return s.UID, s.UID != "", nil
}

func (r *RedisReader) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}
