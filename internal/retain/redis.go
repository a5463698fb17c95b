package retain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DovieW/tangerine-voice-sub000/internal/audio"
)

const defaultTTL = 30 * time.Minute

// Redis keeps retained audio in redis with a TTL, so retry survives an
// engine restart when configured. Keys: retain:<request_id>.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func key(requestID string) string {
	return "retain:" + requestID
}

// envelope stores samples as little-endian 16-bit PCM instead of a JSON
// float array, roughly an 8x size cut per retained recording.
type envelope struct {
	PCM        []byte      `json:"pcm"`
	SampleRate int         `json:"sample_rate"`
	Device     string      `json:"device"`
	Stats      audio.Stats `json:"stats"`
}

func encodeCaptured(captured audio.Captured) ([]byte, error) {
	return json.Marshal(envelope{
		PCM:        audio.Float32ToPCMBytes(captured.Samples),
		SampleRate: captured.SampleRate,
		Device:     captured.Device,
		Stats:      captured.Stats,
	})
}

func decodeCaptured(data []byte) (audio.Captured, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return audio.Captured{}, err
	}
	return audio.Captured{
		Samples:    audio.PCMBytesToFloat32(env.PCM),
		SampleRate: env.SampleRate,
		Device:     env.Device,
		Stats:      env.Stats,
	}, nil
}

func (r *Redis) Put(ctx context.Context, requestID string, captured audio.Captured) error {
	data, err := encodeCaptured(captured)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(requestID), data, r.ttl).Err()
}

func (r *Redis) Get(ctx context.Context, requestID string) (audio.Captured, bool, error) {
	data, err := r.client.Get(ctx, key(requestID)).Bytes()
	if err == redis.Nil {
		return audio.Captured{}, false, nil
	}
	if err != nil {
		return audio.Captured{}, false, err
	}

	captured, err := decodeCaptured(data)
	if err != nil {
		return audio.Captured{}, false, err
	}
	return captured, true, nil
}

func (r *Redis) Delete(ctx context.Context, requestID string) error {
	return r.client.Del(ctx, key(requestID)).Err()
}

func (r *Redis) Clear(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, "retain:*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
