package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omnibank/fraudline-voice-service/pkg/logger"
)

// Config holds the Redis connection settings.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ErrKeyNotExist is returned by GetValue when the key is absent.
var ErrKeyNotExist = redis.Nil

// ServiceInterface is the narrow Redis surface the service uses: session
// monitoring keys plus the cleanup pubsub channel.
type ServiceInterface interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key string, value string, ttl time.Duration) error
	DelValue(ctx context.Context, key string) error
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler func(string)) error
}

// Service implements ServiceInterface on a go-redis client.
type Service struct {
	client *redis.Client
}

// NewService connects to Redis and verifies the connection.
func NewService(cfg *Config) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{client: client}, nil
}

// GetValue gets a value from Redis by key
func (s *Service) GetValue(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

// SetValue sets a value in Redis with TTL
func (s *Service) SetValue(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// DelValue deletes a value from Redis by key
func (s *Service) DelValue(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Publish publishes a message to a Redis channel. Non-string messages are
// JSON-encoded.
func (s *Service) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal pubsub message: %w", err)
	}
	return s.client.Publish(ctx, channel, string(data)).Err()
}

// Subscribe subscribes to a channel and invokes handler for each payload
// on a background goroutine until ctx is cancelled.
func (s *Service) Subscribe(ctx context.Context, channel string, handler func(string)) error {
	sub := s.client.Subscribe(ctx, channel)

	// Confirm the subscription before returning.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(msg.Payload)
			}
		}
	}()

	logger.L().Infow("Subscribed to Redis channel", "channel", channel)
	return nil
}

// Close releases the underlying client.
func (s *Service) Close() error {
	return s.client.Close()
}
