package appstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the pub/sub channel native shells publish transitions on.
const DefaultChannel = "app-state-changes"

// Message is the payload carried on the channel.
type Message struct {
	IsActive *bool `json:"is_active"`
}

var errMissingIsActive = errors.New("missing is_active")

// Decode parses a channel payload.
func Decode(payload []byte) (bool, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return false, fmt.Errorf("decode app state: %w", err)
	}
	if msg.IsActive == nil {
		return false, errMissingIsActive
	}
	return *msg.IsActive, nil
}

// PublishRedis announces a transition on channel.
func PublishRedis(ctx context.Context, client *redis.Client, channel string, isActive bool) error {
	payload, err := json.Marshal(Message{IsActive: &isActive})
	if err != nil {
		return err
	}
	return client.Publish(ctx, channel, payload).Err()
}

// RedisRelay forwards transitions published on a Redis channel into a Hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger
	ready   chan struct{}
}

// NewRedisRelay builds a relay. Call Run to start it.
func NewRedisRelay(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		hub:     hub,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the subscription is confirmed.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run relays messages until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			r.logger.Warn("app state subscription close", zap.Error(err))
		}
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	close(r.ready)
	r.logger.Info("relaying app state from redis", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			isActive, err := Decode([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn("dropping app state message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			r.hub.Publish(isActive)
		}
	}
}
