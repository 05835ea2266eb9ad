package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckoutSession carries the minisite metadata attached to an in-flight
// checkout. It is the last-resort source activation falls back to when an
// order arrives without minisite metadata.
type CheckoutSession struct {
	MinisiteID    string `json:"minisite_id"`
	SlugPath      string `json:"minisite_slug"`
	ReservationID string `json:"minisite_reservation_id"`
}

// SessionCache stores checkout sessions in redis, keyed by user.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache connects to redis and returns a SessionCache. Sessions
// outlive the 5-minute reservation window by a margin so a slow payment
// flow can still resolve its metadata.
func NewSessionCache(ctx context.Context, redisURL string) (*SessionCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &SessionCache{client: client, ttl: time.Hour}, nil
}

func sessionKey(userID string) string {
	return "minisite:checkout:" + userID
}

// Set stores the user's checkout session.
func (c *SessionCache) Set(ctx context.Context, userID string, session *CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout session: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store checkout session: %w", err)
	}
	return nil
}

// Get returns the user's checkout session, or nil on a miss.
func (c *SessionCache) Get(ctx context.Context, userID string) (*CheckoutSession, error) {
	data, err := c.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	var session CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	return &session, nil
}

// Delete removes the user's checkout session.
func (c *SessionCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, sessionKey(userID)).Err()
}

// Ping checks the redis connection (for health checks).
func (c *SessionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis connection.
func (c *SessionCache) Close() error {
	return c.client.Close()
}
