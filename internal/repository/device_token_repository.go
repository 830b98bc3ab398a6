package repository

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

const deviceTokenKeyPrefix = "push:tokens:"

// DeviceTokenRepository looks up registered device tokens for an address.
// Addresses are matched case-insensitively.
type DeviceTokenRepository interface {
	TokensFor(ctx context.Context, email string) ([]string, error)
}

type deviceTokenRepository struct {
	client *redis.Client
}

// NewDeviceTokenRepository returns a Redis-backed implementation.
func NewDeviceTokenRepository(client *redis.Client) DeviceTokenRepository {
	return &deviceTokenRepository{client: client}
}

func (r *deviceTokenRepository) TokensFor(ctx context.Context, email string) ([]string, error) {
	key := deviceTokenKeyPrefix + strings.ToLower(strings.TrimSpace(email))
	tokens, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return tokens, nil
}
