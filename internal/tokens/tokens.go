// FilePath: internal/tokens/tokens.go

// Package tokens implements the redis-backed bearer token store used for
// API authentication. A token is an opaque random id mapping to an account
// id; expiry is handled entirely by redis TTLs.
package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/avisproject/avis-hub/internal/config"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

const keyPrefix = "avis:token:"

// Store issues and validates bearer tokens against redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis and verifies the connection before returning.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return &Store{client: client, ttl: cfg.Auth.TokenTTL}, nil
}

// Issue creates a fresh token for the account and stores it with the
// configured TTL.
func (s *Store) Issue(ctx context.Context, accountID string) (string, error) {
	token := nuts.NID("tok", 32)
	if err := s.client.Set(ctx, keyPrefix+token, accountID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("error storing token: %w", err)
	}
	nuts.L.Debugf("[Tokens] Issued token for account %s (ttl %s)", accountID, s.ttl)
	return token, nil
}

// Validate resolves a token to its account id. Unknown or expired tokens
// return redis.Nil.
func (s *Store) Validate(ctx context.Context, token string) (string, error) {
	accountID, err := s.client.Get(ctx, keyPrefix+token).Result()
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// Revoke deletes a token. Revoking an unknown token is not an error.
func (s *Store) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, keyPrefix+token).Err()
}

// Close releases the redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
