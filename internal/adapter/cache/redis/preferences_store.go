package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/redis/go-redis/v9"
)

const preferencesKeyPrefix = "garala:preferences:"

// PreferencesStore keeps one JSON settings object per user, without expiry.
type PreferencesStore struct {
	client *redis.Client
}

func NewPreferencesStore(client *redis.Client) *PreferencesStore {
	return &PreferencesStore{client: client}
}

func preferencesKey(userID string) string {
	return preferencesKeyPrefix + userID
}

func (s *PreferencesStore) Load(ctx context.Context, userID string) (*domain.Preferences, error) {
	val, err := s.client.Get(ctx, preferencesKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get preferences for user %s from redis: %w", userID, err)
	}

	var p domain.Preferences
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences for user %s: %w", userID, err)
	}
	return &p, nil
}

func (s *PreferencesStore) Save(ctx context.Context, p *domain.Preferences) error {
	if p == nil || p.UserID == "" {
		return errors.New("cannot save preferences without a user id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences for user %s: %w", p.UserID, err)
	}
	if err := s.client.Set(ctx, preferencesKey(p.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save preferences for user %s to redis: %w", p.UserID, err)
	}
	return nil
}
