// Package cache provides Redis-based caching for completeness check results
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedReport is a completeness report produced by one scheduled check run
type CachedReport struct {
	CheckName   string                 `json:"check_name"`
	RunID       string                 `json:"run_id"`
	DataState   string                 `json:"data_state"`
	Start       time.Time              `json:"start"`
	End         time.Time              `json:"end"`
	Report      map[string]interface{} `json:"report"`
	GeneratedAt time.Time              `json:"generated_at"`
	TTL         time.Duration          `json:"ttl"`
}

// Manager manages Redis-based caching of check reports
type Manager struct {
	redisClient *redis.Client
	keyPrefix   string
}

// NewManager creates a new report cache manager. The prefix namespaces all
// keys, e.g. "tsdq".
func NewManager(redisClient *redis.Client, prefix string) *Manager {
	return &Manager{
		redisClient: redisClient,
		keyPrefix:   prefix + ":reports:",
	}
}

// GetReport retrieves the latest cached report of a check from Redis
func (m *Manager) GetReport(ctx context.Context, checkName string) (*CachedReport, error) {
	key := m.keyPrefix + checkName

	data, err := m.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}

		return nil, fmt.Errorf("failed to get cached report: %w", err)
	}

	var report CachedReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}

	// Check if expired
	if report.TTL > 0 && time.Since(report.GeneratedAt) > report.TTL {
		_ = m.redisClient.Del(ctx, key)

		return nil, nil
	}

	return &report, nil
}

// SetReport stores a check report in Redis
func (m *Manager) SetReport(ctx context.Context, report *CachedReport) error {
	key := m.keyPrefix + report.CheckName

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := m.redisClient.Set(ctx, key, data, report.TTL).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}

	return nil
}

// InvalidateReport removes the cached report of a check
func (m *Manager) InvalidateReport(ctx context.Context, checkName string) error {
	return m.redisClient.Del(ctx, m.keyPrefix+checkName).Err()
}
