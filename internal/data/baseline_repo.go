package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cloudmatrix/cloudmatrix/internal/core"
	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
)

const baselineKeyPrefix = "cloudmatrix:baseline:"

// BaselineRepo stores the previous run's status per job key in Redis, keyed
// by the matrix identity, so the next run of the same matrix can flag
// regressions.
type BaselineRepo struct {
	client redis.UniversalClient
}

var _ core.BaselineStore = (*BaselineRepo)(nil)

// NewBaselineRepo creates a BaselineRepo with the given Redis client.
func NewBaselineRepo(client redis.UniversalClient) *BaselineRepo {
	return &BaselineRepo{client: client}
}

// Get returns the stored baseline for a matrix, or nil when none exists.
func (r *BaselineRepo) Get(ctx context.Context, matrixKey string) (map[string]model.JobStatus, error) {
	if matrixKey == "" {
		return nil, errors.New("matrix key cannot be empty")
	}

	raw, err := r.client.Get(ctx, baselineKeyPrefix+matrixKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("baseline get: %w", err)
	}

	var statuses map[string]model.JobStatus
	if err := json.Unmarshal([]byte(raw), &statuses); err != nil {
		return nil, fmt.Errorf("baseline decode: %w", err)
	}
	return statuses, nil
}

// Put replaces the stored baseline for a matrix.
func (r *BaselineRepo) Put(
	ctx context.Context,
	matrixKey string,
	statuses map[string]model.JobStatus,
	ttl time.Duration,
) error {
	if matrixKey == "" {
		return errors.New("matrix key cannot be empty")
	}

	raw, err := json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("baseline encode: %w", err)
	}
	return r.client.Set(ctx, baselineKeyPrefix+matrixKey, raw, ttl).Err()
}
