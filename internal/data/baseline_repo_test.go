package data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	"github.com/cloudmatrix/cloudmatrix/internal/testutil"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	testutil.SkipIfNoTestRedis(t)

	client := redis.NewClient(&redis.Options{
		Addr: os.Getenv("CLOUDMATRIX_TEST_REDIS_ADDR"),
	})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestBaselineRepoRejectsEmptyMatrixKey(t *testing.T) {
	repo := NewBaselineRepo(nil)

	_, err := repo.Get(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix key")

	err = repo.Put(context.Background(), "", map[string]model.JobStatus{}, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix key")
}

func TestBaselineRepoRoundTrip(t *testing.T) {
	client := testRedis(t)
	repo := NewBaselineRepo(client)
	ctx := context.Background()

	matrixKey := "keyvault:" + uuid.NewString()
	statuses := map[string]model.JobStatus{
		"azkeys/Public/mode=hsm": model.JobStatusPassed,
		"azkeys/UsGov/":          model.JobStatusFailed,
		"azsecrets/Public/":      model.JobStatusTimedOut,
	}

	require.NoError(t, repo.Put(ctx, matrixKey, statuses, time.Hour))

	got, err := repo.Get(ctx, matrixKey)
	require.NoError(t, err)
	assert.Equal(t, statuses, got)
}

func TestBaselineRepoMissingKeyIsAbsentNotError(t *testing.T) {
	client := testRedis(t)
	repo := NewBaselineRepo(client)

	got, err := repo.Get(context.Background(), "keyvault:"+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBaselineRepoAppliesTTL(t *testing.T) {
	client := testRedis(t)
	repo := NewBaselineRepo(client)
	ctx := context.Background()

	matrixKey := "keyvault:" + uuid.NewString()
	statuses := map[string]model.JobStatus{"azkeys/Public/": model.JobStatusPassed}
	require.NoError(t, repo.Put(ctx, matrixKey, statuses, time.Hour))

	ttl, err := client.TTL(ctx, baselineKeyPrefix+matrixKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestBaselineRepoPutOverwrites(t *testing.T) {
	client := testRedis(t)
	repo := NewBaselineRepo(client)
	ctx := context.Background()

	matrixKey := "keyvault:" + uuid.NewString()
	require.NoError(t, repo.Put(ctx, matrixKey,
		map[string]model.JobStatus{"azkeys/Public/": model.JobStatusFailed}, time.Hour))
	require.NoError(t, repo.Put(ctx, matrixKey,
		map[string]model.JobStatus{"azkeys/Public/": model.JobStatusPassed}, time.Hour))

	got, err := repo.Get(ctx, matrixKey)
	require.NoError(t, err)
	assert.Equal(t, map[string]model.JobStatus{"azkeys/Public/": model.JobStatusPassed}, got)
}
