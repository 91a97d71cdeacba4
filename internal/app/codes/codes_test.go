package codes

import (
	"context"
	"errors"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShape(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestVerifyConsumesCode(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Minute, 5)

	code, err := m.Issue(ctx, PurposeVerify, "+15550001111")
	require.NoError(t, err)

	require.NoError(t, m.Verify(ctx, PurposeVerify, "+15550001111", code))
	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", code), ErrNotFound)
}

func TestVerifyScopedByPurpose(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Minute, 5)

	code, err := m.Issue(ctx, PurposeReset, "+15550001111")
	require.NoError(t, err)
	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", code), ErrNotFound)
}

func TestVerifyAttemptBudget(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Minute, 3)

	code, err := m.Issue(ctx, PurposeVerify, "+15550001111")
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", wrong), ErrMismatch)
	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", wrong), ErrMismatch)
	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", wrong), ErrTooManyAttempts)
	// the code is burned even when the right one arrives afterwards
	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", code), ErrNotFound)
}

func TestVerifyBudgetHoldsUnderParallelGuesses(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, time.Minute, 3)

	code, err := m.Issue(ctx, PurposeVerify, "+15550001111")
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	const guesses = 30
	results := make(chan error, guesses)
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- m.Verify(ctx, PurposeVerify, "+15550001111", wrong)
		}()
	}
	wg.Wait()
	close(results)

	mismatches := 0
	for err := range results {
		if errors.Is(err, ErrMismatch) {
			mismatches++
		}
	}
	assert.LessOrEqual(t, mismatches, 2, "only maxAttempts-1 guesses may be evaluated as plain mismatches")
	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", code), ErrNotFound)
}

func TestVerifyCorrectCodeOnLastAttempt(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Minute, 3)

	code, err := m.Issue(ctx, PurposeVerify, "+15550001111")
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", wrong), ErrMismatch)
	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", wrong), ErrMismatch)
	assert.NoError(t, m.Verify(ctx, PurposeVerify, "+15550001111", code))
}

func TestVerifyExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, time.Minute, 5)

	code, err := m.Issue(ctx, PurposeVerify, "+15550001111")
	require.NoError(t, err)

	later := time.Now().Add(2 * time.Minute)
	m.now = func() time.Time { return later }
	store.now = m.now
	assert.ErrorIs(t, m.Verify(ctx, PurposeVerify, "+15550001111", code), ErrNotFound)
}

func TestMemoryPurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	require.NoError(t, store.Put(ctx, "a", Entry{Hash: "x", ExpiresAt: now.Add(-time.Second)}, time.Minute))
	require.NoError(t, store.Put(ctx, "b", Entry{Hash: "y", ExpiresAt: now.Add(time.Minute)}, time.Minute))

	removed, err := store.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = store.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestRedisStoreIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(ctx).Err())

	m := NewManager(NewRedisStore(client), time.Minute, 2)
	phone := "+1555" + time.Now().Format("150405000")

	code, err := m.Issue(ctx, PurposeVerify, phone)
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err = m.Verify(ctx, PurposeVerify, phone, wrong)
	require.True(t, errors.Is(err, ErrMismatch), "got %v", err)
	require.NoError(t, m.Verify(ctx, PurposeVerify, phone, code))

	ttl, err := client.TTL(ctx, key(PurposeVerify, phone)).Result()
	require.NoError(t, err)
	assert.True(t, ttl < 0, "consumed code should be gone")
}
