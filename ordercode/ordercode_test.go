package ordercode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-queue/apperr"
)

func never(context.Context, string) (bool, error) { return false, nil }

func TestGenerateShapeAndAlphabet(t *testing.T) {
	g := New()
	for i := 0; i < 500; i++ {
		code, err := g.Generate(context.Background(), never)
		require.NoError(t, err)
		assert.Len(t, code, Length)
		assert.True(t, Valid(code), code)
	}
}

func TestGenerateSkipsTakenCodes(t *testing.T) {
	seq := []int{0, 0, 0, 0, 1, 1, 1, 1}
	i := 0
	g := New(WithRand(func(n int) int {
		v := seq[i%len(seq)]
		i++
		return v
	}))

	taken := map[string]bool{"AAAA": true}
	code, err := g.Generate(context.Background(), func(_ context.Context, c string) (bool, error) {
		return taken[c], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "BBBB", code)
}

func TestGenerateExhaustsTinyCodeSpace(t *testing.T) {
	g := New(WithAlphabet("AB", 1), WithMaxAttempts(20))
	_, err := g.Generate(context.Background(), func(context.Context, string) (bool, error) {
		return true, nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrCodeSpaceExhausted))
}

func TestGenerateFindsLastFreeCode(t *testing.T) {
	g := New(WithAlphabet("AB", 1))
	code, err := g.Generate(context.Background(), func(_ context.Context, c string) (bool, error) {
		return c == "A", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "B", code)
}

func TestGeneratePropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := New().Generate(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGenerateHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Generate(ctx, never)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("A1Z9"))
	assert.False(t, Valid("a1z9"))
	assert.False(t, Valid("A1Z"))
	assert.False(t, Valid("A1Z9X"))
	assert.False(t, Valid("A-Z9"))
}
