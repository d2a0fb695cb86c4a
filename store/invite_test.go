package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInviteCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := NewInviteCode()
		require.NoError(t, err)
		assert.Len(t, code, InviteCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(inviteAlphabet, r), "unexpected character %q", r)
		}
		seen[code] = true
	}
	// 100 draws from a 62^8 space should not collide.
	assert.Len(t, seen, 100)
}

func TestGenerateUniqueRetriesTakenCodes(t *testing.T) {
	calls := 0
	taken := func(ctx context.Context, code string) (bool, error) {
		calls++
		return calls < 3, nil
	}

	code, err := generateUnique(context.Background(), taken)

	require.NoError(t, err)
	assert.Len(t, code, InviteCodeLength)
	assert.Equal(t, 3, calls)
}

func TestGenerateUniqueGivesUpAfterCap(t *testing.T) {
	calls := 0
	taken := func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := generateUnique(context.Background(), taken)

	assert.ErrorIs(t, err, ErrInviteExhausted)
	assert.Equal(t, maxInviteAttempts, calls)
}

func TestGenerateUniquePropagatesLookupError(t *testing.T) {
	taken := func(ctx context.Context, code string) (bool, error) {
		return false, context.DeadlineExceeded
	}

	_, err := generateUnique(context.Background(), taken)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
