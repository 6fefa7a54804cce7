package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJumpHash(t *testing.T) {
	require.Equal(t, 0, JumpHash(42, 0))
	require.Equal(t, 0, JumpHash(42, -1))
	require.Equal(t, 0, JumpHash(42, 1))

	for key := range uint64(1000) {
		bucket := JumpHash(key, 7)
		require.True(t, bucket >= 0 && bucket < 7)
	}
}

func TestJumpHashMonotone(t *testing.T) {
	// A key either stays in its bucket or moves to the new one.
	for key := range uint64(1000) {
		before := JumpHash(key, 5)
		after := JumpHash(key, 6)
		require.True(t, after == before || after == 5, "key %d moved from %d to %d", key, before, after)
	}
}
