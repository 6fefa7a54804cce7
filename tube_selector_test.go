package beanstalk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTubeSelector(t *testing.T) {
	t.Run("consistency", func(t *testing.T) {
		first := DefaultTubeSelector("order-123", 10)
		for range 5 {
			require.Equal(t, first, DefaultTubeSelector("order-123", 10))
		}
	})

	t.Run("bounds", func(t *testing.T) {
		keys := []string{"", "key1", "key2", "long-key-with-many-characters"}
		tubeCounts := []int{1, 2, 5, 10, 100}

		for _, key := range keys {
			for _, count := range tubeCounts {
				result := DefaultTubeSelector(key, count)
				require.True(t, result >= 0 && result < count, "out of bounds: key=%s, tubeCount=%d, result=%d", key, count, result)
			}
		}
	})

	t.Run("no tubes", func(t *testing.T) {
		require.Equal(t, 0, DefaultTubeSelector("key", 0))
	})

	t.Run("distribution", func(t *testing.T) {
		tubeCount := 10
		distribution := make(map[int]int)

		for i := range 100 {
			distribution[DefaultTubeSelector(fmt.Sprintf("key-%d", i), tubeCount)]++
		}

		require.True(t, len(distribution) >= 5, "poor distribution: only %d tubes used out of %d", len(distribution), tubeCount)
		for tube, count := range distribution {
			require.True(t, count <= 30, "unbalanced distribution: tube %d has %d%% of keys", tube, count)
		}
	})

	t.Run("growing the tube list moves few keys", func(t *testing.T) {
		moved := 0
		for i := range 1000 {
			key := fmt.Sprintf("key-%d", i)
			if DefaultTubeSelector(key, 10) != DefaultTubeSelector(key, 11) {
				moved++
			}
		}
		require.Less(t, moved, 200)
	})
}

func TestStaticSelector(t *testing.T) {
	require.Equal(t, 2, staticSelector(2)("a", 3))
	require.Equal(t, 0, staticSelector(3)("a", 3))
}

func BenchmarkDefaultTubeSelector(b *testing.B) {
	for b.Loop() {
		DefaultTubeSelector("benchmark-key-123", 10)
	}
}
