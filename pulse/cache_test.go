package pulse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheCreatesOnce(t *testing.T) {
	var created int

	cache := NewCache[string, int]("test", 4, nil)

	create := func(key string) (int, error) {
		created++
		return len(key), nil
	}

	for range 3 {
		value, err := cache.Get("four", create)
		require.NoError(t, err)
		assert.Equal(t, 4, value)
	}

	assert.Equal(t, 1, created)
}

func TestCacheReleasesOnEviction(t *testing.T) {
	var released []int

	cache := NewCache[int, int]("test", 2, func(value int) {
		released = append(released, value)
	})

	identity := func(key int) (int, error) { return key, nil }

	for key := range 3 {
		_, _ = cache.Get(key, identity)
	}

	assert.Equal(t, []int{0}, released)

	cache.Purge()
	assert.ElementsMatch(t, []int{0, 1, 2}, released)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	cache := NewCache[int, int]("test", 2, nil)

	failure := errors.New("failed")

	_, err := cache.Get(1, func(int) (int, error) { return 0, failure })
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 0, cache.Len())
}
