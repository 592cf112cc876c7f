package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	t.Cleanup(func() { SetClient(nil) })

	tests := []struct {
		name      string
		addr      string
		connected bool
	}{
		{"host and port", mr.Addr(), true},
		{"url", "redis://" + mr.Addr() + "/0", true},
		{"malformed url", "redis://%zz", false},
		{"nothing listening", "127.0.0.1:1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := InitRedis(tt.addr)
			if !tt.connected {
				assert.Nil(t, c)
				assert.Nil(t, GetClient())
				return
			}
			require.NotNil(t, c)
			assert.Same(t, c, GetClient())
			_ = c.Close()
		})
	}
}

func TestInvalidate(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(RecipeKey("abc1234"), "{}"))
	require.NoError(t, mr.Set(ProfileKey("maria"), "{}"))
	require.NoError(t, mr.Set("unrelated", "1"))

	InvalidateRecipe(ctx, "abc1234")
	InvalidateProfile(ctx, "maria")
	Invalidate(ctx)

	assert.False(t, mr.Exists("recipe:abc1234"))
	assert.False(t, mr.Exists("profile:maria"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestInvalidate_NoClient(t *testing.T) {
	SetClient(nil)
	assert.NotPanics(t, func() { InvalidateRecipe(context.Background(), "abc1234") })
}
