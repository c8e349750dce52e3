package cmd

import (
	"context"
	"testing"

	"codeseek/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropCollection(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.CreateCollection(ctx, "codeseek_app", 4))

	dropped, err := dropCollection(ctx, mem, "codeseek_app")
	require.NoError(t, err)
	assert.True(t, dropped)

	info, err := mem.DescribeCollection(ctx, "codeseek_app")
	require.NoError(t, err)
	assert.False(t, info.Found)

	dropped, err = dropCollection(ctx, mem, "codeseek_app")
	require.NoError(t, err)
	assert.False(t, dropped)
}
