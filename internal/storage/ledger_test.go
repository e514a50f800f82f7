package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_CaptureLedger(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := s.IsCaptured(ctx, "file:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MarkCaptured(ctx, "file:abc", "/inbox/a.txt", 3))
	require.NoError(t, s.MarkCaptured(ctx, "file:abc", "/inbox/a.txt", 3))

	ok, err = s.IsCaptured(ctx, "file:abc")
	require.NoError(t, err)
	assert.True(t, ok)
}
