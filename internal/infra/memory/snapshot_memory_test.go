package memory

import (
	"context"
	"testing"

	repo "pos/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	buf := []byte("one")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	got[0] = 'Y'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "one", string(again))

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
