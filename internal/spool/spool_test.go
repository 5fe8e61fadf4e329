package spool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "spool")

	spool, err := Open(dir)
	require.NoError(t, err)
	defer spool.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestOpenRequiresDirectory(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestAppendAndOldestPending(t *testing.T) {
	spool, err := Open(t.TempDir())
	require.NoError(t, err)
	defer spool.Close()

	ctx := t.Context()

	_, _, ok, err := spool.OldestPending(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	firstID, err := spool.Append(ctx, []byte("first"))
	require.NoError(t, err)

	secondID, err := spool.Append(ctx, []byte("second"))
	require.NoError(t, err)
	require.NotEqual(t, firstID, secondID)

	id, data, ok, err := spool.OldestPending(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, firstID, id)
	require.Equal(t, []byte("first"), data)
}

func TestFIFOAcrossDeletes(t *testing.T) {
	spool, err := Open(t.TempDir())
	require.NoError(t, err)
	defer spool.Close()

	ctx := t.Context()

	payloads := []string{"a", "b", "c", "d"}
	for _, payload := range payloads {
		_, err := spool.Append(ctx, []byte(payload))
		require.NoError(t, err)
	}

	for _, want := range payloads {
		id, data, ok, err := spool.OldestPending(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte(want), data)
		require.NoError(t, spool.Delete(ctx, id))
	}

	_, _, ok, err := spool.OldestPending(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestReopenResumesSequence checks that a reopened spool keeps the pending
// backlog and never reuses a sequence number, so FIFO order survives a
// restart.
func TestReopenResumesSequence(t *testing.T) {
	dir := t.TempDir()
	ctx := t.Context()

	spool, err := Open(dir)
	require.NoError(t, err)

	_, err = spool.Append(ctx, []byte("before restart"))
	require.NoError(t, err)

	oldID, err := spool.Append(ctx, []byte("also before"))
	require.NoError(t, err)
	require.NoError(t, spool.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	newID, err := reopened.Append(ctx, []byte("after restart"))
	require.NoError(t, err)
	require.Greater(t, newID, oldID)

	pending, err := reopened.Pending()
	require.NoError(t, err)
	require.Equal(t, 3, pending)

	_, data, ok, err := reopened.OldestPending(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("before restart"), data)
}

func TestAppendIsInvisibleUntilRenamed(t *testing.T) {
	dir := t.TempDir()

	spool, err := Open(dir)
	require.NoError(t, err)
	defer spool.Close()

	// A leftover temp file from a crashed append must not surface as a
	// record.
	stale := filepath.Join(dir, "00000000000000000099.rec.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("torn"), 0o600))

	_, _, ok, err := spool.OldestPending(t.Context())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteValidation(t *testing.T) {
	spool, err := Open(t.TempDir())
	require.NoError(t, err)
	defer spool.Close()

	ctx := t.Context()

	tests := []struct {
		name string
		id   string
	}{
		{name: "empty", id: ""},
		{name: "wrong suffix", id: "00000000000000000000.dat"},
		{name: "path escape", id: "../00000000000000000000.rec"},
		{name: "not a sequence", id: "bogus.rec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, spool.Delete(ctx, tt.id), ErrInvalidRecordID)
		})
	}

	// A well-formed id for a record that does not exist is still an error.
	require.Error(t, spool.Delete(ctx, "00000000000000000042.rec"))
}

func TestClosedSpool(t *testing.T) {
	spool, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, spool.Close())
	require.NoError(t, spool.Close())

	ctx := t.Context()

	_, err = spool.Append(ctx, []byte("late"))
	require.ErrorIs(t, err, ErrSpoolClosed)

	_, _, _, err = spool.OldestPending(ctx)
	require.ErrorIs(t, err, ErrSpoolClosed)

	err = spool.Delete(ctx, "00000000000000000000.rec")
	require.ErrorIs(t, err, ErrSpoolClosed)
}
