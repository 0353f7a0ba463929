package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"testing"

	"wardrobe-backend/internal/models"
	"wardrobe-backend/internal/repository"
	"wardrobe-backend/internal/storage"

	"github.com/stretchr/testify/require"
)

// fakeRemover returns a fixed payload, or fails with err.
type fakeRemover struct {
	payload []byte
	err     error
	body    func() io.Reader
	calls   atomic.Int32
}

func (f *fakeRemover) RemoveBackground(ctx context.Context, _ string) (io.ReadCloser, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.body != nil {
		return io.NopCloser(f.body()), nil
	}
	return io.NopCloser(bytes.NewReader(f.payload)), nil
}

// brokenReader yields some bytes and then fails.
type brokenReader struct{ sent bool }

func (b *brokenReader) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

// failingSaveStore rejects every Save.
type failingSaveStore struct {
	*repository.MemoryStore
}

func (f *failingSaveStore) Save(context.Context, *models.User) error {
	return errors.New("disk full")
}

type testEnv struct {
	svc     *WardrobeService
	store   *repository.MemoryStore
	remover *fakeRemover
	dir     string
}

func newTestEnv(t *testing.T, autoProvision bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := repository.NewMemoryStore()
	remover := &fakeRemover{payload: []byte("png-bytes")}
	assets := NewAssetPipeline(remover, storage.NewLocalStore(dir), 0)
	return &testEnv{
		svc:     NewWardrobeService(store, assets, autoProvision),
		store:   store,
		remover: remover,
		dir:     dir,
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
