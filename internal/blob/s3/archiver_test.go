package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

type memStore struct {
	snaps     []domain.DepthSnapshot
	deletedAt time.Time
	listErr   error
}

func (m *memStore) ListBefore(_ context.Context, before time.Time) ([]domain.DepthSnapshot, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.DepthSnapshot
	for _, s := range m.snaps {
		if s.FetchedAt.Before(before) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	m.deletedAt = before
	var kept []domain.DepthSnapshot
	var n int64
	for _, s := range m.snaps {
		if s.FetchedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, s)
	}
	m.snaps = kept
	return n, nil
}

type memBlobs struct {
	objects map[string][]byte
	putErr  error
}

func (m *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobs) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	return nil
}

func snapshot(id string, at time.Time) domain.DepthSnapshot {
	return domain.DepthSnapshot{
		ID:        id,
		Market:    domain.Market{Network: domain.NetworkMainnet, BaseTokenID: 1, QuoteTokenID: 4},
		Book:      domain.ProcessedOrderBook{Asks: []domain.ProcessedLevel{}, Bids: []domain.ProcessedLevel{}},
		FetchedAt: at,
	}
}

func lines(t *testing.T, data []byte) []domain.DepthSnapshot {
	t.Helper()
	var out []domain.DepthSnapshot
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var s domain.DepthSnapshot
		require.NoError(t, json.Unmarshal(sc.Bytes(), &s))
		out = append(out, s)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchivePath(t *testing.T) {
	at := time.Date(2025, 1, 31, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, "archive/depth/2025-02.jsonl", archivePath("depth", at))
}

func TestSnapshotArchiver_ArchiveSnapshots(t *testing.T) {
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	store := &memStore{snaps: []domain.DepthSnapshot{
		snapshot("a", jan), snapshot("b", feb), snapshot("c", feb.Add(time.Hour)), snapshot("d", mar),
	}}
	existing := snapshot("old", jan.Add(-time.Hour))
	var prior bytes.Buffer
	require.NoError(t, writeJSONL(&prior, []domain.DepthSnapshot{existing}))
	blobs := &memBlobs{objects: map[string][]byte{
		"archive/depth/2025-01.jsonl": bytes.TrimSuffix(prior.Bytes(), []byte("\n")),
	}}

	a := NewSnapshotArchiver(store, blobs, blobs, discardLogger())
	n, err := a.ArchiveSnapshots(context.Background(), mar)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	janLines := lines(t, blobs.objects["archive/depth/2025-01.jsonl"])
	require.Len(t, janLines, 2)
	assert.Equal(t, "old", janLines[0].ID)
	assert.Equal(t, "a", janLines[1].ID)

	febLines := lines(t, blobs.objects["archive/depth/2025-02.jsonl"])
	require.Len(t, febLines, 2)
	assert.Equal(t, []string{"b", "c"}, []string{febLines[0].ID, febLines[1].ID})

	_, hasMarch := blobs.objects["archive/depth/2025-03.jsonl"]
	assert.False(t, hasMarch)
	require.Len(t, store.snaps, 1)
	assert.Equal(t, "d", store.snaps[0].ID)
}

func TestSnapshotArchiver_NothingToArchive(t *testing.T) {
	store := &memStore{}
	blobs := &memBlobs{objects: map[string][]byte{}}

	n, err := NewSnapshotArchiver(store, blobs, blobs, discardLogger()).ArchiveSnapshots(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, blobs.objects)
	assert.True(t, store.deletedAt.IsZero())
}

func TestSnapshotArchiver_UploadFailureKeepsRows(t *testing.T) {
	at := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	store := &memStore{snaps: []domain.DepthSnapshot{snapshot("a", at)}}
	blobs := &memBlobs{objects: map[string][]byte{}, putErr: errors.New("bucket gone")}

	_, err := NewSnapshotArchiver(store, blobs, blobs, discardLogger()).ArchiveSnapshots(context.Background(), at.Add(time.Hour))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bucket gone"))
	assert.Len(t, store.snaps, 1)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("localhost:9000", false))
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("s3.example.com", true))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("http://minio:9000", true))
}
