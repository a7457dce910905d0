package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	recordsKey = "@scanned_data_list"
	outboxKey  = "@pending_forward_list"
)

type failingKV struct {
	getErr error
	setErr error
	inner  *MemoryKV
}

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.inner.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.inner.Set(ctx, key, value)
}

func sample(asset, serial string) model.Record {
	return model.Record{
		AssetCode:        asset,
		SerialNumber:     serial,
		OrganizationCode: "ORG1",
		RawPayload:       "ISS^?ACC^?" + asset + "^?100^?2024-01-15^?ORG1^?" + serial,
		ReportingYear:    2025,
		ReportingMonth:   6,
		Completeness:     model.TagEnrichmentPending,
	}
}

func TestLoadEmptyStore(t *testing.T) {
	repo := NewKVRepository(NewMemoryKV(), recordsKey, outboxKey)

	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestAppendAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewKVRepository(NewMemoryKV(), recordsKey, outboxKey)
	fixed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	first := sample("A1", "S1")
	second := sample("A2", "S2")
	require.NoError(t, repo.Append(ctx, &first))
	require.NoError(t, repo.Append(ctx, &second))

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, fixed, first.CreatedAt)
	assert.Equal(t, model.SchemaVersion, first.SchemaVersion)

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first, records[0])
	assert.Equal(t, second, records[1])
}

func TestReplaceAllAndRemoveWhere(t *testing.T) {
	ctx := context.Background()
	repo := NewKVRepository(NewMemoryKV(), recordsKey, outboxKey)

	for _, a := range []string{"A1", "A2", "A3"} {
		rec := sample(a, "S")
		require.NoError(t, repo.Append(ctx, &rec))
	}

	removed, err := repo.RemoveWhere(ctx, func(r model.Record) bool { return r.AssetCode == "A2" })
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A1", records[0].AssetCode)
	assert.Equal(t, "A3", records[1].AssetCode)

	removed, err = repo.RemoveWhere(ctx, func(model.Record) bool { return false })
	require.NoError(t, err)
	assert.Zero(t, removed)

	require.NoError(t, repo.ReplaceAll(ctx, nil))
	records, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPendingForwards(t *testing.T) {
	ctx := context.Background()
	repo := NewKVRepository(NewMemoryKV(), recordsKey, outboxKey)

	ids, err := repo.PendingForwards(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, repo.SavePendingForwards(ctx, []string{"a", "b"}))
	ids, err = repo.PendingForwards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestStoreFailuresAreStoreIO(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")

	repo := NewKVRepository(&failingKV{getErr: boom, inner: NewMemoryKV()}, recordsKey, outboxKey)
	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, record.ErrStoreIO)

	_, err = repo.PendingForwards(ctx)
	assert.ErrorIs(t, err, record.ErrStoreIO)

	repo = NewKVRepository(&failingKV{setErr: boom, inner: NewMemoryKV()}, recordsKey, outboxKey)
	rec := sample("A1", "S1")
	assert.ErrorIs(t, repo.Append(ctx, &rec), record.ErrStoreIO)
	assert.ErrorIs(t, repo.ReplaceAll(ctx, []model.Record{rec}), record.ErrStoreIO)
}

func TestLoadCorruptListIsStoreIO(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, recordsKey, []byte("{not json")))

	_, err := NewKVRepository(kv, recordsKey, outboxKey).Load(ctx)
	assert.ErrorIs(t, err, record.ErrStoreIO)
}

func TestIdentityOf(t *testing.T) {
	created := time.Date(2025, 6, 1, 10, 0, 0, 500, time.FixedZone("X", 3600))
	rec := model.Record{AssetCode: "A1", SerialNumber: "S1", CreatedAt: created}

	assert.Equal(t, "A1|S1|2025-06-01T09:00:00.0000005Z", IdentityOf(rec))
}

func TestSQLStoreSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "scans.db")

	store, err := OpenSQLStore(ctx, "sqlite", dsn)
	require.NoError(t, err)
	defer store.Close()

	v, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, store.Set(ctx, "k", []byte("one")))
	require.NoError(t, store.Set(ctx, "k", []byte("two")))

	v, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(v))

	repo := NewKVRepository(store, recordsKey, outboxKey)
	rec := sample("A1", "S1")
	require.NoError(t, repo.Append(ctx, &rec))

	records, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.True(t, rec.CreatedAt.Equal(records[0].CreatedAt))
}
