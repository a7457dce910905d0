package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-asset-scan-service/internal/export"
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.AssetCode
	}
	return out
}

func TestListHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	records, total, err := f.uc.ListHistory(context.Background(), &dto.HistoryFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"A3", "A2", "A1"}, codes(records))
}

func TestListHistoryFilters(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	f.uc.index = nil
	ctx := context.Background()

	records, total, err := f.uc.ListHistory(ctx, &dto.HistoryFilters{Completeness: model.TagEnrichmentFailed})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"A2"}, codes(records))

	records, _, err = f.uc.ListHistory(ctx, &dto.HistoryFilters{Query: "s3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A3"}, codes(records))

	records, total, err = f.uc.ListHistory(ctx, &dto.HistoryFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"A1"}, codes(records))

	records, _, err = f.uc.ListHistory(ctx, &dto.HistoryFilters{Year: 2024})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListHistoryUsesIndex(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	stored := f.load(t)
	f.index.matches = []string{stored[0].ID, "stale-id"}

	// Only the index knows this term.
	records, total, err := f.uc.ListHistory(context.Background(), &dto.HistoryFilters{Query: "gadget"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"A1"}, codes(records))
}

func TestListHistoryMatchesRecordsMissingFromIndex(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	f.index.matches = []string{}

	records, total, err := f.uc.ListHistory(context.Background(), &dto.HistoryFilters{Query: "s3"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"A3"}, codes(records))

	records, _, err = f.uc.ListHistory(context.Background(), &dto.HistoryFilters{Query: "widget"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A3", "A1"}, codes(records))
}

func TestListHistoryFallsBackWhenIndexFails(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	f.index.matchErr = errors.New("cluster down")

	records, _, err := f.uc.ListHistory(context.Background(), &dto.HistoryFilters{Query: "A1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, codes(records))
}

func TestDeleteRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f)

	queued, err := f.uc.CommitScan(ctx, commitInput(selfContained("A4", "S4"), false))
	require.NoError(t, err)
	require.Len(t, f.outbox(t), 1)

	removed, err := f.uc.DeleteRecords(ctx, []string{queued.Record.ID, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, f.load(t), 3)
	assert.Empty(t, f.outbox(t))
	assert.Equal(t, []string{queued.Record.ID}, f.index.deleted)
	assert.False(t, f.locker.Held())

	removed, err = f.uc.DeleteRecords(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClearHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f)

	removed, err := f.uc.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Empty(t, f.load(t))
	assert.Len(t, f.index.deleted, 3)

	// a cleared store accepts a new period
	in := commitInput(selfContained("A1", "S1"), true)
	in.Month = 7
	_, err = f.uc.CommitScan(ctx, in)
	assert.NoError(t, err)
}

func TestClearHistoryWhileBusy(t *testing.T) {
	f := newFixture(t)
	release, err := f.locker.TryAcquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = f.uc.ClearHistory(context.Background())
	assert.ErrorIs(t, err, record.ErrBusy)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f)
	stored := f.load(t)

	file, err := f.uc.Export(ctx, &dto.ExportInput{IDs: []string{stored[0].ID, stored[2].ID}})
	require.NoError(t, err)
	assert.Equal(t, 2, file.Count)
	assert.Equal(t, export.ContentTypeJSON, file.ContentType)
	assert.Regexp(t, `^assets-\d{8}-\d{6}\.json$`, file.Filename)
	assert.Contains(t, string(file.Data), `"assetCode": "A3"`)

	file, err = f.uc.Export(ctx, &dto.ExportInput{Format: dto.ExportXLSX})
	require.NoError(t, err)
	assert.Equal(t, 3, file.Count)
	assert.Equal(t, export.ContentTypeXLSX, file.ContentType)
	assert.Regexp(t, `\.xlsx$`, file.Filename)
	assert.NotEmpty(t, file.Data)

	_, err = f.uc.Export(ctx, &dto.ExportInput{Format: "csv"})
	assert.Error(t, err)
}
