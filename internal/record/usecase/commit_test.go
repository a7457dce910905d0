package usecase

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-asset-scan-service/internal/catalog"
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/reconcile"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/dto"
	"github.com/fekuna/omnipos-asset-scan-service/internal/scan"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitInput(raw string, online bool) *dto.CommitScanInput {
	return &dto.CommitScanInput{RawPayload: raw, Year: 2025, Month: 6, DeviceID: "dev-1", Online: online}
}

func TestCommitStampsScannerUser(t *testing.T) {
	f := newFixture(t)
	in := commitInput(selfContained("A1", "S1"), false)
	in.ScannedBy = "user-7"

	res, err := f.uc.CommitScan(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "user-7", res.Record.ScannedBy)
	assert.Equal(t, "user-7", f.load(t)[0].ScannedBy)
}

func TestCommitSelfContainedScan(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.CommitScan(context.Background(), commitInput("L1^?ACC1^?CODE9^?100^?2025-01-15^?ORG1^?SN1^?Jane^?Widget", true))
	require.NoError(t, err)

	require.NotNil(t, res.Record)
	rec := *res.Record
	assert.Equal(t, "CODE9", rec.AssetCode)
	assert.Equal(t, "100", rec.UnitPrice)
	assert.Equal(t, "ACC1", rec.Account)
	assert.Equal(t, "2025-01-15", rec.Date)
	assert.Equal(t, "SN1", rec.SerialNumber)
	assert.Equal(t, "Jane", rec.Custodian)
	assert.Equal(t, "Widget", rec.AssetName)
	assert.Equal(t, model.TagComplete, rec.Completeness)

	assert.Empty(t, f.fetcher.calls, "self-contained payloads never reach the catalog")
	assert.Equal(t, dto.StageForwarding, res.Stage)
	assert.True(t, res.Forwarded)
	assert.Equal(t, []string{rec.ID}, f.fwd.sent)
	assert.Equal(t, []string{rec.ID}, f.index.indexed)
	assert.Equal(t, reconcile.LevelOK, res.Verdict.Level)

	stored := f.load(t)
	require.Len(t, stored, 1)
	assert.Equal(t, rec, stored[0])
	assert.Empty(t, f.outbox(t))
	assert.False(t, f.locker.Held())
}

func TestCommitLookupRequiredOffline(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.CommitScan(context.Background(), commitInput(lookupRequired("A1", "S1"), false))
	require.NoError(t, err)

	assert.Empty(t, f.fetcher.calls)
	assert.Equal(t, dto.StagePersisted, res.Stage)
	assert.Equal(t, model.OfflineAssetName, res.Record.AssetName)
	assert.Equal(t, model.TagEnrichmentFailed, res.Record.Completeness)
	assert.Equal(t, reconcile.LevelWarning, res.Verdict.Level)
	assert.Equal(t, []string{reconcile.ReasonIncomplete, reconcile.ReasonOffline}, res.Verdict.Reasons)
	assert.Empty(t, f.fwd.sent)
	assert.Empty(t, f.outbox(t), "incomplete records wait for sync, not the outbox")
}

func TestCommitLookupRequiredOnline(t *testing.T) {
	f := newFixture(t)
	f.fetcher.entries["A1"] = catalog.Entry{Name: "Desk", Unit: "pcs", Custodian: "Bold"}

	res, err := f.uc.CommitScan(context.Background(), commitInput(lookupRequired("A1", "S1"), true))
	require.NoError(t, err)

	assert.Equal(t, []string{"A1"}, f.fetcher.calls)
	assert.Equal(t, "Desk", res.Record.AssetName)
	assert.Equal(t, "Bold", res.Record.Custodian)
	assert.Equal(t, model.TagComplete, res.Record.Completeness)
	assert.True(t, res.Forwarded)
}

func TestCommitCompleteOfflineIsQueued(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.CommitScan(context.Background(), commitInput(selfContained("A1", "S1"), false))
	require.NoError(t, err)

	assert.Empty(t, f.fwd.sent)
	assert.Contains(t, res.Notices, NoticeQueued)
	assert.Equal(t, []string{res.Record.ID}, f.outbox(t))
}

func TestCommitForwardFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.fwd.fail = true

	res, err := f.uc.CommitScan(context.Background(), commitInput(selfContained("A1", "S1"), true))
	require.NoError(t, err)

	assert.Equal(t, dto.StageForwarding, res.Stage)
	assert.False(t, res.Forwarded)
	assert.Equal(t, []string{NoticeForwardFailed}, res.Notices)
	assert.Len(t, f.load(t), 1)
	assert.Equal(t, []string{res.Record.ID}, f.outbox(t))
	assert.False(t, f.locker.Held())
}

func TestCommitMalformedPayload(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.CommitScan(context.Background(), commitInput("a^?b^?c", true))

	var rejected *record.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.ErrorIs(t, err, scan.ErrMalformedPayload)
	assert.Equal(t, dto.StageRejected, res.Stage)
	assert.Empty(t, f.load(t))
	assert.False(t, f.locker.Held())
}

func TestCommitDuplicateIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.CommitScan(ctx, commitInput(selfContained("A1", "S1"), true))
	require.NoError(t, err)

	res, err := f.uc.CommitScan(ctx, commitInput(selfContained("A1", "S1"), true))
	var rejected *record.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, reconcile.ReasonDuplicate, rejected.Verdict.Reason())
	assert.Equal(t, dto.StageRejected, res.Stage)
	assert.Len(t, f.load(t), 1)
	assert.Len(t, f.fwd.sent, 1)
}

func TestCommitPeriodConflictIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.CommitScan(ctx, commitInput(selfContained("A1", "S1"), true))
	require.NoError(t, err)

	in := commitInput(selfContained("A2", "S2"), true)
	in.Month = 7
	_, err = f.uc.CommitScan(ctx, in)

	var rejected *record.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, rejected.Error(), "2025-06")
}

func TestCommitWhileBusy(t *testing.T) {
	f := newFixture(t)
	release, err := f.locker.TryAcquire(context.Background())
	require.NoError(t, err)
	defer release()

	res, err := f.uc.CommitScan(context.Background(), commitInput(selfContained("A1", "S1"), true))

	assert.ErrorIs(t, err, record.ErrBusy)
	assert.Nil(t, res)
	assert.Empty(t, f.load(t))
}

func TestCommitStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.failAppend = true

	res, err := f.uc.CommitScan(context.Background(), commitInput(selfContained("A1", "S1"), true))

	assert.ErrorIs(t, err, record.ErrStoreIO)
	assert.Nil(t, res)
	assert.Empty(t, f.fwd.sent)
	assert.Empty(t, f.index.indexed)
	assert.False(t, f.locker.Held())
}

func TestCommitInvalidInput(t *testing.T) {
	f := newFixture(t)

	in := commitInput(selfContained("A1", "S1"), true)
	in.Month = 13
	_, err := f.uc.CommitScan(context.Background(), in)

	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.False(t, f.locker.Held())
}

func TestPreviewDoesNotPersist(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.PreviewScan(context.Background(), commitInput(selfContained("A1", "S1"), false))
	require.NoError(t, err)

	assert.Equal(t, dto.StageValidating, res.Stage)
	assert.Equal(t, reconcile.LevelWarning, res.Verdict.Level)
	assert.Empty(t, f.load(t))
	assert.Empty(t, f.outbox(t))
	assert.Empty(t, f.fwd.sent)
}
