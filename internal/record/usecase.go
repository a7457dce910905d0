package record

import (
	"context"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/dto"
)

type UseCase interface {
	CommitScan(ctx context.Context, input *dto.CommitScanInput) (*dto.CommitResult, error)
	PreviewScan(ctx context.Context, input *dto.CommitScanInput) (*dto.CommitResult, error)
	Sync(ctx context.Context, input *dto.SyncInput) (*dto.SyncSummary, error)

	ListHistory(ctx context.Context, filters *dto.HistoryFilters) ([]model.Record, int, error)
	DeleteRecords(ctx context.Context, ids []string) (int, error)
	ClearHistory(ctx context.Context) (int, error)
	Export(ctx context.Context, input *dto.ExportInput) (*dto.ExportFile, error)
}
