package usecase

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/reconcile"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/dto"
	"github.com/fekuna/omnipos-asset-scan-service/internal/scan"
	"go.uber.org/zap"
)

const (
	NoticeForwardFailed = "upload failed; the record is saved locally and will be uploaded on the next sync."
	NoticeQueued        = "record queued for upload on the next sync."
	NoticeQueueFailed   = "record saved locally but could not be queued for upload."
)

// CommitScan runs one scan through the pipeline. A rejected scan returns
// both a result in stage REJECTED and a *record.RejectedError.
func (uc *recordUseCase) CommitScan(ctx context.Context, input *dto.CommitScanInput) (*dto.CommitResult, error) {
	if err := uc.validate.Struct(input); err != nil {
		return nil, err
	}

	release, err := uc.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// Past the lock the run finishes even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	rec, verdict, err := uc.evaluate(ctx, input)
	if err != nil {
		var rejected *record.RejectedError
		if errors.As(err, &rejected) {
			uc.logger.Info("scan rejected",
				zap.String("asset_code", rec.AssetCode),
				zap.String("serial_number", rec.SerialNumber),
				zap.Error(rejected),
			)
			return &dto.CommitResult{Stage: dto.StageRejected, Verdict: verdict}, err
		}
		return nil, err
	}

	if err := uc.repo.Append(ctx, &rec); err != nil {
		uc.logger.Error("failed to persist scan", zap.String("asset_code", rec.AssetCode), zap.Error(err))
		return nil, err
	}

	result := &dto.CommitResult{
		Stage:   dto.StagePersisted,
		Record:  &rec,
		Verdict: verdict,
	}
	uc.indexRecord(ctx, rec)

	if rec.IsComplete() {
		if input.Online {
			result.Stage = dto.StageForwarding
			uc.forward(ctx, rec, result)
		} else if err := uc.enqueue(ctx, rec.ID); err != nil {
			uc.logger.Error("failed to queue record for upload", zap.String("record_id", rec.ID), zap.Error(err))
			result.Notices = append(result.Notices, NoticeQueueFailed)
		} else {
			result.Notices = append(result.Notices, NoticeQueued)
		}
	}

	uc.logger.Info("scan committed",
		zap.String("record_id", rec.ID),
		zap.String("asset_code", rec.AssetCode),
		zap.String("completeness", string(rec.Completeness)),
		zap.String("verdict", verdict.Level.String()),
		zap.Bool("forwarded", result.Forwarded),
	)
	return result, nil
}

// PreviewScan parses, enriches and validates without touching the store.
func (uc *recordUseCase) PreviewScan(ctx context.Context, input *dto.CommitScanInput) (*dto.CommitResult, error) {
	if err := uc.validate.Struct(input); err != nil {
		return nil, err
	}

	rec, verdict, err := uc.evaluate(ctx, input)
	if err != nil {
		var rejected *record.RejectedError
		if errors.As(err, &rejected) {
			return &dto.CommitResult{Stage: dto.StageRejected, Verdict: verdict}, err
		}
		return nil, err
	}
	return &dto.CommitResult{Stage: dto.StageValidating, Record: &rec, Verdict: verdict}, nil
}

// evaluate covers PARSING, ENRICHING and VALIDATING.
func (uc *recordUseCase) evaluate(ctx context.Context, input *dto.CommitScanInput) (model.Record, reconcile.Verdict, error) {
	payload, err := scan.Parse(input.RawPayload)
	if err != nil {
		return model.Record{}, reconcile.Verdict{}, &record.RejectedError{Cause: err}
	}

	period := input.Period()
	rec := payload.Record(period, input.DeviceID, uc.now())
	rec.ScannedBy = input.ScannedBy
	if payload.Kind == scan.LookupRequired {
		rec = uc.enricher.Enrich(ctx, rec, input.Online)
	}

	existing, err := uc.repo.Load(ctx)
	if err != nil {
		return rec, reconcile.Verdict{}, err
	}

	verdict := reconcile.Validate(rec, existing, period, input.Online)
	if verdict.Blocking() {
		return rec, verdict, &record.RejectedError{Verdict: verdict}
	}
	return rec, verdict, nil
}

func (uc *recordUseCase) forward(ctx context.Context, rec model.Record, result *dto.CommitResult) {
	if err := uc.forwarder.Forward(ctx, rec); err != nil {
		uc.logger.Warn("forwarding failed, record kept locally", zap.String("record_id", rec.ID), zap.Error(err))
		result.Notices = append(result.Notices, NoticeForwardFailed)
		if err := uc.enqueue(ctx, rec.ID); err != nil {
			uc.logger.Error("failed to queue record for upload", zap.String("record_id", rec.ID), zap.Error(err))
		}
		return
	}
	result.Forwarded = true
}
