package usecase

import (
	"context"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/dto"
	"go.uber.org/zap"
)

// Sync retries enrichment for every incomplete record, writes the list back
// once, then uploads the newly completed records and the outbox.
func (uc *recordUseCase) Sync(ctx context.Context, input *dto.SyncInput) (*dto.SyncSummary, error) {
	release, err := uc.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	ctx = context.WithoutCancel(ctx)

	records, err := uc.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	summary := &dto.SyncSummary{Scanned: len(records)}
	var completed []string
	for i := range records {
		if records[i].IsComplete() {
			continue
		}
		summary.Selected++

		enriched := uc.enricher.Enrich(ctx, records[i], input.Online)
		if !enriched.IsComplete() {
			summary.StillIncomplete++
			continue
		}
		records[i] = enriched
		summary.Updated++
		completed = append(completed, enriched.ID)
	}

	if summary.Updated > 0 {
		if err := uc.repo.ReplaceAll(ctx, records); err != nil {
			uc.logger.Error("failed to write synced records", zap.Int("updated", summary.Updated), zap.Error(err))
			return nil, err
		}
		for _, rec := range records {
			if contains(completed, rec.ID) {
				uc.indexRecord(ctx, rec)
			}
		}
	}

	if input.Online {
		uc.forwardPending(ctx, records, completed, summary)
	}

	uc.logger.Info("sync finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("selected", summary.Selected),
		zap.Int("updated", summary.Updated),
		zap.Int("still_incomplete", summary.StillIncomplete),
		zap.Int("forwarded", summary.Forwarded),
		zap.Int("forward_failed", summary.ForwardFailed),
	)
	return summary, nil
}

// forwardPending uploads completed ids followed by the outbox, sequentially.
// Failures stay in the outbox; ids of records that are gone are dropped.
// When the outbox cannot be read it is left untouched and only the newly
// completed records are sent.
func (uc *recordUseCase) forwardPending(ctx context.Context, records []model.Record, completed []string, summary *dto.SyncSummary) {
	pending, err := uc.repo.PendingForwards(ctx)
	outboxRead := err == nil
	if !outboxRead {
		uc.logger.Error("failed to load forward outbox", zap.Error(err))
	}

	queue := append([]string(nil), completed...)
	for _, id := range pending {
		if !contains(queue, id) {
			queue = append(queue, id)
		}
	}
	if len(queue) == 0 {
		return
	}

	byID := make(map[string]model.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	remaining := make([]string, 0)
	for _, id := range queue {
		rec, ok := byID[id]
		if !ok || !rec.IsComplete() {
			continue
		}
		if err := uc.forwarder.Forward(ctx, rec); err != nil {
			uc.logger.Warn("forwarding failed during sync", zap.String("record_id", id), zap.Error(err))
			summary.ForwardFailed++
			remaining = append(remaining, id)
			continue
		}
		summary.Forwarded++
	}

	if !outboxRead {
		for _, id := range remaining {
			if err := uc.enqueue(ctx, id); err != nil {
				uc.logger.Error("failed to queue record for a later sync", zap.String("record_id", id), zap.Error(err))
			}
		}
		return
	}
	if err := uc.repo.SavePendingForwards(ctx, remaining); err != nil {
		uc.logger.Error("failed to save forward outbox", zap.Error(err))
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
