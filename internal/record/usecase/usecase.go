package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/ingest"
	"github.com/fekuna/omnipos-asset-scan-service/internal/lock"
	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Enricher interface {
	Enrich(ctx context.Context, rec model.Record, online bool) model.Record
}

// Indexer mirrors records into a search index. Optional.
type Indexer interface {
	IndexRecord(ctx context.Context, rec model.Record) error
	DeleteRecords(ctx context.Context, ids []string) error
	MatchIDs(ctx context.Context, query string, limit int) ([]string, error)
}

type recordUseCase struct {
	repo      record.Repository
	locker    lock.Locker
	enricher  Enricher
	forwarder ingest.Forwarder
	index     Indexer
	validate  *validator.Validate
	logger    logger.ZapLogger
	now       func() time.Time
}

// NewRecordUseCase wires the pipeline. index may be nil.
func NewRecordUseCase(
	repo record.Repository,
	locker lock.Locker,
	enricher Enricher,
	forwarder ingest.Forwarder,
	index Indexer,
	log logger.ZapLogger,
) record.UseCase {
	return &recordUseCase{
		repo:      repo,
		locker:    locker,
		enricher:  enricher,
		forwarder: forwarder,
		index:     index,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    log,
		now:       time.Now,
	}
}

// acquire takes the busy lock or fails at once with record.ErrBusy.
func (uc *recordUseCase) acquire(ctx context.Context) (func(), error) {
	release, err := uc.locker.TryAcquire(ctx)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, record.ErrBusy
		}
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	return release, nil
}

func (uc *recordUseCase) indexRecord(ctx context.Context, rec model.Record) {
	if uc.index == nil {
		return
	}
	if err := uc.index.IndexRecord(ctx, rec); err != nil {
		uc.logger.Error("failed to index record", zap.String("record_id", rec.ID), zap.Error(err))
	}
}

func (uc *recordUseCase) unindex(ctx context.Context, ids []string) {
	if uc.index == nil || len(ids) == 0 {
		return
	}
	if err := uc.index.DeleteRecords(ctx, ids); err != nil {
		uc.logger.Error("failed to remove records from index", zap.Int("count", len(ids)), zap.Error(err))
	}
}

// enqueue adds id to the forward outbox unless it is already there.
func (uc *recordUseCase) enqueue(ctx context.Context, id string) error {
	pending, err := uc.repo.PendingForwards(ctx)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p == id {
			return nil
		}
	}
	return uc.repo.SavePendingForwards(ctx, append(pending, id))
}

// pruneOutbox drops ids from the forward outbox.
func (uc *recordUseCase) pruneOutbox(ctx context.Context, drop map[string]bool) {
	pending, err := uc.repo.PendingForwards(ctx)
	if err != nil {
		uc.logger.Error("failed to load forward outbox", zap.Error(err))
		return
	}
	kept := make([]string, 0, len(pending))
	for _, id := range pending {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(pending) {
		return
	}
	if err := uc.repo.SavePendingForwards(ctx, kept); err != nil {
		uc.logger.Error("failed to save forward outbox", zap.Error(err))
	}
}
