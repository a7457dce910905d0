package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/fekuna/omnipos-asset-scan-service/internal/export"
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/dto"
	"go.uber.org/zap"
)

// ListHistory returns matching records newest first and the total before paging.
func (uc *recordUseCase) ListHistory(ctx context.Context, filters *dto.HistoryFilters) ([]model.Record, int, error) {
	if err := uc.validate.Struct(filters); err != nil {
		return nil, 0, err
	}

	records, err := uc.repo.Load(ctx)
	if err != nil {
		return nil, 0, err
	}

	match := uc.queryMatcher(ctx, filters.Query, len(records))

	out := make([]model.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if filters.Year != 0 && r.ReportingYear != filters.Year {
			continue
		}
		if filters.Month != 0 && r.ReportingMonth != filters.Month {
			continue
		}
		if filters.Completeness != "" && r.Completeness != filters.Completeness {
			continue
		}
		if !match(r) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := len(out)
	if filters.PageSize > 0 {
		page := filters.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filters.PageSize
		if start > total {
			start = total
		}
		end := start + filters.PageSize
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

// queryMatcher matches the free-text query against the stored fields and,
// when a search index is configured, also accepts the index's hits. Records
// the index never saw still match on their own fields.
func (uc *recordUseCase) queryMatcher(ctx context.Context, query string, limit int) func(model.Record) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return func(model.Record) bool { return true }
	}

	q := strings.ToLower(query)
	local := func(r model.Record) bool {
		for _, f := range []string{r.AssetCode, r.SerialNumber, r.AssetName, r.Custodian, r.Account} {
			if strings.Contains(strings.ToLower(f), q) {
				return true
			}
		}
		return false
	}

	if uc.index == nil {
		return local
	}
	ids, err := uc.index.MatchIDs(ctx, query, max(limit, 1))
	if err != nil {
		uc.logger.Error("search index query failed, matching in the store only", zap.Error(err))
		return local
	}
	hit := make(map[string]bool, len(ids))
	for _, id := range ids {
		hit[id] = true
	}
	return func(r model.Record) bool { return hit[r.ID] || local(r) }
}

func (uc *recordUseCase) DeleteRecords(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	release, err := uc.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	ctx = context.WithoutCancel(ctx)

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	var removedIDs []string
	removed, err := uc.repo.RemoveWhere(ctx, func(r model.Record) bool {
		if drop[r.ID] {
			removedIDs = append(removedIDs, r.ID)
			return true
		}
		return false
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		uc.pruneOutbox(ctx, drop)
		uc.unindex(ctx, removedIDs)
	}
	uc.logger.Info("records deleted", zap.Int("requested", len(ids)), zap.Int("removed", removed))
	return removed, nil
}

func (uc *recordUseCase) ClearHistory(ctx context.Context) (int, error) {
	release, err := uc.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	ctx = context.WithoutCancel(ctx)

	var removedIDs []string
	removed, err := uc.repo.RemoveWhere(ctx, func(r model.Record) bool {
		removedIDs = append(removedIDs, r.ID)
		return true
	})
	if err != nil {
		return 0, err
	}

	if err := uc.repo.SavePendingForwards(ctx, nil); err != nil {
		uc.logger.Error("failed to clear forward outbox", zap.Error(err))
	}
	uc.unindex(ctx, removedIDs)

	uc.logger.Info("history cleared", zap.Int("removed", removed))
	return removed, nil
}

func (uc *recordUseCase) Export(ctx context.Context, input *dto.ExportInput) (*dto.ExportFile, error) {
	if err := uc.validate.Struct(input); err != nil {
		return nil, err
	}

	filters := input.Filters
	filters.Page, filters.PageSize = 0, 0
	records, _, err := uc.ListHistory(ctx, &filters)
	if err != nil {
		return nil, err
	}

	if len(input.IDs) > 0 {
		selected := records[:0]
		for _, r := range records {
			if contains(input.IDs, r.ID) {
				selected = append(selected, r)
			}
		}
		records = selected
	}

	file := &dto.ExportFile{Count: len(records)}
	switch input.Format {
	case dto.ExportXLSX:
		file.Data, err = export.XLSX(records)
		file.ContentType = export.ContentTypeXLSX
		file.Filename = export.Filename(uc.now(), "xlsx")
	default:
		file.Data, err = export.JSON(records)
		file.ContentType = export.ContentTypeJSON
		file.Filename = export.Filename(uc.now(), "json")
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}
