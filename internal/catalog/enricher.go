package catalog

import (
	"context"

	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/scan"
	"go.uber.org/zap"
)

type Fetcher interface {
	Lookup(ctx context.Context, key string) (Entry, error)
}

// Enricher fills a record from the catalog. It never fails: when the
// catalog cannot be reached the record comes back tagged ENRICHMENT_FAILED
// with the offline sentinel as its name.
type Enricher struct {
	fetcher Fetcher
	logger  logger.ZapLogger
}

func NewEnricher(fetcher Fetcher, log logger.ZapLogger) *Enricher {
	return &Enricher{fetcher: fetcher, logger: log}
}

func (e *Enricher) Enrich(ctx context.Context, rec model.Record, online bool) model.Record {
	if !online {
		return degraded(rec)
	}

	key := LookupKey(rec.RawPayload, rec.Period(), rec.DeviceID)
	entry, err := e.fetcher.Lookup(ctx, key)
	if err != nil {
		e.logger.Warn("catalog lookup failed",
			zap.String("asset_code", rec.AssetCode),
			zap.String("serial_number", rec.SerialNumber),
			zap.Error(err),
		)
		return degraded(rec)
	}

	return Merge(rec, entry)
}

// Merge copies every non-empty entry field onto rec and marks it complete.
func Merge(rec model.Record, entry Entry) model.Record {
	if rec.AssetName == model.OfflineAssetName {
		rec.AssetName = ""
	}
	rec.AssetName = pick(entry.Name, rec.AssetName)
	rec.UnitType = pick(entry.Unit, rec.UnitType)
	rec.Custodian = pick(entry.Custodian, rec.Custodian)
	rec.Account = pick(entry.Account, rec.Account)
	rec.UnitPrice = pick(entry.Price, rec.UnitPrice)
	if entry.Date != "" {
		rec.Date = scan.NormalizeDate(entry.Date)
	}
	rec.Completeness = model.TagComplete
	return rec
}

func degraded(rec model.Record) model.Record {
	rec.AssetName = model.OfflineAssetName
	rec.Completeness = model.TagEnrichmentFailed
	return rec
}

func pick(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
