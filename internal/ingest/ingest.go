// Package ingest forwards committed records to the remote ingestion service.
package ingest

import (
	"context"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/scan"
)

type Forwarder interface {
	Forward(ctx context.Context, rec model.Record) error
}

// EnrichedPayload is the 13-field label the ingestion service expects:
// the seven positional fields, custodian and name, then reporting year,
// month, device id and completeness tag.
func EnrichedPayload(rec model.Record) string {
	return strings.Join([]string{
		rec.IssuerID,
		rec.Account,
		rec.AssetCode,
		rec.UnitPrice,
		rec.Date,
		rec.OrganizationCode,
		rec.SerialNumber,
		rec.Custodian,
		rec.AssetName,
		strconv.Itoa(rec.ReportingYear),
		strconv.Itoa(rec.ReportingMonth),
		rec.DeviceID,
		string(rec.Completeness),
	}, scan.Delimiter)
}
