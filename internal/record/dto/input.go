package dto

import "github.com/fekuna/omnipos-asset-scan-service/internal/model"

type CommitScanInput struct {
	RawPayload string `validate:"required"`
	Year       int    `validate:"gte=2000,lte=2100"`
	Month      int    `validate:"gte=1,lte=12"`
	DeviceID   string
	// ScannedBy is the signed-in user, empty for anonymous devices.
	ScannedBy string
	// Online is the caller's connectivity flag; the core never checks the network itself.
	Online bool
}

func (in *CommitScanInput) Period() model.Period {
	return model.Period{Year: in.Year, Month: in.Month}
}

type SyncInput struct {
	Online bool
}

type HistoryFilters struct {
	Query        string
	Year         int `validate:"omitempty,gte=2000,lte=2100"`
	Month        int `validate:"omitempty,gte=1,lte=12"`
	Completeness model.CompletenessTag
	Page         int
	PageSize     int `validate:"omitempty,gte=1,lte=500"`
}

type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportXLSX ExportFormat = "xlsx"
)

type ExportInput struct {
	Format ExportFormat `validate:"omitempty,oneof=json xlsx"`
	// IDs selects records; empty exports every record matching Filters.
	IDs     []string
	Filters HistoryFilters
}
