package model

import (
	"fmt"
	"time"
)

// SchemaVersion is stamped on every record written by this service.
// Version 0 is the prototype's {id, text, date} history entry, version 1
// the flat record without organization/schema fields.
const SchemaVersion = 2

// OfflineAssetName marks a record whose catalog lookup could not run.
const OfflineAssetName = "[offline]"

type CompletenessTag string

const (
	TagComplete          CompletenessTag = "COMPLETE"
	TagEnrichmentPending CompletenessTag = "ENRICHMENT_PENDING"
	TagEnrichmentFailed  CompletenessTag = "ENRICHMENT_FAILED"
)

// Period is the (year, month) inventory round a record belongs to.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (p Period) IsZero() bool { return p.Year == 0 && p.Month == 0 }

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, p.Month) }

type Record struct {
	ID               string          `json:"id"`
	SchemaVersion    int             `json:"schemaVersion"`
	IssuerID         string          `json:"issuerId"`
	AssetCode        string          `json:"assetCode"`
	SerialNumber     string          `json:"serialNumber"`
	Account          string          `json:"account"`
	UnitPrice        string          `json:"unitPrice"`
	Date             string          `json:"date"`
	OrganizationCode string          `json:"organizationCode"`
	Custodian        string          `json:"custodian"`
	AssetName        string          `json:"assetName"`
	UnitType         string          `json:"unitType"`
	RawPayload       string          `json:"rawPayload"`
	DeviceID         string          `json:"deviceId"`
	ScannedBy        string          `json:"scannedBy,omitempty"`
	ReportingYear    int             `json:"reportingYear"`
	ReportingMonth   int             `json:"reportingMonth"`
	CreatedAt        time.Time       `json:"createdAt"`
	Completeness     CompletenessTag `json:"completenessTag"`
}

func (r Record) Period() Period {
	return Period{Year: r.ReportingYear, Month: r.ReportingMonth}
}

func (r Record) IsComplete() bool { return r.Completeness == TagComplete }
