package dto

import (
	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/reconcile"
)

// Stage is where a scan ended up in the commit pipeline.
type Stage string

const (
	StageIdle       Stage = "IDLE"
	StageParsing    Stage = "PARSING"
	StageEnriching  Stage = "ENRICHING"
	StageValidating Stage = "VALIDATING"
	StageRejected   Stage = "REJECTED"
	StagePersisted  Stage = "PERSISTED"
	StageForwarding Stage = "FORWARDING"
)

type CommitResult struct {
	Stage     Stage             `json:"stage"`
	Record    *model.Record     `json:"record,omitempty"`
	Verdict   reconcile.Verdict `json:"verdict"`
	Forwarded bool              `json:"forwarded"`
	// Notices are non-blocking messages, e.g. a failed upstream forward.
	Notices []string `json:"notices,omitempty"`
}

type SyncSummary struct {
	Scanned         int `json:"scanned"`
	Selected        int `json:"selected"`
	Updated         int `json:"updated"`
	StillIncomplete int `json:"stillIncomplete"`
	Forwarded       int `json:"forwarded"`
	ForwardFailed   int `json:"forwardFailed"`
}

type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Count       int
}
