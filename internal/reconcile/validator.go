// Package reconcile decides whether a scanned record may join the local
// inventory. A store holds one organization's inventory for one reporting
// period; Validate enforces that and rejects duplicates.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
)

type Level int

const (
	LevelOK Level = iota
	LevelWarning
	LevelBlocking
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "OK"
	case LevelWarning:
		return "WARNING"
	case LevelBlocking:
		return "BLOCKING"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

const (
	ReasonCrossOrganization = "cross-organization conflict; clear history before starting a new inventory round."
	ReasonDuplicate         = "duplicate asset already recorded."
	ReasonIncomplete        = "enrichment incomplete (offline or lookup failure)."
	ReasonOffline           = "offline mode: record will be stored locally only."
	ReasonReady             = "ready to save."
)

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

type Verdict struct {
	Level   Level    `json:"level"`
	Reasons []string `json:"reasons"`
}

func (v Verdict) Blocking() bool { return v.Level == LevelBlocking }

// Reason is the first reason, which for a blocking verdict is the only one.
func (v Verdict) Reason() string {
	if len(v.Reasons) == 0 {
		return ""
	}
	return v.Reasons[0]
}

func blocking(reason string) Verdict {
	return Verdict{Level: LevelBlocking, Reasons: []string{reason}}
}

// Validate runs the checks in order: organization, duplicate, period. The
// first blocking check wins. Otherwise every applicable warning is reported.
// existing is only read.
func Validate(candidate model.Record, existing []model.Record, selected model.Period, online bool) Verdict {
	for _, r := range existing {
		if r.OrganizationCode != "" && r.OrganizationCode != candidate.OrganizationCode {
			return blocking(ReasonCrossOrganization)
		}
	}

	for _, r := range existing {
		if r.AssetCode == candidate.AssetCode && r.SerialNumber == candidate.SerialNumber {
			return blocking(ReasonDuplicate)
		}
	}

	if conflicts := conflictingPeriods(existing, selected); len(conflicts) > 0 {
		return blocking(periodReason(conflicts, selected))
	}

	var reasons []string
	if !candidate.IsComplete() {
		reasons = append(reasons, ReasonIncomplete)
	}
	if !online {
		reasons = append(reasons, ReasonOffline)
	}
	if len(reasons) == 0 {
		return Verdict{Level: LevelOK, Reasons: []string{ReasonReady}}
	}
	return Verdict{Level: LevelWarning, Reasons: reasons}
}

// conflictingPeriods lists, sorted and de-duplicated, the periods present in
// existing that differ from selected. Records without a period are ignored.
func conflictingPeriods(existing []model.Record, selected model.Period) []string {
	seen := map[string]struct{}{}
	for _, r := range existing {
		p := r.Period()
		if p.IsZero() || p == selected {
			continue
		}
		seen[p.String()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func periodReason(conflicts []string, selected model.Period) string {
	return fmt.Sprintf(
		"reporting period conflict: history already holds records for %s; switch the selected period (now %s) to match or clear history.",
		strings.Join(conflicts, ", "), selected,
	)
}
