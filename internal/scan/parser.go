// Package scan turns the raw text read from an asset QR label into a typed payload.
package scan

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
)

// Delimiter separates positional fields in a label payload.
const Delimiter = "^?"

const (
	lookupFieldCount        = 7
	selfContainedFieldCount = 9
)

// Field positions inside a payload.
const (
	idxIssuer = iota
	idxAccount
	idxAssetCode
	idxUnitPrice
	idxDate
	idxOrganization
	idxSerial
	idxCustodian
	idxAssetName
)

var ErrMalformedPayload = errors.New("malformed payload")

type Kind int

const (
	// LookupRequired payloads carry 7 fields and need a catalog lookup.
	LookupRequired Kind = iota + 1
	// SelfContained payloads carry all 9 fields.
	SelfContained
)

func (k Kind) String() string {
	switch k {
	case LookupRequired:
		return "lookup-required"
	case SelfContained:
		return "self-contained"
	default:
		return "unknown"
	}
}

type Fields struct {
	IssuerID         string
	Account          string
	AssetCode        string
	UnitPrice        string
	Date             string
	OrganizationCode string
	SerialNumber     string
	Custodian        string
	AssetName        string
}

type Payload struct {
	Kind   Kind
	Raw    string
	Fields Fields
}

// Split returns the trimmed positional fields of raw without checking their count.
func Split(raw string) []string {
	parts := strings.Split(raw, Delimiter)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Parse classifies raw as a 7- or 9-field payload. Dates are normalized.
func Parse(raw string) (Payload, error) {
	parts := Split(raw)

	var kind Kind
	switch len(parts) {
	case lookupFieldCount:
		kind = LookupRequired
	case selfContainedFieldCount:
		kind = SelfContained
	default:
		return Payload{}, fmt.Errorf("%w: expected %d or %d fields, got %d",
			ErrMalformedPayload, lookupFieldCount, selfContainedFieldCount, len(parts))
	}

	f := Fields{
		IssuerID:         parts[idxIssuer],
		Account:          parts[idxAccount],
		AssetCode:        parts[idxAssetCode],
		UnitPrice:        parts[idxUnitPrice],
		Date:             NormalizeDate(parts[idxDate]),
		OrganizationCode: parts[idxOrganization],
		SerialNumber:     parts[idxSerial],
	}
	if kind == SelfContained {
		f.Custodian = parts[idxCustodian]
		f.AssetName = parts[idxAssetName]
	}

	return Payload{Kind: kind, Raw: raw, Fields: f}, nil
}

// OrganizationOf returns field 5 of raw, or "" when raw is too short.
func OrganizationOf(raw string) string {
	parts := Split(raw)
	if len(parts) <= idxOrganization {
		return ""
	}
	return parts[idxOrganization]
}

var (
	separatedDate = regexp.MustCompile(`^(\d{4})([-./])(\d{1,2})([-./])(\d{1,2})$`)
	compactDate   = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
)

// NormalizeDate rewrites YYYY-MM-DD, YYYY.MM.DD, YYYY/MM/DD and YYYYMMDD as a
// zero-padded YYYY-MM-DD. Anything else is returned unchanged.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)

	var y, m, d string
	if g := separatedDate.FindStringSubmatch(s); g != nil {
		if g[2] != g[4] {
			return s
		}
		y, m, d = g[1], g[3], g[5]
	} else if g := compactDate.FindStringSubmatch(s); g != nil {
		y, m, d = g[1], g[2], g[3]
	} else {
		return s
	}

	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return s
	}
	return fmt.Sprintf("%s-%02d-%02d", y, month, day)
}

// Record builds the candidate record for p. Self-contained payloads are
// complete; lookup-required ones wait for enrichment.
func (p Payload) Record(period model.Period, deviceID string, now time.Time) model.Record {
	tag := model.TagComplete
	if p.Kind == LookupRequired {
		tag = model.TagEnrichmentPending
	}
	return model.Record{
		SchemaVersion:    model.SchemaVersion,
		IssuerID:         p.Fields.IssuerID,
		AssetCode:        p.Fields.AssetCode,
		SerialNumber:     p.Fields.SerialNumber,
		Account:          p.Fields.Account,
		UnitPrice:        p.Fields.UnitPrice,
		Date:             p.Fields.Date,
		OrganizationCode: p.Fields.OrganizationCode,
		Custodian:        p.Fields.Custodian,
		AssetName:        p.Fields.AssetName,
		RawPayload:       p.Raw,
		DeviceID:         deviceID,
		ReportingYear:    period.Year,
		ReportingMonth:   period.Month,
		CreatedAt:        now.UTC(),
		Completeness:     tag,
	}
}
