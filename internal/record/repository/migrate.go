package repository

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
	"github.com/fekuna/omnipos-asset-scan-service/internal/scan"
	"github.com/google/uuid"
)

// Migrate decodes one stored element into the current record schema.
//
// Older shapes still found on devices:
//   - v0: {id, text, date} where text is the raw label and date the save time
//   - v1: flat records using the catalog's key names (une, ognoo, dans, name,
//     unt, lord) or "price", with no organization or schema version
//
// Fields a legacy entry lacks are recovered from its raw label.
func Migrate(item json.RawMessage) (model.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return model.Record{}, err
	}

	if intField(m, "schemaVersion") == model.SchemaVersion {
		var rec model.Record
		if err := json.Unmarshal(item, &rec); err != nil {
			return model.Record{}, err
		}
		if rec.OrganizationCode == "" {
			rec.OrganizationCode = scan.OrganizationOf(rec.RawPayload)
		}
		return rec, nil
	}

	_, hasText := m["text"]
	_, hasAsset := m["assetCode"]
	v0 := hasText && !hasAsset

	rec := model.Record{
		ID:               strField(m, "id"),
		IssuerID:         strField(m, "issuerId"),
		AssetCode:        strField(m, "assetCode"),
		SerialNumber:     strField(m, "serialNumber", "serial"),
		Account:          strField(m, "account", "dans"),
		UnitPrice:        strField(m, "unitPrice", "price", "une"),
		OrganizationCode: strField(m, "organizationCode", "org"),
		Custodian:        strField(m, "custodian", "lord"),
		AssetName:        strField(m, "assetName", "name"),
		UnitType:         strField(m, "unitType", "unt"),
		RawPayload:       strField(m, "rawPayload", "text", "raw"),
		DeviceID:         strField(m, "deviceId"),
		ScannedBy:        strField(m, "scannedBy"),
		ReportingYear:    intField(m, "reportingYear", "year"),
		ReportingMonth:   intField(m, "reportingMonth", "month"),
		Completeness:     model.CompletenessTag(strField(m, "completenessTag")),
	}
	if v0 {
		rec.CreatedAt = timeField(m, "date")
	} else {
		rec.Date = strField(m, "date", "ognoo")
		rec.CreatedAt = timeField(m, "createdAt")
	}

	parts := scan.Split(rec.RawPayload)
	if len(parts) >= 7 {
		fill(&rec.IssuerID, parts[0])
		fill(&rec.Account, parts[1])
		fill(&rec.AssetCode, parts[2])
		fill(&rec.UnitPrice, parts[3])
		fill(&rec.Date, parts[4])
		fill(&rec.OrganizationCode, parts[5])
		fill(&rec.SerialNumber, parts[6])
	}
	if len(parts) == 9 {
		fill(&rec.Custodian, parts[7])
		fill(&rec.AssetName, parts[8])
	}
	if rec.OrganizationCode == "" {
		rec.OrganizationCode = scan.OrganizationOf(rec.RawPayload)
	}
	rec.Date = scan.NormalizeDate(rec.Date)

	if rec.Completeness == "" {
		switch {
		case rec.AssetName == model.OfflineAssetName:
			rec.Completeness = model.TagEnrichmentFailed
		case len(parts) == 7 && rec.AssetName == "":
			rec.Completeness = model.TagEnrichmentPending
		default:
			rec.Completeness = model.TagComplete
		}
	}

	if rec.ID == "" {
		// Deterministic so repeated loads of an unmigrated list agree.
		rec.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(IdentityOf(rec))).String()
	}
	rec.SchemaVersion = model.SchemaVersion
	return rec, nil
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func strField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func intField(m map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i)
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return i
			}
		}
	}
	return 0
}

// timeField accepts RFC 3339 text or epoch milliseconds.
func timeField(m map[string]any, key string) time.Time {
	switch v := m[key].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v)); err == nil {
			return t.UTC()
		}
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	}
	return time.Time{}
}
