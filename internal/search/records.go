package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-asset-scan-service/internal/model"
)

const recordMapping = `{
	"mappings": {
		"properties": {
			"assetCode":        { "type": "keyword" },
			"serialNumber":     { "type": "keyword" },
			"organizationCode": { "type": "keyword" },
			"account":          { "type": "keyword" },
			"assetName":        { "type": "text" },
			"custodian":        { "type": "text" },
			"completenessTag":  { "type": "keyword" },
			"reportingYear":    { "type": "integer" },
			"reportingMonth":   { "type": "integer" },
			"createdAt":        { "type": "date" }
		}
	}
}`

// RecordIndex stores one document per record, keyed by record id.
type RecordIndex struct {
	client *Client
	index  string
}

func NewRecordIndex(client *Client, index string) *RecordIndex {
	return &RecordIndex{client: client, index: index}
}

func (r *RecordIndex) EnsureIndex(ctx context.Context) error {
	return r.client.CreateIndex(ctx, r.index, recordMapping)
}

func (r *RecordIndex) IndexRecord(ctx context.Context, rec model.Record) error {
	return r.client.Index(ctx, r.index, rec.ID, rec)
}

func (r *RecordIndex) DeleteRecords(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := r.client.Delete(ctx, r.index, id); err != nil {
			return err
		}
	}
	return nil
}

// MatchIDs returns the ids of records whose text fields match query.
func (r *RecordIndex) MatchIDs(ctx context.Context, query string, limit int) ([]string, error) {
	q := map[string]any{
		"query": map[string]any{
			"query_string": map[string]any{
				"query":            fmt.Sprintf("*%s*", escape(query)),
				"fields":           []string{"assetName^3", "assetCode^2", "serialNumber^2", "custodian", "account"},
				"analyze_wildcard": true,
			},
		},
		"_source": false,
		"size":    limit,
	}

	res, err := r.client.Search(ctx, r.index, q)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

var reserved = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `=`, `\=`, `&`, `\&`, `|`, `\|`,
	`>`, `\>`, `<`, `\<`, `!`, `\!`, `(`, `\(`, `)`, `\)`, `{`, `\{`,
	`}`, `\}`, `[`, `\[`, `]`, `\]`, `^`, `\^`, `"`, `\"`, `~`, `\~`,
	`*`, `\*`, `?`, `\?`, `:`, `\:`, `/`, `\/`, ` `, `\ `,
)

func escape(s string) string {
	return reserved.Replace(strings.TrimSpace(s))
}
